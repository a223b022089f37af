// Package imagery provides the edge-detection adapter. The current
// implementation is a deterministic simulator: no imagery provider is
// wired in yet, so edge maps are fabricated from the request bounds.
// The same bounds always produce the same edge map, which keeps
// snapping reproducible across calls and across instances.
package imagery

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
)

// edgeSpacingMeters is the gap between fabricated edges along a
// boundary line.
const edgeSpacingMeters = 4.0

// SimulatedDetector implements ports.EdgeDetector with fabricated data.
type SimulatedDetector struct{}

// NewSimulatedDetector creates a new SimulatedDetector.
func NewSimulatedDetector() *SimulatedDetector {
	return &SimulatedDetector{}
}

// DetectEdges fabricates a plausible edge map for the bounding box: a
// property-line rectangle inset from the bounds, a building footprint
// near the center, and a short driveway run, each with jittered
// positions and confidences drawn from a bounds-seeded source.
func (d *SimulatedDetector) DetectEdges(ctx context.Context, bounds domain.Bounds) (*domain.EdgeMap, error) {
	rng := rand.New(rand.NewSource(boundsSeed(bounds)))

	center := bounds.Center()
	halfLat := bounds.LatSpan() / 2
	halfLon := bounds.LonSpan() / 2
	if halfLat == 0 || halfLon == 0 {
		return &domain.EdgeMap{Quality: domain.QualityLow}, nil
	}

	var points []domain.EdgePoint

	// Property line: rectangle inset 10% from the bounds.
	lot := insetRect(center, halfLat*0.9, halfLon*0.9)
	points = append(points, traceRect(rng, lot, domain.EdgePropertyLine, 0.80, 0.18)...)

	// Building footprint near the center, 30% of the lot.
	building := insetRect(center, halfLat*0.3, halfLon*0.3)
	points = append(points, traceRect(rng, building, domain.EdgeBuilding, 0.70, 0.2)...)

	// Driveway: straight run from the bottom edge toward the building.
	from := domain.GeoPoint{Lat: center.Lat - halfLat*0.9, Lon: center.Lon - halfLon*0.5}
	to := domain.GeoPoint{Lat: center.Lat - halfLat*0.3, Lon: center.Lon - halfLon*0.5}
	points = append(points, traceSegment(rng, from, to, domain.EdgeDriveway, 0.65, 0.2)...)

	quality := domain.QualityHigh
	switch rng.Intn(10) {
	case 0:
		quality = domain.QualityLow
	case 1, 2:
		quality = domain.QualityMedium
	}

	return &domain.EdgeMap{Points: points, Quality: quality}, nil
}

// boundsSeed hashes the bounding box into a deterministic seed.
func boundsSeed(b domain.Bounds) int64 {
	h := fnv.New64a()
	for _, v := range []float64{b.MinLat, b.MinLon, b.MaxLat, b.MaxLon} {
		var buf [8]byte
		bits := math.Float64bits(v)
		for i := 0; i < 8; i++ {
			buf[i] = byte(bits >> (8 * i))
		}
		h.Write(buf[:])
	}
	return int64(h.Sum64())
}

func insetRect(center domain.GeoPoint, halfLat, halfLon float64) domain.Polygon {
	return domain.Polygon{
		{Lat: center.Lat - halfLat, Lon: center.Lon - halfLon},
		{Lat: center.Lat - halfLat, Lon: center.Lon + halfLon},
		{Lat: center.Lat + halfLat, Lon: center.Lon + halfLon},
		{Lat: center.Lat + halfLat, Lon: center.Lon - halfLon},
	}
}

// traceRect emits edges along each side of a rectangle.
func traceRect(rng *rand.Rand, rect domain.Polygon, t domain.EdgeType, baseConf, confSpread float64) []domain.EdgePoint {
	var out []domain.EdgePoint
	n := len(rect)
	for i := 0; i < n; i++ {
		out = append(out, traceSegment(rng, rect[i], rect[(i+1)%n], t, baseConf, confSpread)...)
	}
	return out
}

// traceSegment emits evenly spaced edges between two points, with
// sub-meter positional jitter and randomized confidence.
func traceSegment(rng *rand.Rand, from, to domain.GeoPoint, t domain.EdgeType, baseConf, confSpread float64) []domain.EdgePoint {
	length := geospatial.Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
	steps := int(length/edgeSpacingMeters) + 1
	direction := geospatial.BearingDeg(from, to)

	out := make([]domain.EdgePoint, 0, steps)
	for i := 0; i <= steps; i++ {
		f := float64(i) / float64(steps)
		p := domain.GeoPoint{
			Lat: from.Lat + (to.Lat-from.Lat)*f,
			Lon: from.Lon + (to.Lon-from.Lon)*f,
		}
		p = geospatial.OffsetMeters(p, rng.Float64()-0.5, rng.Float64()-0.5)

		out = append(out, domain.EdgePoint{
			Location:   p,
			Confidence: baseConf + rng.Float64()*confSpread,
			Direction:  direction,
			Type:       t,
		})
	}
	return out
}
