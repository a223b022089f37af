package usecases

import (
	"context"
	"fmt"
	"math"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/core/ports"
	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
)

// collinearToleranceMeters is the perpendicular distance below which a
// vertex counts as lying on the line through its neighbours.
const collinearToleranceMeters = 0.3

// rightAngleToleranceDeg is how far an interior angle may deviate from
// 90° and still count as a right angle during regularization.
const rightAngleToleranceDeg = 15.0

// SnappingService refines manually drawn polygons against an edge map
// produced by an imagery detector. All vertex-to-edge distances use
// haversine; only the smoothing/regularization math runs in the planar
// frame.
type SnappingService struct {
	edges ports.EdgeDetector
}

// NewSnappingService creates a new SnappingService.
func NewSnappingService(edges ports.EdgeDetector) *SnappingService {
	return &SnappingService{edges: edges}
}

// SnapToBoundaries moves each polygon vertex onto the best nearby
// detected edge, then smooths and regularizes the result. Degenerate
// polygons pass through untouched with zero confidence.
func (s *SnappingService) SnapToBoundaries(ctx context.Context, polygon domain.Polygon, opts domain.SnapOptions) (*domain.SnapResult, error) {
	opts = normalizeSnapOptions(opts)

	if !polygon.Valid() {
		return &domain.SnapResult{Polygon: polygon, Adjustments: []domain.VertexAdjustment{}}, nil
	}

	edgeMap, err := s.edges.DetectEdges(ctx, expandBounds(geospatial.BoundsOf(polygon), opts.SnapRadiusMeters))
	if err != nil {
		return nil, fmt.Errorf("detect edges: %w", err)
	}

	snapped := make(domain.Polygon, len(polygon))
	adjustments := make([]domain.VertexAdjustment, len(polygon))

	for i, v := range polygon {
		adj := domain.VertexAdjustment{Index: i, Original: v, Adjusted: v}

		candidates := edgesWithin(edgeMap.Points, v, opts.SnapRadiusMeters)
		if best := pickEdge(candidates, opts.PreferredEdgeTypes); best != nil && best.Confidence >= opts.ConfidenceThreshold {
			target := best.Location
			if opts.PreserveAngles {
				// Slide onto the edge line instead of jumping to the
				// edge point, keeping the vertex's bearing intact.
				target = geospatial.ProjectOntoLine(v, best.Location, best.Direction)
			}
			adj.Adjusted = target
			adj.DistanceMeters = geospatial.Haversine(v.Lat, v.Lon, target.Lat, target.Lon)
			adj.Confidence = best.Confidence
			adj.EdgeType = best.Type
		}

		snapped[i] = adj.Adjusted
		adjustments[i] = adj
	}

	for pass := 0; pass < opts.SmoothingLevel.Passes(); pass++ {
		snapped = s.smoothOnce(snapped, edgeMap.Points, opts.SnapRadiusMeters)
	}

	snapped = regularize(snapped)

	return &domain.SnapResult{
		Polygon:     snapped,
		Adjustments: adjustments,
		Confidence:  overallConfidence(adjustments, edgeMap.Quality),
	}, nil
}

// Simplify reduces vertex count with Douglas-Peucker.
func (s *SnappingService) Simplify(polygon domain.Polygon, toleranceMeters float64) domain.Polygon {
	return geospatial.DouglasPeucker(polygon, toleranceMeters)
}

func normalizeSnapOptions(opts domain.SnapOptions) domain.SnapOptions {
	def := domain.DefaultSnapOptions()
	if opts.SnapRadiusMeters <= 0 {
		opts.SnapRadiusMeters = def.SnapRadiusMeters
	}
	if opts.ConfidenceThreshold <= 0 || opts.ConfidenceThreshold > 1 {
		opts.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if len(opts.PreferredEdgeTypes) == 0 {
		opts.PreferredEdgeTypes = def.PreferredEdgeTypes
	}
	if opts.SmoothingLevel == "" {
		opts.SmoothingLevel = def.SmoothingLevel
	}
	return opts
}

func expandBounds(b domain.Bounds, padMeters float64) domain.Bounds {
	latPad := padMeters / geospatial.MetersPerDegreeLat
	lonPad := padMeters / (geospatial.MetersPerDegreeLat * math.Cos(b.Center().Lat*math.Pi/180))
	return domain.Bounds{
		MinLat: b.MinLat - latPad,
		MaxLat: b.MaxLat + latPad,
		MinLon: b.MinLon - lonPad,
		MaxLon: b.MaxLon + lonPad,
	}
}

func edgesWithin(edges []domain.EdgePoint, p domain.GeoPoint, radiusMeters float64) []domain.EdgePoint {
	var out []domain.EdgePoint
	for _, e := range edges {
		if geospatial.Haversine(p.Lat, p.Lon, e.Location.Lat, e.Location.Lon) <= radiusMeters {
			out = append(out, e)
		}
	}
	return out
}

// pickEdge chooses the highest-confidence candidate, preferring earlier
// entries in the preference list. Candidates of a more preferred type
// always beat candidates of a less preferred type.
func pickEdge(candidates []domain.EdgePoint, preferred []domain.EdgeType) *domain.EdgePoint {
	var best *domain.EdgePoint
	bestRank := len(preferred) + 1

	for i := range candidates {
		c := &candidates[i]
		rank := len(preferred)
		for r, t := range preferred {
			if c.Type == t {
				rank = r
				break
			}
		}
		switch {
		case best == nil, rank < bestRank, rank == bestRank && c.Confidence > best.Confidence:
			best = c
			bestRank = rank
		}
	}
	return best
}

// smoothOnce re-averages each vertex with its neighbours. When edges
// lie directly between the neighbour pair, the vertex is pulled toward
// the confidence-weighted centroid of those edges instead.
func (s *SnappingService) smoothOnce(poly domain.Polygon, edges []domain.EdgePoint, radiusMeters float64) domain.Polygon {
	n := len(poly)
	if n < 3 {
		return poly
	}

	out := make(domain.Polygon, n)
	for i := 0; i < n; i++ {
		prev := poly[(i-1+n)%n]
		v := poly[i]
		next := poly[(i+1)%n]

		var sumLat, sumLon, sumW float64
		for _, e := range edges {
			if geospatial.PointToSegmentMeters(e.Location, prev, next) <= radiusMeters {
				sumLat += e.Location.Lat * e.Confidence
				sumLon += e.Location.Lon * e.Confidence
				sumW += e.Confidence
			}
		}

		if sumW > 0 {
			centroid := domain.GeoPoint{Lat: sumLat / sumW, Lon: sumLon / sumW}
			out[i] = domain.GeoPoint{
				Lat: (v.Lat + centroid.Lat) / 2,
				Lon: (v.Lon + centroid.Lon) / 2,
			}
		} else {
			out[i] = domain.GeoPoint{
				Lat: (prev.Lat + v.Lat + next.Lat) / 3,
				Lon: (prev.Lon + v.Lon + next.Lon) / 3,
			}
		}
	}
	return out
}

// regularize forces near-rectangular 4–5 vertex shapes into exact
// rectangles aligned with the dominant edge direction; other shapes
// just lose collinear vertices.
func regularize(poly domain.Polygon) domain.Polygon {
	n := len(poly)
	if n >= 4 && n <= 5 && rightAngleCount(poly) >= 3 {
		return forceRectangle(poly)
	}
	return stripCollinear(poly)
}

func rightAngleCount(poly domain.Polygon) int {
	n := len(poly)
	count := 0
	for i := 0; i < n; i++ {
		a := poly[(i-1+n)%n]
		b := poly[i]
		c := poly[(i+1)%n]
		if math.Abs(geospatial.InteriorAngleDeg(a, b, c)-90) <= rightAngleToleranceDeg {
			count++
		}
	}
	return count
}

// forceRectangle rebuilds the polygon as an exact rectangle: centroid
// preserved, sides aligned to the dominant (longest) edge direction,
// width and height taken from the vertex extents along that frame.
func forceRectangle(poly domain.Polygon) domain.Polygon {
	centroid := geospatial.Centroid(poly)

	// Dominant direction: bearing of the longest edge.
	n := len(poly)
	var dominant float64
	var longest float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		d := geospatial.Haversine(poly[i].Lat, poly[i].Lon, poly[j].Lat, poly[j].Lon)
		if d > longest {
			longest = d
			dominant = geospatial.BearingDeg(poly[i], poly[j])
		}
	}

	theta := dominant * math.Pi / 180
	ux, uy := math.Sin(theta), math.Cos(theta) // along the dominant edge
	vx, vy := -uy, ux                          // perpendicular

	minU, maxU := math.Inf(1), math.Inf(-1)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, p := range poly {
		x, y := planarOffset(p, centroid)
		u := x*ux + y*uy
		w := x*vx + y*vy
		minU = math.Min(minU, u)
		maxU = math.Max(maxU, u)
		minV = math.Min(minV, w)
		maxV = math.Max(maxV, w)
	}

	halfW := (maxU - minU) / 2
	halfH := (maxV - minV) / 2

	corner := func(su, sv float64) domain.GeoPoint {
		x := su*halfW*ux + sv*halfH*vx
		y := su*halfW*uy + sv*halfH*vy
		return geospatial.OffsetMeters(centroid, y, x)
	}

	return domain.Polygon{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}
}

// planarOffset returns p's east/north offset in meters from ref.
func planarOffset(p, ref domain.GeoPoint) (x, y float64) {
	cosLat := math.Cos(ref.Lat * math.Pi / 180)
	x = (p.Lon - ref.Lon) * cosLat * geospatial.MetersPerDegreeLat
	y = (p.Lat - ref.Lat) * geospatial.MetersPerDegreeLat
	return x, y
}

// stripCollinear drops vertices lying on the line through their
// neighbours, always leaving at least 3.
func stripCollinear(poly domain.Polygon) domain.Polygon {
	out := append(domain.Polygon(nil), poly...)
	for len(out) > 3 {
		removed := false
		for i := 0; i < len(out) && len(out) > 3; i++ {
			n := len(out)
			prev := out[(i-1+n)%n]
			next := out[(i+1)%n]
			if geospatial.PointToSegmentMeters(out[i], prev, next) < collinearToleranceMeters {
				out = append(out[:i], out[i+1:]...)
				removed = true
				i--
			}
		}
		if !removed {
			break
		}
	}
	return out
}

// overallConfidence blends mean vertex confidence, imagery quality, and
// a penalty for large adjustments (20 m mean shift zeroes it out).
func overallConfidence(adjustments []domain.VertexAdjustment, quality domain.ImageQuality) float64 {
	if len(adjustments) == 0 {
		return 0
	}

	var sumConf, sumDist float64
	for _, a := range adjustments {
		sumConf += a.Confidence
		sumDist += a.DistanceMeters
	}
	n := float64(len(adjustments))
	meanConf := sumConf / n
	meanDist := sumDist / n

	qualityMult := 1.0
	switch quality {
	case domain.QualityMedium:
		qualityMult = 0.9
	case domain.QualityLow:
		qualityMult = 0.7
	}

	distPenalty := math.Max(0, 1-meanDist/20)

	return clamp01(meanConf * qualityMult * distPenalty)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
