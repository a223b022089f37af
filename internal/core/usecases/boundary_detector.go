package usecases

import (
	"context"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
)

// SplitFractions parameterizes the proportional boundary heuristic.
// Every sub-region is a fractional band of the lot's bounding box; the
// bands are defined independently and may overlap — the measurement
// step absorbs any double counting into the "other" residual.
type SplitFractions struct {
	FrontYardLatBand float64 // bottom fraction of the latitude range
	BackYardLatBand  float64 // top fraction of the latitude range
	SideYardLonBand  float64 // right fraction of the longitude range, middle latitude band
	DrivewayLonBand  float64 // left fraction of the longitude range
	DrivewayLatBand  float64 // restricted to this front fraction of the latitude range
	BuildingFraction float64 // centered box, this fraction of each span
	SidewalkLatBand  float64 // bottom strip across the full longitude range
}

// DefaultSplitFractions are the documented production splits.
func DefaultSplitFractions() SplitFractions {
	return SplitFractions{
		FrontYardLatBand: 0.40,
		BackYardLatBand:  0.35,
		SideYardLonBand:  0.20,
		DrivewayLonBand:  0.15,
		DrivewayLatBand:  0.30,
		BuildingFraction: 0.30,
		SidewalkLatBand:  0.08,
	}
}

// ProportionalDetector implements ports.BoundaryDetector by slicing the
// property's bounding box into fixed fractional bands. It is a
// deterministic heuristic, not a vision result — it never looks at
// ground imagery. A detector backed by real imagery can replace it
// behind the same port.
type ProportionalDetector struct {
	splits SplitFractions
}

// NewProportionalDetector creates a detector with the given splits.
func NewProportionalDetector(splits SplitFractions) *ProportionalDetector {
	return &ProportionalDetector{splits: splits}
}

// DetectBoundaries derives the named sub-region polygons. A degenerate
// property polygon yields empty sub-regions rather than an error.
func (d *ProportionalDetector) DetectBoundaries(ctx context.Context, property domain.Polygon, center domain.GeoPoint) (domain.PropertyBoundaries, error) {
	out := domain.PropertyBoundaries{Property: property}
	if !property.Valid() {
		return out, nil
	}

	b := geospatial.BoundsOf(property)
	latSpan := b.LatSpan()
	lonSpan := b.LonSpan()
	s := d.splits

	// Front yard: bottom band, full width.
	out.Lawn.FrontYard = rect(
		b.MinLat, b.MinLat+latSpan*s.FrontYardLatBand,
		b.MinLon, b.MaxLon,
	)

	// Back yard: top band, full width.
	out.Lawn.BackYard = rect(
		b.MaxLat-latSpan*s.BackYardLatBand, b.MaxLat,
		b.MinLon, b.MaxLon,
	)

	// Side yard: right edge of the middle band.
	out.Lawn.SideYard = rect(
		b.MinLat+latSpan*s.FrontYardLatBand, b.MaxLat-latSpan*s.BackYardLatBand,
		b.MaxLon-lonSpan*s.SideYardLonBand, b.MaxLon,
	)

	// Driveway: left strip within the front band.
	out.Driveway = rect(
		b.MinLat, b.MinLat+latSpan*s.DrivewayLatBand,
		b.MinLon, b.MinLon+lonSpan*s.DrivewayLonBand,
	)

	// Building: box centered on the provided center (or the bounding
	// box midpoint when no center is given).
	c := center
	if c == (domain.GeoPoint{}) {
		c = b.Center()
	}
	halfLat := latSpan * s.BuildingFraction / 2
	halfLon := lonSpan * s.BuildingFraction / 2
	out.Building = rect(c.Lat-halfLat, c.Lat+halfLat, c.Lon-halfLon, c.Lon+halfLon)

	// Sidewalk: thin strip along the bottom edge.
	out.Sidewalk = rect(
		b.MinLat, b.MinLat+latSpan*s.SidewalkLatBand,
		b.MinLon, b.MaxLon,
	)

	return out, nil
}

// rect builds a counter-clockwise 4-vertex polygon.
func rect(minLat, maxLat, minLon, maxLon float64) domain.Polygon {
	return domain.Polygon{
		{Lat: minLat, Lon: minLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: maxLat, Lon: minLon},
	}
}
