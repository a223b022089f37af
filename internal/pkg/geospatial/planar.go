// Package geospatial holds the numeric geometry used by the measurement
// pipeline. Two distance models deliberately coexist and must not be
// unified: polygon area uses a flat-earth planar projection (longitude
// scaled by cos of the mean latitude), while snap radii and clustering
// use great-circle haversine distance. Unifying them would change
// numeric outputs that callers depend on.
package geospatial

import (
	"math"

	"github.com/verdantlabs/verdant/internal/core/domain"
)

const (
	// MetersPerDegreeLat is the flat-earth latitude scale. The same
	// constant converts degree-space tolerances to meters in the
	// simplifier, so both share the approximation's error profile.
	MetersPerDegreeLat = 111320.0

	// SqFeetPerSqMeter is the canonical conversion constant. Earlier
	// revisions used 10.764 at some call sites; 10.7639 applies uniformly now.
	SqFeetPerSqMeter = 10.7639

	// SqFeetPerAcre converts the canonical unit to acres for display.
	SqFeetPerAcre = 43560.0

	// FeetPerMeter converts linear measurements for display.
	FeetPerMeter = 3.28084
)

// BoundsOf returns the axis-aligned bounding box of a polygon.
// A polygon with no vertices yields a zero box.
func BoundsOf(p domain.Polygon) domain.Bounds {
	if len(p) == 0 {
		return domain.Bounds{}
	}
	b := domain.Bounds{
		MinLat: p[0].Lat, MaxLat: p[0].Lat,
		MinLon: p[0].Lon, MaxLon: p[0].Lon,
	}
	for _, pt := range p[1:] {
		b.MinLat = math.Min(b.MinLat, pt.Lat)
		b.MaxLat = math.Max(b.MaxLat, pt.Lat)
		b.MinLon = math.Min(b.MinLon, pt.Lon)
		b.MaxLon = math.Max(b.MaxLon, pt.Lon)
	}
	return b
}

// Centroid returns the arithmetic mean of the polygon's vertices.
func Centroid(p domain.Polygon) domain.GeoPoint {
	if len(p) == 0 {
		return domain.GeoPoint{}
	}
	var lat, lon float64
	for _, pt := range p {
		lat += pt.Lat
		lon += pt.Lon
	}
	n := float64(len(p))
	return domain.GeoPoint{Lat: lat / n, Lon: lon / n}
}

// meanLat returns the mean latitude, the reference line for the
// flat-earth projection.
func meanLat(p domain.Polygon) float64 {
	var sum float64
	for _, pt := range p {
		sum += pt.Lat
	}
	return sum / float64(len(p))
}

// PolygonAreaSqMeters computes the enclosed area with the Shoelace
// formula on coordinates projected to local meters. Longitude is scaled
// by cos(meanLat) to account for meridian convergence. Valid only at
// property-lot scale: for squares under ~100 m the error against a true
// geodesic area stays below 1%, and it grows with polygon size and with
// distance from the mean-latitude reference line.
//
// The absolute value is taken, so winding direction does not affect the
// result. Degenerate polygons (<3 vertices) measure 0. Self-intersecting
// polygons are not detected and produce meaningless values.
func PolygonAreaSqMeters(p domain.Polygon) float64 {
	if !p.Valid() {
		return 0
	}
	cosLat := math.Cos(meanLat(p) * math.Pi / 180)

	var sum float64
	n := len(p)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi := p[i].Lon * cosLat * MetersPerDegreeLat
		yi := p[i].Lat * MetersPerDegreeLat
		xj := p[j].Lon * cosLat * MetersPerDegreeLat
		yj := p[j].Lat * MetersPerDegreeLat
		sum += xi*yj - xj*yi
	}
	return math.Abs(sum) / 2
}

// PolygonAreaSqFeet converts PolygonAreaSqMeters to the canonical unit.
func PolygonAreaSqFeet(p domain.Polygon) float64 {
	return PolygonAreaSqMeters(p) * SqFeetPerSqMeter
}

// PerimeterMeters sums great-circle segment lengths around the closed
// loop, including the implicit closing edge.
func PerimeterMeters(p domain.Polygon) float64 {
	if len(p) < 2 {
		return 0
	}
	var total float64
	n := len(p)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		total += Haversine(p[i].Lat, p[i].Lon, p[j].Lat, p[j].Lon)
	}
	return total
}

// toPlanar projects a point into a local planar frame (meters east,
// meters north) anchored at ref.
func toPlanar(pt, ref domain.GeoPoint) (x, y float64) {
	cosLat := math.Cos(ref.Lat * math.Pi / 180)
	x = (pt.Lon - ref.Lon) * cosLat * MetersPerDegreeLat
	y = (pt.Lat - ref.Lat) * MetersPerDegreeLat
	return x, y
}

// fromPlanar is the inverse of toPlanar.
func fromPlanar(x, y float64, ref domain.GeoPoint) domain.GeoPoint {
	cosLat := math.Cos(ref.Lat * math.Pi / 180)
	return domain.GeoPoint{
		Lat: ref.Lat + y/MetersPerDegreeLat,
		Lon: ref.Lon + x/(cosLat*MetersPerDegreeLat),
	}
}

// PointToSegmentMeters returns the perpendicular distance from pt to
// the segment a-b, computed in the local planar frame. Shares the
// flat-earth approximation with the area formula.
func PointToSegmentMeters(pt, a, b domain.GeoPoint) float64 {
	px, py := toPlanar(pt, a)
	bx, by := toPlanar(b, a)

	segLenSq := bx*bx + by*by
	if segLenSq == 0 {
		return math.Hypot(px, py)
	}

	t := (px*bx + py*by) / segLenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-t*bx, py-t*by)
}

// ProjectOntoLine projects pt onto the infinite line through `through`
// with the given compass direction in degrees. Used by angle-preserving
// snapping, which slides a vertex onto an edge instead of jumping to it.
func ProjectOntoLine(pt, through domain.GeoPoint, directionDeg float64) domain.GeoPoint {
	// Compass degrees: 0 = north, 90 = east.
	theta := directionDeg * math.Pi / 180
	dx, dy := math.Sin(theta), math.Cos(theta)

	px, py := toPlanar(pt, through)
	t := px*dx + py*dy
	return fromPlanar(t*dx, t*dy, through)
}

// OffsetMeters shifts a point by metersNorth/metersEast in the local
// planar frame.
func OffsetMeters(pt domain.GeoPoint, metersNorth, metersEast float64) domain.GeoPoint {
	x, y := metersEast, metersNorth
	return fromPlanar(x, y, pt)
}

// InteriorAngleDeg returns the interior angle at vertex b of the path
// a-b-c, in degrees.
func InteriorAngleDeg(a, b, c domain.GeoPoint) float64 {
	ax, ay := toPlanar(a, b)
	cx, cy := toPlanar(c, b)

	la := math.Hypot(ax, ay)
	lc := math.Hypot(cx, cy)
	if la == 0 || lc == 0 {
		return 0
	}

	cos := (ax*cx + ay*cy) / (la * lc)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// BearingDeg returns the compass bearing from a to b in degrees
// [0, 360), computed in the planar frame.
func BearingDeg(a, b domain.GeoPoint) float64 {
	dx, dy := toPlanar(b, a)
	deg := math.Atan2(dx, dy) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// CrossTrack returns the z component of the cross product of b-a and
// c-b in the planar frame. Near zero means a, b, c are collinear.
func CrossTrack(a, b, c domain.GeoPoint) float64 {
	bax, bay := toPlanar(b, a)
	cax, cay := toPlanar(c, a)
	return bax*(cay-bay) - bay*(cax-bax)
}
