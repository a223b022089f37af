package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Polygon is an ordered sequence of coordinates forming an implicitly
// closed loop (the last vertex connects back to the first). A polygon
// with fewer than 3 vertices is degenerate; geometry routines return
// zero-valued results for it rather than erroring, because a partial
// in-progress drawing is a normal input from the map editor.
type Polygon []GeoPoint

// Valid reports whether the polygon has enough vertices to enclose area.
func (p Polygon) Valid() bool {
	return len(p) >= 3
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}

// LatSpan returns the latitude extent in degrees.
func (b Bounds) LatSpan() float64 { return b.MaxLat - b.MinLat }

// LonSpan returns the longitude extent in degrees.
func (b Bounds) LonSpan() float64 { return b.MaxLon - b.MinLon }
