package domain

import "time"

// PropertyBoundaries is the named bundle of sub-region polygons derived
// from an outer lot boundary. The sub-regions are independently defined
// slices of the lot's bounding box — overlap between them is possible
// and is absorbed into the "other" residual when measuring.
type PropertyBoundaries struct {
	Property Polygon       `json:"property"`
	Lawn     LawnPolygons  `json:"lawn"`
	Driveway Polygon       `json:"driveway"`
	Building Polygon       `json:"building"`
	Sidewalk Polygon       `json:"sidewalk"`
}

// LawnPolygons groups the lawn sub-regions.
type LawnPolygons struct {
	FrontYard Polygon `json:"front_yard"`
	BackYard  Polygon `json:"back_yard"`
	SideYard  Polygon `json:"side_yard"`
}

// LawnAreas holds per-yard areas in whole square feet.
type LawnAreas struct {
	FrontYard int `json:"front_yard"`
	BackYard  int `json:"back_yard"`
	SideYard  int `json:"side_yard"`
	Total     int `json:"total"`
}

// MeasurementResult is the numeric record derived from a property
// polygon. Areas are whole square feet (the canonical unit — square
// meters and acres are display-only conversions), perimeter is feet.
// Immutable once computed.
type MeasurementResult struct {
	ID         string    `json:"id,omitempty"`
	BusinessID string    `json:"business_id,omitempty"`
	TotalArea  int       `json:"total_area"`
	Lawn       LawnAreas `json:"lawn"`
	Driveway   int       `json:"driveway"`
	Sidewalk   int       `json:"sidewalk"`
	Building   int       `json:"building"`
	Other      int       `json:"other"`
	Perimeter  int       `json:"perimeter"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}
