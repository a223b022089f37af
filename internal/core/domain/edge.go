package domain

// EdgeType classifies a detected boundary edge.
type EdgeType string

const (
	EdgePropertyLine EdgeType = "property_line"
	EdgeFence        EdgeType = "fence"
	EdgeDriveway     EdgeType = "driveway"
	EdgeBuilding     EdgeType = "building"
	EdgeVegetation   EdgeType = "vegetation"
)

// ImageQuality grades the imagery an edge map was derived from.
type ImageQuality string

const (
	QualityHigh   ImageQuality = "high"
	QualityMedium ImageQuality = "medium"
	QualityLow    ImageQuality = "low"
)

// EdgePoint is a single detected boundary edge: a location, a
// confidence score in [0,1], a direction in degrees, and a
// classification. Transient — produced by an imagery detector and
// consumed once by the snapping routine.
type EdgePoint struct {
	Location   GeoPoint `json:"location"`
	Confidence float64  `json:"confidence"`
	Direction  float64  `json:"direction"`
	Type       EdgeType `json:"type"`
}

// EdgeMap is the set of edges detected within a bounding box.
type EdgeMap struct {
	Points  []EdgePoint  `json:"points"`
	Quality ImageQuality `json:"quality"`
}

// SmoothingLevel controls how many smoothing passes snapping applies.
type SmoothingLevel string

const (
	SmoothingNone     SmoothingLevel = "none"
	SmoothingLight    SmoothingLevel = "light"
	SmoothingModerate SmoothingLevel = "moderate"
	SmoothingHeavy    SmoothingLevel = "heavy"
)

// Passes returns the number of smoothing iterations for the level.
func (s SmoothingLevel) Passes() int {
	switch s {
	case SmoothingLight:
		return 1
	case SmoothingModerate:
		return 2
	case SmoothingHeavy:
		return 3
	default:
		return 0
	}
}

// SnapOptions tunes the boundary snapping routine.
type SnapOptions struct {
	SnapRadiusMeters    float64        `json:"snap_radius_meters"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	PreferredEdgeTypes  []EdgeType     `json:"preferred_edge_types"`
	SmoothingLevel      SmoothingLevel `json:"smoothing_level"`
	PreserveAngles      bool           `json:"preserve_angles"`
}

// DefaultSnapOptions returns the documented defaults.
func DefaultSnapOptions() SnapOptions {
	return SnapOptions{
		SnapRadiusMeters:    5,
		ConfidenceThreshold: 0.75,
		PreferredEdgeTypes:  []EdgeType{EdgePropertyLine, EdgeFence},
		SmoothingLevel:      SmoothingLight,
	}
}

// VertexAdjustment records what happened to one input vertex during
// snapping. Untouched vertices get a zero-distance, zero-confidence
// entry so the report always has one row per vertex.
type VertexAdjustment struct {
	Index          int      `json:"index"`
	Original       GeoPoint `json:"original"`
	Adjusted       GeoPoint `json:"adjusted"`
	DistanceMeters float64  `json:"distance_meters"`
	Confidence     float64  `json:"confidence"`
	EdgeType       EdgeType `json:"edge_type,omitempty"`
}

// SnapResult is the refined polygon plus a per-vertex audit trail and
// an overall confidence in [0,1].
type SnapResult struct {
	Polygon     Polygon            `json:"polygon"`
	Adjustments []VertexAdjustment `json:"adjustments"`
	Confidence  float64            `json:"confidence"`
}

// DetectionResult is a candidate property boundary found by clustering
// detected edges around a search center.
type DetectionResult struct {
	Polygon    Polygon `json:"polygon"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback"` // true when the default square was used
}
