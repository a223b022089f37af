package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/core/usecases"
	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
)

// --- Mock EdgeDetector ---

type mockEdgeDetector struct {
	detectFn func(ctx context.Context, bounds domain.Bounds) (*domain.EdgeMap, error)
	calls    int
}

func (m *mockEdgeDetector) DetectEdges(ctx context.Context, bounds domain.Bounds) (*domain.EdgeMap, error) {
	m.calls++
	if m.detectFn != nil {
		return m.detectFn(ctx, bounds)
	}
	return &domain.EdgeMap{Quality: domain.QualityHigh}, nil
}

func staticEdges(points ...domain.EdgePoint) *mockEdgeDetector {
	return &mockEdgeDetector{
		detectFn: func(ctx context.Context, bounds domain.Bounds) (*domain.EdgeMap, error) {
			return &domain.EdgeMap{Points: points, Quality: domain.QualityHigh}, nil
		},
	}
}

func noSmoothing() domain.SnapOptions {
	opts := domain.DefaultSnapOptions()
	opts.SmoothingLevel = domain.SmoothingNone
	return opts
}

// --- Tests ---

func TestSnap_MovesVertexToConfidentEdge(t *testing.T) {
	poly := lotSquare(30)
	// One strong property-line edge 3 m north of the first vertex.
	edge := domain.EdgePoint{
		Location:   geospatial.OffsetMeters(poly[0], 3, 0),
		Confidence: 0.9,
		Type:       domain.EdgePropertyLine,
	}
	svc := usecases.NewSnappingService(staticEdges(edge))

	res, err := svc.SnapToBoundaries(context.Background(), poly, noSmoothing())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Adjustments) != len(poly) {
		t.Fatalf("expected one adjustment per vertex, got %d", len(res.Adjustments))
	}
	adj := res.Adjustments[0]
	if adj.DistanceMeters < 2.5 || adj.DistanceMeters > 3.5 {
		t.Errorf("vertex 0 moved %.2f m, want ~3", adj.DistanceMeters)
	}
	if adj.Confidence != 0.9 || adj.EdgeType != domain.EdgePropertyLine {
		t.Errorf("adjustment = %+v, want property_line at 0.9", adj)
	}
	for _, a := range res.Adjustments[1:] {
		if a.DistanceMeters != 0 {
			t.Errorf("vertex %d should be untouched, moved %.2f m", a.Index, a.DistanceMeters)
		}
	}
	if res.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", res.Confidence)
	}
}

func TestSnap_IgnoresLowConfidenceEdges(t *testing.T) {
	poly := lotSquare(30)
	edge := domain.EdgePoint{
		Location:   geospatial.OffsetMeters(poly[0], 3, 0),
		Confidence: 0.5, // below the 0.75 default threshold
		Type:       domain.EdgePropertyLine,
	}
	svc := usecases.NewSnappingService(staticEdges(edge))

	res, err := svc.SnapToBoundaries(context.Background(), poly, noSmoothing())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, a := range res.Adjustments {
		if a.DistanceMeters != 0 || a.Confidence != 0 {
			t.Errorf("no vertex should snap below threshold: %+v", a)
		}
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 when nothing snapped", res.Confidence)
	}
}

func TestSnap_PreferredTypeBeatsHigherConfidence(t *testing.T) {
	poly := lotSquare(30)
	line := domain.EdgePoint{
		Location:   geospatial.OffsetMeters(poly[0], 3, 0),
		Confidence: 0.8,
		Type:       domain.EdgePropertyLine,
	}
	fence := domain.EdgePoint{
		Location:   geospatial.OffsetMeters(poly[0], 0, 4),
		Confidence: 0.95,
		Type:       domain.EdgeFence,
	}
	svc := usecases.NewSnappingService(staticEdges(fence, line))

	res, err := svc.SnapToBoundaries(context.Background(), poly, noSmoothing())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	adj := res.Adjustments[0]
	if adj.EdgeType != domain.EdgePropertyLine {
		t.Errorf("snapped to %s, want property_line despite the fence's higher confidence", adj.EdgeType)
	}
}

func TestSnap_DegeneratePolygonPassesThrough(t *testing.T) {
	det := &mockEdgeDetector{}
	svc := usecases.NewSnappingService(det)

	poly := domain.Polygon{{Lat: 45, Lon: -75}, {Lat: 45.001, Lon: -75}}
	res, err := svc.SnapToBoundaries(context.Background(), poly, domain.SnapOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Polygon) != 2 || res.Confidence != 0 {
		t.Errorf("degenerate input should pass through untouched: %+v", res)
	}
	if det.calls != 0 {
		t.Errorf("detector should not run on degenerate input")
	}
}

func TestSnap_DetectorFailureSurfaces(t *testing.T) {
	det := &mockEdgeDetector{
		detectFn: func(ctx context.Context, bounds domain.Bounds) (*domain.EdgeMap, error) {
			return nil, errors.New("imagery provider down")
		},
	}
	svc := usecases.NewSnappingService(det)

	if _, err := svc.SnapToBoundaries(context.Background(), lotSquare(30), noSmoothing()); err == nil {
		t.Fatal("expected detector error to surface")
	}
}

func TestSnap_RegularizesNearRectangle(t *testing.T) {
	// A square with one corner nudged ~1.5 m inward. No edges, no
	// smoothing: regularization alone should restore right angles.
	poly := lotSquare(30)
	poly[2] = geospatial.OffsetMeters(poly[2], -1.5, -1.5)

	svc := usecases.NewSnappingService(staticEdges())
	res, err := svc.SnapToBoundaries(context.Background(), poly, noSmoothing())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := res.Polygon
	if len(got) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(got))
	}
	n := len(got)
	for i := 0; i < n; i++ {
		angle := geospatial.InteriorAngleDeg(got[(i-1+n)%n], got[i], got[(i+1)%n])
		if math.Abs(angle-90) > 1 {
			t.Errorf("angle at vertex %d = %.2f°, want 90", i, angle)
		}
	}
}

func TestAutoDetect_FallbackSquareWhenNoEdges(t *testing.T) {
	svc := usecases.NewSnappingService(staticEdges())
	center := domain.GeoPoint{Lat: 45, Lon: -75}

	res, err := svc.AutoDetectBoundaries(context.Background(), center, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Fallback {
		t.Fatal("expected fallback result")
	}
	if res.Confidence != 0.25 {
		t.Errorf("fallback confidence = %v, want 0.25", res.Confidence)
	}
	// Default square is 50 m on a side.
	area := geospatial.PolygonAreaSqMeters(res.Polygon)
	if area < 2400 || area > 2600 {
		t.Errorf("fallback area = %.0f m², want ~2500", area)
	}
}

func TestAutoDetect_FindsLoopFromClusteredEdges(t *testing.T) {
	center := domain.GeoPoint{Lat: 45, Lon: -75}

	// Eight edges around an 18 m square: corners plus midpoints, 9 m
	// apart, well inside the 10 m clustering linkage.
	offsets := [][2]float64{
		{-9, -9}, {-9, 0}, {-9, 9}, {0, 9},
		{9, 9}, {9, 0}, {9, -9}, {0, -9},
	}
	edges := make([]domain.EdgePoint, 0, len(offsets))
	for _, o := range offsets {
		edges = append(edges, domain.EdgePoint{
			Location:   geospatial.OffsetMeters(center, o[0], o[1]),
			Confidence: 0.9,
			Type:       domain.EdgePropertyLine,
		})
	}

	svc := usecases.NewSnappingService(staticEdges(edges...))
	res, err := svc.AutoDetectBoundaries(context.Background(), center, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fallback {
		t.Fatal("expected a detected loop, got the fallback square")
	}
	if len(res.Polygon) < 4 {
		t.Errorf("loop has %d vertices, want >= 4", len(res.Polygon))
	}
	if res.Confidence < 0.3 {
		t.Errorf("confidence = %v, want >= 0.3", res.Confidence)
	}
}
