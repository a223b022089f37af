package geospatial_test

import (
	"testing"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
)

func TestDouglasPeucker_DropsNearCollinearPoints(t *testing.T) {
	a := domain.GeoPoint{Lat: 45.0, Lon: -79.5}
	line := domain.Polygon{
		a,
		geospatial.OffsetMeters(a, 0.2, 25), // 20 cm off the chord
		geospatial.OffsetMeters(a, 0, 50),
		geospatial.OffsetMeters(a, -0.1, 75),
		geospatial.OffsetMeters(a, 0, 100),
	}

	got := geospatial.DouglasPeucker(line, 1.0)
	if len(got) != 2 {
		t.Errorf("expected only endpoints to survive, got %d points", len(got))
	}
}

func TestDouglasPeucker_KeepsSignificantDeviation(t *testing.T) {
	a := domain.GeoPoint{Lat: 45.0, Lon: -79.5}
	spike := geospatial.OffsetMeters(a, 10, 50)
	line := domain.Polygon{a, spike, geospatial.OffsetMeters(a, 0, 100)}

	got := geospatial.DouglasPeucker(line, 1.0)
	if len(got) != 3 {
		t.Fatalf("expected the 10 m spike to survive, got %d points", len(got))
	}
	if got[1] != spike {
		t.Errorf("spike vertex lost: %+v", got[1])
	}
}

func TestDouglasPeucker_SmallInputsUntouched(t *testing.T) {
	p := domain.Polygon{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}
	if got := geospatial.DouglasPeucker(p, 5); len(got) != 2 {
		t.Errorf("two-point polyline must pass through unchanged")
	}
}
