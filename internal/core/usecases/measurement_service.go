package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/verdantlabs/verdant/internal/core/domain"
	"github.com/verdantlabs/verdant/internal/core/ports"
	"github.com/verdantlabs/verdant/internal/pkg/geospatial"
)

// MeasurementService turns a property polygon into a numeric
// measurement record: total area, per-sub-region areas, and perimeter,
// all in the canonical square-foot unit.
type MeasurementService struct {
	detector     ports.BoundaryDetector
	measurements ports.MeasurementRepository
	cache        ports.CacheService
	events       ports.EventPublisher
}

// NewMeasurementService creates a new MeasurementService. The
// repository, cache, and publisher may each be nil; measuring then
// skips the corresponding side effect.
func NewMeasurementService(detector ports.BoundaryDetector, measurements ports.MeasurementRepository, cache ports.CacheService, events ports.EventPublisher) *MeasurementService {
	return &MeasurementService{
		detector:     detector,
		measurements: measurements,
		cache:        cache,
		events:       events,
	}
}

// Measure computes the measurement record for a property polygon.
// Degenerate polygons (<3 vertices) yield a zero-valued record rather
// than an error — a partial drawing is a normal editor state.
func (s *MeasurementService) Measure(ctx context.Context, businessID string, property domain.Polygon) (*domain.MeasurementResult, error) {
	if !property.Valid() {
		return &domain.MeasurementResult{BusinessID: businessID}, nil
	}

	// Recomputing a previously seen polygon is common while a user
	// fiddles with the editor, so results are cached by polygon digest.
	cacheKey := fmt.Sprintf("measurements:poly:%s", polygonDigest(property))
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var m domain.MeasurementResult
			if err := json.Unmarshal(data, &m); err == nil {
				return &m, nil
			}
		}
	}

	center := geospatial.BoundsOf(property).Center()
	boundaries, err := s.detector.DetectBoundaries(ctx, property, center)
	if err != nil {
		// Degrade to an outer-boundary-only measurement.
		slog.Warn("boundary detection failed, measuring outer polygon only",
			"error", err, "business_id", businessID)
		boundaries = domain.PropertyBoundaries{Property: property}
	}

	m := s.calculateMeasurements(boundaries)
	m.BusinessID = businessID

	if s.measurements != nil {
		if err := s.measurements.Insert(ctx, m); err != nil {
			return nil, fmt.Errorf("persist measurement: %w", err)
		}
	}

	if s.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	if s.events != nil {
		if err := s.events.PublishMeasurementCompleted(ctx, m); err != nil {
			slog.Warn("measurement event publish failed", "error", err)
		}
	}

	return m, nil
}

// calculateMeasurements runs the area formula over each named boundary
// polygon. Lawn sub-regions sum into a lawn total; "other" is the
// non-negative residual of total minus every named region, so
// overlapping sub-regions silently absorb into it instead of erroring.
func (s *MeasurementService) calculateMeasurements(b domain.PropertyBoundaries) *domain.MeasurementResult {
	m := &domain.MeasurementResult{
		TotalArea: roundSqFt(geospatial.PolygonAreaSqFeet(b.Property)),
		Lawn: domain.LawnAreas{
			FrontYard: roundSqFt(geospatial.PolygonAreaSqFeet(b.Lawn.FrontYard)),
			BackYard:  roundSqFt(geospatial.PolygonAreaSqFeet(b.Lawn.BackYard)),
			SideYard:  roundSqFt(geospatial.PolygonAreaSqFeet(b.Lawn.SideYard)),
		},
		Driveway:  roundSqFt(geospatial.PolygonAreaSqFeet(b.Driveway)),
		Sidewalk:  roundSqFt(geospatial.PolygonAreaSqFeet(b.Sidewalk)),
		Building:  roundSqFt(geospatial.PolygonAreaSqFeet(b.Building)),
		Perimeter: roundSqFt(geospatial.PerimeterMeters(b.Property) * geospatial.FeetPerMeter),
	}
	m.Lawn.Total = m.Lawn.FrontYard + m.Lawn.BackYard + m.Lawn.SideYard

	other := m.TotalArea - m.Lawn.Total - m.Driveway - m.Sidewalk - m.Building
	if other < 0 {
		other = 0
	}
	m.Other = other

	return m
}

// GetByID returns a persisted measurement.
func (s *MeasurementService) GetByID(ctx context.Context, id string) (*domain.MeasurementResult, error) {
	if s.measurements == nil {
		return nil, fmt.Errorf("measurement store not configured")
	}
	return s.measurements.GetByID(ctx, id)
}

// ListByBusiness returns a business's persisted measurements, newest first.
func (s *MeasurementService) ListByBusiness(ctx context.Context, businessID string, limit, offset int) ([]domain.MeasurementResult, int, error) {
	if s.measurements == nil {
		return nil, 0, fmt.Errorf("measurement store not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.measurements.ListByBusiness(ctx, businessID, limit, offset)
}

func roundSqFt(v float64) int {
	return int(math.Round(v))
}

// polygonDigest produces a stable cache key for a vertex sequence.
func polygonDigest(p domain.Polygon) string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, pt := range p {
		binary.BigEndian.PutUint64(buf, math.Float64bits(pt.Lat))
		h.Write(buf)
		binary.BigEndian.PutUint64(buf, math.Float64bits(pt.Lon))
		h.Write(buf)
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:16])
}
