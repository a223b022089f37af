package ports

import (
	"context"

	"github.com/verdantlabs/verdant/internal/core/domain"
)

// BoundaryDetector derives named sub-region polygons from an outer lot
// boundary. The default implementation slices the bounding box with
// proportional bands; a vision-backed implementation can be swapped in
// without touching the measurement pipeline.
type BoundaryDetector interface {
	DetectBoundaries(ctx context.Context, property domain.Polygon, center domain.GeoPoint) (domain.PropertyBoundaries, error)
}

// EdgeDetector produces an edge map for a bounding box from imagery
// analysis. External collaborator — may be fully simulated.
type EdgeDetector interface {
	DetectEdges(ctx context.Context, bounds domain.Bounds) (*domain.EdgeMap, error)
}

// EventPublisher publishes domain events to a message broker. All
// publishes are fire-and-forget from the engines' point of view.
type EventPublisher interface {
	PublishQuotePriced(ctx context.Context, result *domain.PricingResult, businessID string) error
	PublishRuleApplied(ctx context.Context, app *domain.RuleApplication) error
	PublishMeasurementCompleted(ctx context.Context, m *domain.MeasurementResult) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRuleApplications(ctx context.Context, handler func(ctx context.Context, app *domain.RuleApplication) error) error
	SubscribeQuotePriced(ctx context.Context, handler func(ctx context.Context, businessID string, result *domain.PricingResult) error) error
	SubscribeMeasurements(ctx context.Context, handler func(ctx context.Context, m *domain.MeasurementResult) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
