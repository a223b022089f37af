package ports

import (
	"context"

	"github.com/verdantlabs/verdant/internal/core/domain"
)

// PricingRuleRepository persists pricing rules.
type PricingRuleRepository interface {
	Create(ctx context.Context, rule *domain.PricingRule) error
	GetByID(ctx context.Context, id string) (*domain.PricingRule, error)
	// ListActive returns a business's active rules ordered by priority
	// descending, ties broken by creation time ascending (oldest first).
	ListActive(ctx context.Context, businessID string) ([]domain.PricingRule, error)
	List(ctx context.Context, businessID string, activeOnly bool) ([]domain.PricingRule, error)
	SetActive(ctx context.Context, id string, active bool) error
	// IncrementAppliedCount bumps the usage counter. At-least-once,
	// eventually consistent — lost updates under concurrency are tolerated.
	IncrementAppliedCount(ctx context.Context, id string) error
}

// MeasurementRepository persists computed measurement records.
type MeasurementRepository interface {
	Insert(ctx context.Context, m *domain.MeasurementResult) error
	GetByID(ctx context.Context, id string) (*domain.MeasurementResult, error)
	ListByBusiness(ctx context.Context, businessID string, limit, offset int) ([]domain.MeasurementResult, int, error)
}

// RuleApplicationRepository persists the rule-application audit trail.
type RuleApplicationRepository interface {
	InsertBatch(ctx context.Context, apps []domain.RuleApplication) error
	ListByRule(ctx context.Context, ruleID string, limit int) ([]domain.RuleApplication, error)
}
