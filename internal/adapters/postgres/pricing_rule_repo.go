package postgres

import (
	"context"

	"github.com/verdantlabs/verdant/internal/core/domain"
)

// PricingRuleRepo implements ports.PricingRuleRepository with pgx.
// Conditions and pricing adjustments are stored as JSONB; pgx marshals
// the structs directly.
type PricingRuleRepo struct {
	db *DB
}

// NewPricingRuleRepo creates a new PricingRuleRepo.
func NewPricingRuleRepo(db *DB) *PricingRuleRepo {
	return &PricingRuleRepo{db: db}
}

// Create inserts a rule and fills in its generated ID and timestamp.
func (r *PricingRuleRepo) Create(ctx context.Context, rule *domain.PricingRule) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO pricing_rules (business_id, name, description, rule_type, conditions, pricing, priority, stackable, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, rule.BusinessID, rule.Name, rule.Description, rule.Type,
		rule.Conditions, rule.Pricing, rule.Priority, rule.Stackable, rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt)
}

// GetByID returns a rule by UUID.
func (r *PricingRuleRepo) GetByID(ctx context.Context, id string) (*domain.PricingRule, error) {
	var rule domain.PricingRule
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, business_id, name, COALESCE(description, ''), rule_type,
		       conditions, pricing, priority, stackable, is_active, applied_count, created_at
		FROM pricing_rules WHERE id = $1
	`, id).Scan(
		&rule.ID, &rule.BusinessID, &rule.Name, &rule.Description, &rule.Type,
		&rule.Conditions, &rule.Pricing, &rule.Priority, &rule.Stackable,
		&rule.IsActive, &rule.AppliedCount, &rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListActive returns a business's active rules in evaluation order:
// priority descending, ties broken oldest first.
func (r *PricingRuleRepo) ListActive(ctx context.Context, businessID string) ([]domain.PricingRule, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, business_id, name, COALESCE(description, ''), rule_type,
		       conditions, pricing, priority, stackable, is_active, applied_count, created_at
		FROM pricing_rules
		WHERE business_id = $1 AND is_active
		ORDER BY priority DESC, created_at ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// List returns a business's rules, optionally restricted to active ones.
func (r *PricingRuleRepo) List(ctx context.Context, businessID string, activeOnly bool) ([]domain.PricingRule, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, business_id, name, COALESCE(description, ''), rule_type,
		       conditions, pricing, priority, stackable, is_active, applied_count, created_at
		FROM pricing_rules
		WHERE business_id = $1 AND (NOT $2 OR is_active)
		ORDER BY priority DESC, created_at ASC
	`, businessID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

// SetActive toggles a rule without deleting its audit history.
func (r *PricingRuleRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE pricing_rules SET is_active = $2 WHERE id = $1`, id, active)
	return err
}

// IncrementAppliedCount bumps the usage counter. At-least-once; callers
// treat failures as non-fatal.
func (r *PricingRuleRepo) IncrementAppliedCount(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE pricing_rules SET applied_count = applied_count + 1 WHERE id = $1`, id)
	return err
}

type ruleRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRules(rows ruleRows) ([]domain.PricingRule, error) {
	var rules []domain.PricingRule
	for rows.Next() {
		var rule domain.PricingRule
		if err := rows.Scan(
			&rule.ID, &rule.BusinessID, &rule.Name, &rule.Description, &rule.Type,
			&rule.Conditions, &rule.Pricing, &rule.Priority, &rule.Stackable,
			&rule.IsActive, &rule.AppliedCount, &rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
