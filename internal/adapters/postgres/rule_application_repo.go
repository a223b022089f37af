package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/verdantlabs/verdant/internal/core/domain"
)

// RuleApplicationRepo implements ports.RuleApplicationRepository with
// pgx. Rows arrive in batches from the audit worker.
type RuleApplicationRepo struct {
	db *DB
}

// NewRuleApplicationRepo creates a new RuleApplicationRepo.
func NewRuleApplicationRepo(db *DB) *RuleApplicationRepo {
	return &RuleApplicationRepo{db: db}
}

// InsertBatch persists many audit rows using pgx.Batch.
func (r *RuleApplicationRepo) InsertBatch(ctx context.Context, apps []domain.RuleApplication) error {
	if len(apps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range apps {
		batch.Queue(`
			INSERT INTO rule_applications (rule_id, business_id, rule_type, adjustment, applied_at)
			VALUES ($1, $2, $3, $4, $5)
		`, a.RuleID, a.BusinessID, a.RuleType, a.Adjustment, a.AppliedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range apps {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// ListByRule returns the most recent applications of a rule.
func (r *RuleApplicationRepo) ListByRule(ctx context.Context, ruleID string, limit int) ([]domain.RuleApplication, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, rule_id, business_id, rule_type, adjustment, applied_at
		FROM rule_applications
		WHERE rule_id = $1
		ORDER BY applied_at DESC
		LIMIT $2
	`, ruleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.RuleApplication
	for rows.Next() {
		var a domain.RuleApplication
		if err := rows.Scan(&a.ID, &a.RuleID, &a.BusinessID, &a.RuleType, &a.Adjustment, &a.AppliedAt); err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}
