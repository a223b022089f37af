package postgres

import (
	"context"

	"github.com/verdantlabs/verdant/internal/core/domain"
)

// MeasurementRepo implements ports.MeasurementRepository with pgx.
type MeasurementRepo struct {
	db *DB
}

// NewMeasurementRepo creates a new MeasurementRepo.
func NewMeasurementRepo(db *DB) *MeasurementRepo {
	return &MeasurementRepo{db: db}
}

// Insert persists a measurement and fills in its generated ID and
// timestamp.
func (r *MeasurementRepo) Insert(ctx context.Context, m *domain.MeasurementResult) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO measurements (business_id, total_area, lawn_front_yard, lawn_back_yard,
		                          lawn_side_yard, lawn_total, driveway, sidewalk, building, other, perimeter)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, m.BusinessID, m.TotalArea, m.Lawn.FrontYard, m.Lawn.BackYard,
		m.Lawn.SideYard, m.Lawn.Total, m.Driveway, m.Sidewalk, m.Building, m.Other, m.Perimeter,
	).Scan(&m.ID, &m.CreatedAt)
}

// GetByID returns a measurement by UUID.
func (r *MeasurementRepo) GetByID(ctx context.Context, id string) (*domain.MeasurementResult, error) {
	var m domain.MeasurementResult
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, business_id, total_area, lawn_front_yard, lawn_back_yard,
		       lawn_side_yard, lawn_total, driveway, sidewalk, building, other, perimeter, created_at
		FROM measurements WHERE id = $1
	`, id).Scan(
		&m.ID, &m.BusinessID, &m.TotalArea, &m.Lawn.FrontYard, &m.Lawn.BackYard,
		&m.Lawn.SideYard, &m.Lawn.Total, &m.Driveway, &m.Sidewalk, &m.Building, &m.Other,
		&m.Perimeter, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByBusiness returns a page of a business's measurements, newest
// first, plus the total count for pagination.
func (r *MeasurementRepo) ListByBusiness(ctx context.Context, businessID string, limit, offset int) ([]domain.MeasurementResult, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM measurements WHERE business_id = $1`, businessID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, business_id, total_area, lawn_front_yard, lawn_back_yard,
		       lawn_side_yard, lawn_total, driveway, sidewalk, building, other, perimeter, created_at
		FROM measurements
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, businessID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.MeasurementResult
	for rows.Next() {
		var m domain.MeasurementResult
		if err := rows.Scan(
			&m.ID, &m.BusinessID, &m.TotalArea, &m.Lawn.FrontYard, &m.Lawn.BackYard,
			&m.Lawn.SideYard, &m.Lawn.Total, &m.Driveway, &m.Sidewalk, &m.Building, &m.Other,
			&m.Perimeter, &m.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
