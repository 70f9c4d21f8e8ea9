package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
)

type LocationRepo struct {
	db *sqlx.DB
}

func NewLocationRepo(db *sqlx.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) Create(ctx context.Context, l *models.Location) error {
	const q = `
		INSERT INTO project_location (location_id, proj_id, name, description, latitude, longitude,
		                              employee_id, created_by, created_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.ProjID, l.Name, l.Description, l.Latitude, l.Longitude,
		l.EmployeeID, l.CreatedBy, l.CreatedOn,
	)
	if err != nil {
		return fmt.Errorf("%w: location create: %w", models.ErrRegistry, err)
	}
	return nil
}

func (r *LocationRepo) ListByEmployee(ctx context.Context, employeeID string) ([]models.Location, error) {
	const q = `
		SELECT location_id, proj_id, name, COALESCE(description, '') AS description,
		       latitude, longitude, created_on
		FROM project_location
		WHERE employee_id = $1
		ORDER BY created_on DESC
	`

	locs := make([]models.Location, 0)
	if err := r.db.SelectContext(ctx, &locs, q, employeeID); err != nil {
		return nil, fmt.Errorf("%w: location list by employee: %w", models.ErrRegistry, err)
	}
	return locs, nil
}

func (r *LocationRepo) ListAll(ctx context.Context) ([]models.Location, error) {
	const q = `
		SELECT location_id, proj_id, name, COALESCE(description, '') AS description,
		       latitude, longitude, employee_id, created_on
		FROM project_location
		ORDER BY created_on DESC
	`

	locs := make([]models.Location, 0)
	if err := r.db.SelectContext(ctx, &locs, q); err != nil {
		return nil, fmt.Errorf("%w: location list all: %w", models.ErrRegistry, err)
	}
	return locs, nil
}
