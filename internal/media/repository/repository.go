package repository

import (
	"context"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
)

type MediaRepository interface {
	Create(ctx context.Context, m *models.Media) error
	ListByOwner(ctx context.Context, ownerType, ownerID string) ([]models.MediaSummary, error)
}

type LocationRepository interface {
	Create(ctx context.Context, l *models.Location) error
	ListByEmployee(ctx context.Context, employeeID string) ([]models.Location, error)
	ListAll(ctx context.Context) ([]models.Location, error)
}
