package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
)

type MediaRepo struct {
	db *sqlx.DB
}

func NewMediaRepo(db *sqlx.DB) *MediaRepo {
	return &MediaRepo{db: db}
}

type mediaSummaryRow struct {
	ID         uuid.UUID      `db:"media_id"`
	FileName   string         `db:"file_name"`
	FileType   string         `db:"file_type"`
	FileURL    string         `db:"file_url"`
	UploadedOn time.Time      `db:"uploaded_on"`
	Tags       pq.StringArray `db:"tags"`
}

func (r *MediaRepo) Create(ctx context.Context, m *models.Media) error {
	const q = `
		INSERT INTO multimedia (media_id, owner_type, owner_id, file_name, file_type, storage_type,
		                        file_url, file_size, uploaded_by, tags, description, uploaded_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.OwnerType, m.OwnerID, m.FileName, m.FileType, string(m.StorageType),
		m.FileURL, m.FileSize, m.UploadedBy, pq.StringArray(tags), m.Description, m.UploadedOn,
	)
	if err != nil {
		return fmt.Errorf("%w: media create: %w", models.ErrRegistry, err)
	}
	return nil
}

func (r *MediaRepo) ListByOwner(ctx context.Context, ownerType, ownerID string) ([]models.MediaSummary, error) {
	const q = `
		SELECT media_id, file_name, file_type, file_url, uploaded_on, tags
		FROM multimedia
		WHERE owner_type = $1 AND owner_id = $2
		ORDER BY uploaded_on DESC
	`

	var rows []mediaSummaryRow
	if err := r.db.SelectContext(ctx, &rows, q, ownerType, ownerID); err != nil {
		return nil, fmt.Errorf("%w: media list by owner: %w", models.ErrRegistry, err)
	}

	out := make([]models.MediaSummary, 0, len(rows))
	for _, row := range rows {
		tags := []string(row.Tags)
		if tags == nil {
			tags = []string{}
		}
		out = append(out, models.MediaSummary{
			ID:         row.ID,
			FileName:   row.FileName,
			FileType:   row.FileType,
			FileURL:    row.FileURL,
			UploadedOn: row.UploadedOn,
			Tags:       tags,
		})
	}
	return out, nil
}
