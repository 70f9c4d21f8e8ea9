package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
)

type MemoryMediaRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*models.Media
}

func NewMemoryMediaRepository() *MemoryMediaRepository {
	return &MemoryMediaRepository{
		data: make(map[uuid.UUID]*models.Media),
	}
}

func (r *MemoryMediaRepository) Create(ctx context.Context, m *models.Media) error {
	if m == nil || m.ID == uuid.Nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[m.ID]; exists {
		return models.ErrConflict
	}

	// copy so callers can't mutate what is stored
	cp := *m
	cp.Tags = slices.Clone(m.Tags)
	r.data[m.ID] = &cp

	return nil
}

func (r *MemoryMediaRepository) ListByOwner(ctx context.Context, ownerType, ownerID string) ([]models.MediaSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.MediaSummary, 0)
	for _, m := range r.data {
		if m.OwnerType != ownerType || m.OwnerID != ownerID {
			continue
		}
		out = append(out, models.MediaSummary{
			ID:         m.ID,
			FileName:   m.FileName,
			FileType:   m.FileType,
			FileURL:    m.FileURL,
			UploadedOn: m.UploadedOn,
			Tags:       slices.Clone(m.Tags),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadedOn.After(out[j].UploadedOn)
	})
	return out, nil
}

// Len reports how many media records are stored.
func (r *MemoryMediaRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

type MemoryLocationRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*models.Location
}

func NewMemoryLocationRepository() *MemoryLocationRepository {
	return &MemoryLocationRepository{
		data: make(map[uuid.UUID]*models.Location),
	}
}

func (r *MemoryLocationRepository) Create(ctx context.Context, l *models.Location) error {
	if l == nil || l.ID == uuid.Nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[l.ID]; exists {
		return models.ErrConflict
	}
	cp := *l
	r.data[l.ID] = &cp

	return nil
}

func (r *MemoryLocationRepository) ListByEmployee(ctx context.Context, employeeID string) ([]models.Location, error) {
	return r.list(ctx, func(l *models.Location) bool { return l.EmployeeID == employeeID })
}

func (r *MemoryLocationRepository) ListAll(ctx context.Context) ([]models.Location, error) {
	return r.list(ctx, func(*models.Location) bool { return true })
}

func (r *MemoryLocationRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

func (r *MemoryLocationRepository) list(ctx context.Context, keep func(*models.Location) bool) ([]models.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Location, 0)
	for _, l := range r.data {
		if keep(l) {
			out = append(out, *l)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedOn.After(out[j].CreatedOn)
	})
	return out, nil
}
