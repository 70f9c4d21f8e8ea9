package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/blobstore"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
)

type MediaStoreMock struct {
	mock.Mock
}

func (m *MediaStoreMock) Create(ctx context.Context, media *models.Media) error {
	args := m.Called(ctx, media)
	return args.Error(0)
}

func (m *MediaStoreMock) ListByOwner(ctx context.Context, ownerType, ownerID string) ([]models.MediaSummary, error) {
	args := m.Called(ctx, ownerType, ownerID)
	if v := args.Get(0); v != nil {
		return v.([]models.MediaSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

type LocationStoreMock struct {
	mock.Mock
}

func (m *LocationStoreMock) Create(ctx context.Context, l *models.Location) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *LocationStoreMock) ListByEmployee(ctx context.Context, employeeID string) ([]models.Location, error) {
	args := m.Called(ctx, employeeID)
	if v := args.Get(0); v != nil {
		return v.([]models.Location), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *LocationStoreMock) ListAll(ctx context.Context) ([]models.Location, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]models.Location), args.Error(1)
	}
	return nil, args.Error(1)
}

type BlobStoreMock struct {
	mock.Mock
}

func (m *BlobStoreMock) Put(ctx context.Context, up blobstore.Upload) (blobstore.Object, error) {
	args := m.Called(ctx, up)
	return args.Get(0).(blobstore.Object), args.Error(1)
}

type GeocoderMock struct {
	mock.Mock
}

func (m *GeocoderMock) Resolve(ctx context.Context, place string) (models.Place, error) {
	args := m.Called(ctx, place)
	return args.Get(0).(models.Place), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) PublishEvent(ctx context.Context, event models.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
