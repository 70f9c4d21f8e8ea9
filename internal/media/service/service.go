package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/blobstore"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/repository"
)

type BlobStore interface {
	Put(ctx context.Context, up blobstore.Upload) (blobstore.Object, error)
}

type Geocoder interface {
	Resolve(ctx context.Context, place string) (models.Place, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, event models.DomainEvent) error
}

type Deps struct {
	Media     repository.MediaRepository
	Locations repository.LocationRepository
	Blobs     BlobStore
	Geocoder  Geocoder
	// Events is optional.
	Events EventPublisher
	Logger zerolog.Logger
}

type Service struct {
	media     repository.MediaRepository
	locations repository.LocationRepository
	blobs     BlobStore
	geocoder  Geocoder
	events    EventPublisher
	clock     func() time.Time
	idGen     func() uuid.UUID
	logger    zerolog.Logger
}

func New(d Deps) *Service {
	return &Service{
		media:     d.Media,
		locations: d.Locations,
		blobs:     d.Blobs,
		geocoder:  d.Geocoder,
		events:    d.Events,
		clock:     time.Now,
		idGen:     uuid.New,
		logger:    d.Logger.With().Str("component", "media_service").Logger(),
	}
}

// CreateMedia stores the bytes of an Uploaded source (a Referenced source
// writes nothing) and registers the metadata. A stored file is not removed if
// the insert fails.
func (s *Service) CreateMedia(ctx context.Context, src models.MediaSource, meta models.MediaMeta) (*models.Media, error) {
	m := &models.Media{
		OwnerType:   meta.OwnerType,
		OwnerID:     meta.OwnerID,
		UploadedBy:  meta.UploadedBy,
		Tags:        meta.Tags,
		Description: meta.Description,
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}

	switch src := src.(type) {
	case models.Uploaded:
		obj, err := s.blobs.Put(ctx, blobstore.Upload{
			Body:        src.File,
			Name:        src.Name,
			ContentType: src.Type,
			Size:        src.Size,
		})
		if err != nil {
			return nil, err
		}
		m.FileName = src.Name
		m.FileType = obj.ContentType
		m.FileSize = obj.Size
		m.FileURL = obj.URL

	case models.Referenced:
		if src.URL == "" {
			return nil, fmt.Errorf("%w: file or file_url is required", models.ErrValidation)
		}
		m.FileName = src.Name
		m.FileType = src.Type
		m.FileSize = max(src.Size, 0)
		m.FileURL = src.URL

	default:
		return nil, fmt.Errorf("%w: unsupported media source %T", models.ErrInvalidArgument, src)
	}

	m.StorageType = models.StorageTypeOf(src)
	m.ID = s.idGen()
	m.UploadedOn = s.clock()

	if err := s.media.Create(ctx, m); err != nil {
		return nil, err
	}

	s.publish(ctx, models.NewMediaCreated(m))
	return m, nil
}

func (s *Service) ListMedia(ctx context.Context, ownerType, ownerID string) ([]models.MediaSummary, error) {
	return s.media.ListByOwner(ctx, ownerType, ownerID)
}

// CreateLocation resolves PlaceName input through the geocoder before
// persisting. models.ErrNotFound from the geocoder is returned unchanged and
// nothing is stored.
func (s *Service) CreateLocation(ctx context.Context, in models.LocationInput, meta models.LocationMeta) (*models.Location, error) {
	var lat, lon float64

	switch in := in.(type) {
	case models.Coordinates:
		lat, lon = in.Lat, in.Lon
	case models.PlaceName:
		p, err := s.geocoder.Resolve(ctx, in.City)
		if err != nil {
			return nil, err
		}
		lat, lon = p.Latitude, p.Longitude
	default:
		return nil, fmt.Errorf("%w: latitude and longitude or a city is required", models.ErrValidation)
	}

	l := &models.Location{
		ID:          s.idGen(),
		ProjID:      meta.ProjID,
		Name:        meta.Name,
		Description: meta.Description,
		Latitude:    lat,
		Longitude:   lon,
		EmployeeID:  meta.EmployeeID,
		CreatedBy:   meta.CreatedBy,
		CreatedOn:   s.clock(),
	}

	if err := s.locations.Create(ctx, l); err != nil {
		return nil, err
	}

	s.publish(ctx, models.NewLocationCreated(l))
	return l, nil
}

func (s *Service) ListProjects(ctx context.Context, employeeID string) ([]models.Location, error) {
	return s.locations.ListByEmployee(ctx, employeeID)
}

func (s *Service) ListAllProjects(ctx context.Context) ([]models.Location, error) {
	return s.locations.ListAll(ctx)
}

func (s *Service) Geocode(ctx context.Context, city string) (models.Place, error) {
	return s.geocoder.Resolve(ctx, city)
}

// publish is best effort: the record is already committed.
func (s *Service) publish(ctx context.Context, event models.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event_type", event.EventType()).
			Str("aggregate_id", event.AggregateID().String()).
			Msg("failed to publish event")
	}
}
