package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

type MediaCreated struct {
	eventID    uuid.UUID
	media      Media
	occurredAt time.Time
}

func NewMediaCreated(m *Media) *MediaCreated {
	return &MediaCreated{
		eventID:    uuid.New(),
		media:      *m,
		occurredAt: time.Now(),
	}
}

func (e *MediaCreated) EventID() uuid.UUID     { return e.eventID }
func (e *MediaCreated) EventType() string      { return "MediaCreated" }
func (e *MediaCreated) AggregateID() uuid.UUID { return e.media.ID }
func (e *MediaCreated) OccurredAt() time.Time  { return e.occurredAt }

func (e *MediaCreated) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID     uuid.UUID   `json:"event_id"`
		EventType   string      `json:"event_type"`
		MediaID     uuid.UUID   `json:"media_id"`
		OwnerType   string      `json:"owner_type"`
		OwnerID     string      `json:"owner_id"`
		FileURL     string      `json:"file_url"`
		FileType    string      `json:"file_type"`
		StorageType StorageType `json:"storage_type"`
		OccurredAt  time.Time   `json:"occurred_at"`
	}{
		EventID:     e.eventID,
		EventType:   e.EventType(),
		MediaID:     e.media.ID,
		OwnerType:   e.media.OwnerType,
		OwnerID:     e.media.OwnerID,
		FileURL:     e.media.FileURL,
		FileType:    e.media.FileType,
		StorageType: e.media.StorageType,
		OccurredAt:  e.occurredAt,
	})
}

type LocationCreated struct {
	eventID    uuid.UUID
	location   Location
	occurredAt time.Time
}

func NewLocationCreated(l *Location) *LocationCreated {
	return &LocationCreated{
		eventID:    uuid.New(),
		location:   *l,
		occurredAt: time.Now(),
	}
}

func (e *LocationCreated) EventID() uuid.UUID     { return e.eventID }
func (e *LocationCreated) EventType() string      { return "LocationCreated" }
func (e *LocationCreated) AggregateID() uuid.UUID { return e.location.ID }
func (e *LocationCreated) OccurredAt() time.Time  { return e.occurredAt }

func (e *LocationCreated) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		EventID    uuid.UUID `json:"event_id"`
		EventType  string    `json:"event_type"`
		LocationID uuid.UUID `json:"location_id"`
		ProjID     string    `json:"proj_id"`
		EmployeeID string    `json:"employee_id"`
		Latitude   float64   `json:"latitude"`
		Longitude  float64   `json:"longitude"`
		OccurredAt time.Time `json:"occurred_at"`
	}{
		EventID:    e.eventID,
		EventType:  e.EventType(),
		LocationID: e.location.ID,
		ProjID:     e.location.ProjID,
		EmployeeID: e.location.EmployeeID,
		Latitude:   e.location.Latitude,
		Longitude:  e.location.Longitude,
		OccurredAt: e.occurredAt,
	})
}
