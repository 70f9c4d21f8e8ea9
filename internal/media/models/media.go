package models

import (
	"time"

	"github.com/google/uuid"
)

type StorageType string

const (
	LocalStorage StorageType = "local"
	URLStorage   StorageType = "url"
)

type Media struct {
	ID          uuid.UUID   `db:"media_id"`
	OwnerType   string      `db:"owner_type"`
	OwnerID     string      `db:"owner_id"`
	FileName    string      `db:"file_name"`
	FileType    string      `db:"file_type"`
	FileSize    int64       `db:"file_size"`
	StorageType StorageType `db:"storage_type"`
	FileURL     string      `db:"file_url"`
	UploadedBy  string      `db:"uploaded_by"`
	Tags        []string    `db:"tags"`
	Description string      `db:"description"`
	UploadedOn  time.Time   `db:"uploaded_on"`
}

// MediaSummary is the projection returned when listing media for an owner.
type MediaSummary struct {
	ID         uuid.UUID
	FileName   string
	FileType   string
	FileURL    string
	UploadedOn time.Time
	Tags       []string
}

// MediaMeta carries the caller-supplied fields that do not depend on where the
// bytes live.
type MediaMeta struct {
	OwnerType   string
	OwnerID     string
	UploadedBy  string
	Tags        []string
	Description string
}
