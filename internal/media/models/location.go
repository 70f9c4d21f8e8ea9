package models

import (
	"time"

	"github.com/google/uuid"
)

type Location struct {
	ID          uuid.UUID `db:"location_id"`
	ProjID      string    `db:"proj_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Latitude    float64   `db:"latitude"`
	Longitude   float64   `db:"longitude"`
	EmployeeID  string    `db:"employee_id"`
	CreatedBy   string    `db:"created_by"`
	CreatedOn   time.Time `db:"created_on"`
}

type LocationMeta struct {
	ProjID      string
	Name        string
	Description string
	EmployeeID  string
	CreatedBy   string
}

// Place is a geocoding hit.
type Place struct {
	DisplayName string
	Latitude    float64
	Longitude   float64
}
