package httpapi

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
)

// CreateMediaRequest is the JSON form of POST /media when no file is attached.
type CreateMediaRequest struct {
	OwnerType   flexString `json:"owner_type"`
	OwnerID     flexString `json:"owner_id"`
	FileName    string     `json:"file_name"`
	FileType    string     `json:"file_type"`
	FileSize    flexInt    `json:"file_size"`
	FileURL     string     `json:"file_url"`
	UploadedBy  flexString `json:"uploaded_by"`
	Tags        tagList    `json:"tags"`
	Description string     `json:"description"`
}

type CreateMediaResponse struct {
	Success  bool      `json:"success"`
	MediaID  uuid.UUID `json:"media_id"`
	FileURL  string    `json:"file_url"`
	FileType string    `json:"file_type"`
}

type MediaSummaryResponse struct {
	MediaID    uuid.UUID `json:"media_id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	FileURL    string    `json:"file_url"`
	UploadedOn time.Time `json:"uploaded_on"`
	Tags       []string  `json:"tags"`
}

type CreateLocationRequest struct {
	ProjID      flexString `json:"proj_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Lat         flexFloat  `json:"lat"`
	Lon         flexFloat  `json:"lon"`
	City        string     `json:"city"`
	EmployeeID  flexString `json:"employee_id"`
	CreatedBy   flexString `json:"created_by"`
}

type CreateLocationResponse struct {
	Success    bool      `json:"success"`
	LocationID uuid.UUID `json:"location_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

type LocationResponse struct {
	LocationID  uuid.UUID `json:"location_id"`
	ProjID      string    `json:"proj_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	EmployeeID  *string   `json:"employee_id,omitempty"`
	CreatedOn   time.Time `json:"created_on"`
}

type GeocodeResponse struct {
	Success   bool    `json:"success"`
	City      string  `json:"city"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// failureResponse is used by endpoints whose errors carry success:false.
type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// coordinates is what the validator checks before a location is accepted.
type coordinates struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func toMediaSummaryResponses(in []models.MediaSummary) []MediaSummaryResponse {
	out := make([]MediaSummaryResponse, 0, len(in))
	for _, m := range in {
		tags := m.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, MediaSummaryResponse{
			MediaID:    m.ID,
			FileName:   m.FileName,
			FileType:   m.FileType,
			FileURL:    m.FileURL,
			UploadedOn: m.UploadedOn,
			Tags:       tags,
		})
	}
	return out
}

func toLocationResponses(in []models.Location, withEmployee bool) []LocationResponse {
	out := make([]LocationResponse, 0, len(in))
	for _, l := range in {
		resp := LocationResponse{
			LocationID:  l.ID,
			ProjID:      l.ProjID,
			Name:        l.Name,
			Description: l.Description,
			Latitude:    l.Latitude,
			Longitude:   l.Longitude,
			CreatedOn:   l.CreatedOn,
		}
		if withEmployee {
			id := l.EmployeeID
			resp.EmployeeID = &id
		}
		out = append(out, resp)
	}
	return out
}

// flexString accepts a JSON string or number; ids arrive both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", b)
		}
		*f = flexString(n.String())
	}
	return nil
}

// flexInt never fails: anything that is not a number becomes 0.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(parseLeadingInt(s))
		return nil
	}

	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(int64(v))
	return nil
}

// parseLeadingInt reads an optional sign and the leading decimal digits of s,
// so "12kb" is 12 and "abc" is 0.
func parseLeadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// flexFloat is a coordinate that may be absent, a number or a numeric string.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = flexFloat{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return f.parse(s)
	}
	return f.parse(string(b))
}

func (f *flexFloat) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*f = flexFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	*f = flexFloat{value: v, set: true}
	return nil
}

// tagList accepts either a comma-separated string or a list of strings.
// Lists pass through untouched.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = models.ParseTags(s)
	default:
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return fmt.Errorf("tags must be a string or a list of strings")
		}
		*t = list
	}
	return nil
}
