package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/blobstore"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/logging"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/service"
)

const (
	// room for multipart headers and the non-file fields
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 20

	msgCityNotGeocoded = "Could not find coordinates for the specified city. Please try a different name."
	msgCityNotFound    = "City not found. Please try a different name or be more specific."
)

type Handler struct {
	svc             *service.Service
	validate        *validator.Validate
	maxUploadBytes  int64
	// file parts above this many bytes are spooled to temp files
	multipartMemory int64
	publicDir       string
}

type Options struct {
	MaxUploadBytes int64
	PublicDir      string
}

func New(svc *service.Service, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = blobstore.DefaultMaxBytes
	}
	return &Handler{
		svc:             svc,
		validate:        validator.New(),
		maxUploadBytes:  opts.MaxUploadBytes,
		multipartMemory: multipartMemory,
		publicDir:       opts.PublicDir,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Index serves the frontend entry document.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.publicDir, "index.html"))
}

// POST /media
func (h *Handler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	src, meta, err := h.decodeMediaRequest(w, r)
	if err != nil {
		h.fail(w, r, statusFor(err), err, true)
		return
	}
	if up, ok := src.(models.Uploaded); ok {
		if c, ok := up.File.(io.Closer); ok {
			defer c.Close()
		}
	}

	m, err := h.svc.CreateMedia(r.Context(), src, meta)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, models.ErrPayloadTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, models.ErrValidation):
			status = http.StatusBadRequest
		}
		h.fail(w, r, status, err, true)
		return
	}

	writeJSON(w, http.StatusOK, CreateMediaResponse{
		Success:  true,
		MediaID:  m.ID,
		FileURL:  m.FileURL,
		FileType: m.FileType,
	})
}

// decodeMediaRequest decides once whether the request carries file bytes or
// a URL reference.
func (h *Handler) decodeMediaRequest(w http.ResponseWriter, r *http.Request) (models.MediaSource, models.MediaMeta, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
		if err := r.ParseMultipartForm(h.multipartMemory); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				return nil, models.MediaMeta{}, fmt.Errorf("%w: request body exceeds %d bytes", models.ErrPayloadTooLarge, tooBig.Limit)
			}
			return nil, models.MediaMeta{}, fmt.Errorf("%w: invalid multipart form: %w", models.ErrValidation, err)
		}

		meta := metaFromForm(r.MultipartForm.Value)
		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			return referencedFromForm(r.MultipartForm.Value), meta, nil
		case err != nil:
			return nil, meta, fmt.Errorf("%w: read file part: %w", models.ErrStorage, err)
		}
		return models.Uploaded{
			File: file,
			Name: header.Filename,
			Type: header.Header.Get("Content-Type"),
			Size: header.Size,
		}, meta, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, models.MediaMeta{}, fmt.Errorf("%w: invalid form: %w", models.ErrValidation, err)
		}
		return referencedFromForm(r.PostForm), metaFromForm(r.PostForm), nil

	default:
		var req CreateMediaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, models.MediaMeta{}, fmt.Errorf("%w: invalid json body: %w", models.ErrValidation, err)
		}
		src := models.Referenced{
			URL:  req.FileURL,
			Name: req.FileName,
			Type: req.FileType,
			Size: int64(req.FileSize),
		}
		meta := models.MediaMeta{
			OwnerType:   string(req.OwnerType),
			OwnerID:     string(req.OwnerID),
			UploadedBy:  string(req.UploadedBy),
			Tags:        []string(req.Tags),
			Description: req.Description,
		}
		return src, meta, nil
	}
}

func referencedFromForm(v url.Values) models.Referenced {
	return models.Referenced{
		URL:  first(v, "file_url"),
		Name: first(v, "file_name"),
		Type: first(v, "file_type"),
		Size: parseLeadingInt(first(v, "file_size")),
	}
}

// metaFromForm reads a single tags value as a comma string and repeated tags
// values as a list.
func metaFromForm(v url.Values) models.MediaMeta {
	var tags []string
	switch vals := v["tags"]; len(vals) {
	case 0:
	case 1:
		tags = models.ParseTags(vals[0])
	default:
		tags = vals
	}

	return models.MediaMeta{
		OwnerType:   first(v, "owner_type"),
		OwnerID:     first(v, "owner_id"),
		UploadedBy:  first(v, "uploaded_by"),
		Tags:        tags,
		Description: first(v, "description"),
	}
}

func first(v url.Values, key string) string {
	if vals := v[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// GET /media/{owner_type}/{owner_id}
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListMedia(r.Context(), pathParam(r, "owner_type"), pathParam(r, "owner_id"))
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toMediaSummaryResponses(items))
}

// POST /project-location
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req CreateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: invalid json body: %w", models.ErrValidation, err), true)
		return
	}

	in, err := h.locationInput(req)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err, true)
		return
	}

	l, err := h.svc.CreateLocation(r.Context(), in, models.LocationMeta{
		ProjID:      string(req.ProjID),
		Name:        req.Name,
		Description: req.Description,
		EmployeeID:  string(req.EmployeeID),
		CreatedBy:   string(req.CreatedBy),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			writeJSON(w, http.StatusBadRequest, failureResponse{Success: false, Error: msgCityNotGeocoded})
		case errors.Is(err, models.ErrValidation):
			h.fail(w, r, http.StatusBadRequest, err, true)
		default:
			h.fail(w, r, http.StatusInternalServerError, err, false)
		}
		return
	}

	writeJSON(w, http.StatusOK, CreateLocationResponse{
		Success:    true,
		LocationID: l.ID,
		Latitude:   l.Latitude,
		Longitude:  l.Longitude,
	})
}

// locationInput picks the city only when a coordinate is missing; both
// coordinates win over a city.
func (h *Handler) locationInput(req CreateLocationRequest) (models.LocationInput, error) {
	city := strings.TrimSpace(req.City)

	if city != "" && (!req.Lat.set || !req.Lon.set) {
		return models.PlaceName{City: city}, nil
	}
	if !req.Lat.set || !req.Lon.set {
		return nil, fmt.Errorf("%w: provide lat and lon, or a city", models.ErrValidation)
	}

	c := coordinates{Lat: req.Lat.value, Lon: req.Lon.value}
	if err := h.validate.Struct(c); err != nil {
		return nil, fmt.Errorf("%w: coordinates out of range: %w", models.ErrValidation, err)
	}
	return models.Coordinates{Lat: c.Lat, Lon: c.Lon}, nil
}

// GET /projects/{employee_id}
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.ListProjects(r.Context(), pathParam(r, "employee_id"))
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toLocationResponses(locs, false))
}

// GET /all-projects
func (h *Handler) ListAllProjects(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.ListAllProjects(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err, false)
		return
	}
	writeJSON(w, http.StatusOK, toLocationResponses(locs, true))
}

// GET /geocode/{city}
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Geocode(r.Context(), pathParam(r, "city"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, failureResponse{Success: false, Error: msgCityNotFound})
			return
		}
		h.fail(w, r, http.StatusInternalServerError, err, true)
		return
	}

	writeJSON(w, http.StatusOK, GeocodeResponse{
		Success:   true,
		City:      p.DisplayName,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	})
}

// pathParam returns a decoded chi URL parameter; chi hands back the raw
// segment when the path contains escapes such as %2F.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath != "" {
		if dec, err := url.PathUnescape(v); err == nil {
			return dec
		}
	}
	return v
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail logs server errors and writes the error message. withSuccess selects
// the {success:false,error} shape over {error}.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, err error, withSuccess bool) {
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}

	if withSuccess {
		writeJSON(w, status, failureResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
