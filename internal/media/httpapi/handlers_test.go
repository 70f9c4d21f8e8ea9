package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/blobstore"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/models"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/repository"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/service"
)

const testMaxUpload = 64

type fakeGeocoder struct {
	mu      sync.Mutex
	calls   int
	resolve func(place string) (models.Place, error)
}

func (g *fakeGeocoder) Resolve(ctx context.Context, place string) (models.Place, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.resolve == nil {
		return models.Place{}, fmt.Errorf("%w: unavailable", models.ErrResolver)
	}
	return g.resolve(place)
}

// recordingMedia keeps every created record so tests can see storage_type.
type recordingMedia struct {
	*repository.MemoryMediaRepository
	mu      sync.Mutex
	created []models.Media
}

func (r *recordingMedia) Create(ctx context.Context, m *models.Media) error {
	if err := r.MemoryMediaRepository.Create(ctx, m); err != nil {
		return err
	}
	r.mu.Lock()
	r.created = append(r.created, *m)
	r.mu.Unlock()
	return nil
}

type testServer struct {
	srv       *httptest.Server
	handler   *Handler
	uploads   string
	public    string
	media     *recordingMedia
	locations *repository.MemoryLocationRepository
	geocoder  *fakeGeocoder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")
	public := filepath.Join(root, "public")
	require.NoError(t, os.MkdirAll(public, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "index.html"), []byte("<html>dashboard</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(public, "app.js"), []byte("console.log(1)"), 0o644))

	blobs, err := blobstore.NewLocalStore(blobstore.LocalConfig{
		Dir:      uploads,
		MaxBytes: testMaxUpload,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	ts := &testServer{
		uploads:   uploads,
		public:    public,
		media:     &recordingMedia{MemoryMediaRepository: repository.NewMemoryMediaRepository()},
		locations: repository.NewMemoryLocationRepository(),
		geocoder:  &fakeGeocoder{},
	}

	svc := service.New(service.Deps{
		Media:     ts.media,
		Locations: ts.locations,
		Blobs:     blobs,
		Geocoder:  ts.geocoder,
		Logger:    zerolog.Nop(),
	})
	h := New(svc, Options{MaxUploadBytes: testMaxUpload, PublicDir: public})
	ts.handler = h
	ts.srv = httptest.NewServer(NewRouter(h, RouterConfig{UploadsDir: uploads}))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) uploadFile(t *testing.T, name string, content []byte, fields map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.srv.URL+"/media", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// uploadedFiles lists the regular files directly in dir.
func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

func TestCreateMedia_UploadedFile(t *testing.T) {
	ts := newTestServer(t)
	content := []byte("0123456789abcdef")

	resp := ts.uploadFile(t, "photo.jpg", content, map[string]string{
		"owner_type": "project",
		"owner_id":   "42",
		"tags":       "a, b ,c",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[CreateMediaResponse](t, resp)
	assert.True(t, body.Success)
	assert.True(t, strings.HasPrefix(body.FileURL, "/uploads/"))
	assert.True(t, strings.HasSuffix(body.FileURL, "-photo.jpg"))

	stored := ts.get(t, body.FileURL)
	require.Equal(t, http.StatusOK, stored.StatusCode)
	got, err := io.ReadAll(stored.Body)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.Len(t, ts.media.created, 1)
	m := ts.media.created[0]
	assert.Equal(t, models.LocalStorage, m.StorageType)
	assert.Equal(t, int64(len(content)), m.FileSize)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, m.Tags)
	assert.Equal(t, body.MediaID, m.ID)
}

func TestCreateMedia_ReferencedJSON(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.postJSON(t, "/media", `{
		"owner_type": "project",
		"owner_id": 42,
		"file_name": "clip.mp4",
		"file_type": "video/mp4",
		"file_size": "12kb",
		"file_url": "https://cdn.example.com/clip.mp4",
		"tags": ["x", " y "]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[CreateMediaResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, "https://cdn.example.com/clip.mp4", body.FileURL)
	assert.Equal(t, "video/mp4", body.FileType)

	assert.Empty(t, uploadedFiles(t, ts.uploads))
	require.Len(t, ts.media.created, 1)
	m := ts.media.created[0]
	assert.Equal(t, models.URLStorage, m.StorageType)
	assert.Equal(t, "42", m.OwnerID)
	assert.Equal(t, int64(12), m.FileSize)
	assert.Equal(t, []string{"x", " y "}, m.Tags)
}

func TestCreateMedia_ReferencedForm(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{
		"owner_type": {"employee"},
		"owner_id":   {"7"},
		"file_url":   {"https://example.com/a.png"},
		"file_size":  {"abc"},
		"tags":       {"one", "two"},
	}
	resp, err := http.PostForm(ts.srv.URL+"/media", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, ts.media.created, 1)
	m := ts.media.created[0]
	assert.Equal(t, models.URLStorage, m.StorageType)
	assert.Zero(t, m.FileSize)
	assert.Equal(t, []string{"one", "two"}, m.Tags)
}

func TestCreateMedia_Failures(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "invalid json", body: `{"owner_type":`, status: http.StatusBadRequest},
		{name: "neither file nor url", body: `{"owner_type":"project","owner_id":"1"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			resp := ts.postJSON(t, "/media", tt.body)
			require.Equal(t, tt.status, resp.StatusCode)

			body := decode[failureResponse](t, resp)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
			assert.Zero(t, ts.media.Len())
		})
	}
}

func TestCreateMedia_OversizedUpload(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.uploadFile(t, "big.bin", bytes.Repeat([]byte("x"), testMaxUpload+1), nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	body := decode[failureResponse](t, resp)
	assert.False(t, body.Success)
	assert.Empty(t, uploadedFiles(t, ts.uploads))
	assert.Zero(t, ts.media.Len())
}

func TestCreateMedia_RemovesSpooledParts(t *testing.T) {
	ts := newTestServer(t)
	ts.handler.multipartMemory = 0

	spool := t.TempDir()
	t.Setenv("TMPDIR", spool)

	ok := ts.uploadFile(t, "small.txt", []byte("tiny"), map[string]string{"owner_type": "project", "owner_id": "1"})
	require.Equal(t, http.StatusOK, ok.StatusCode)

	rejected := ts.uploadFile(t, "big.bin", bytes.Repeat([]byte("x"), testMaxUpload+1), nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, rejected.StatusCode)

	assert.Empty(t, uploadedFiles(t, spool), "multipart temp files must be removed")
}

func TestUploads_HidesInFlightFiles(t *testing.T) {
	ts := newTestServer(t)

	partial := filepath.Join(ts.uploads, blobstore.TempDirName, "upload-123.tmp")
	require.NoError(t, os.WriteFile(partial, []byte("half"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(ts.uploads, ".hidden"), []byte("x"), 0o600))

	assert.Equal(t, http.StatusNotFound, ts.get(t, "/uploads/"+blobstore.TempDirName+"/upload-123.tmp").StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/uploads/"+blobstore.TempDirName+"/").StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/uploads/.hidden").StatusCode)
}

func TestCreateMedia_ConcurrentSameName(t *testing.T) {
	ts := newTestServer(t)

	var wg sync.WaitGroup
	urls := make([]string, 2)
	for i := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			_ = mw.WriteField("owner_type", "project")
			_ = mw.WriteField("owner_id", "1")
			fw, _ := mw.CreateFormFile("file", "photo.jpg")
			_, _ = fw.Write([]byte(fmt.Sprintf("image %d", i)))
			_ = mw.Close()

			resp, err := http.Post(ts.srv.URL+"/media", mw.FormDataContentType(), &buf)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			var body CreateMediaResponse
			if json.NewDecoder(resp.Body).Decode(&body) == nil {
				urls[i] = body.FileURL
			}
		}()
	}
	wg.Wait()

	require.NotEmpty(t, urls[0])
	require.NotEmpty(t, urls[1])
	assert.NotEqual(t, urls[0], urls[1])
	assert.Len(t, uploadedFiles(t, ts.uploads), 2)
	require.Len(t, ts.media.created, 2)
	assert.NotEqual(t, ts.media.created[0].ID, ts.media.created[1].ID)
}

func TestListMedia(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/media/project/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	ts.postJSON(t, "/media", `{"owner_type":"project","owner_id":"1","file_url":"https://e.com/1","tags":"a,b"}`)
	ts.postJSON(t, "/media", `{"owner_type":"project","owner_id":"2","file_url":"https://e.com/2"}`)

	items := decode[[]MediaSummaryResponse](t, ts.get(t, "/media/project/1"))
	require.Len(t, items, 1)
	assert.Equal(t, "https://e.com/1", items[0].FileURL)
	assert.Equal(t, []string{"a", "b"}, items[0].Tags)
}

func TestListMedia_EscapedParams(t *testing.T) {
	ts := newTestServer(t)
	ts.postJSON(t, "/media", `{"owner_type":"team/a","owner_id":"x y","file_url":"https://e.com/1"}`)

	items := decode[[]MediaSummaryResponse](t, ts.get(t, "/media/team%2Fa/x%20y"))
	assert.Len(t, items, 1)
}

func TestCreateLocation_Coordinates(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.postJSON(t, "/project-location",
		`{"proj_id":"p1","name":"Site","lat":40.0,"lon":-73.0,"employee_id":"e1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[CreateLocationResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, 40.0, body.Latitude)
	assert.Equal(t, -73.0, body.Longitude)
	assert.Zero(t, ts.geocoder.calls)

	all, err := ts.locations.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 40.0, all[0].Latitude)
	assert.Equal(t, -73.0, all[0].Longitude)
}

func TestCreateLocation_CoordinatesWinOverCity(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.postJSON(t, "/project-location",
		`{"proj_id":"p1","lat":"0","lon":"0","city":"Paris","employee_id":"e1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, ts.geocoder.calls)
	assert.Equal(t, 1, ts.locations.Len())
}

func TestCreateLocation_City(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.resolve = func(place string) (models.Place, error) {
		assert.Equal(t, "Paris", place)
		return models.Place{DisplayName: "Paris, France", Latitude: 48.85, Longitude: 2.35}, nil
	}

	resp := ts.postJSON(t, "/project-location", `{"proj_id":"p1","city":"Paris","lat":"","employee_id":"e1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[CreateLocationResponse](t, resp)
	assert.Equal(t, 48.85, body.Latitude)
	assert.Equal(t, 2.35, body.Longitude)
}

func TestCreateLocation_CityNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.resolve = func(string) (models.Place, error) {
		return models.Place{}, fmt.Errorf("%w: no match", models.ErrNotFound)
	}

	resp := ts.postJSON(t, "/project-location", `{"proj_id":"p1","city":"Nowhere12345","employee_id":"e1"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[failureResponse](t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, msgCityNotGeocoded, body.Error)
	assert.Zero(t, ts.locations.Len())
}

func TestCreateLocation_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "nothing", body: `{"proj_id":"p1"}`},
		{name: "only lat", body: `{"proj_id":"p1","lat":1}`},
		{name: "not a number", body: `{"proj_id":"p1","lat":"north","lon":2}`},
		{name: "out of range", body: `{"proj_id":"p1","lat":91,"lon":2}`},
		{name: "broken json", body: `{"proj_id":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			resp := ts.postJSON(t, "/project-location", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.False(t, decode[failureResponse](t, resp).Success)
			assert.Zero(t, ts.locations.Len())
		})
	}
}

func TestCreateLocation_ResolverFailure(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.postJSON(t, "/project-location", `{"proj_id":"p1","city":"Paris"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"error"`)
	assert.NotContains(t, string(raw), `"success"`)
}

func TestListProjects(t *testing.T) {
	ts := newTestServer(t)
	ts.postJSON(t, "/project-location", `{"proj_id":"p1","lat":1,"lon":2,"employee_id":"e1"}`)
	ts.postJSON(t, "/project-location", `{"proj_id":"p2","lat":3,"lon":4,"employee_id":"e2"}`)

	resp := ts.get(t, "/projects/e1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var byEmployee []map[string]any
	require.NoError(t, json.Unmarshal(raw, &byEmployee))
	require.Len(t, byEmployee, 1)
	assert.Equal(t, "p1", byEmployee[0]["proj_id"])
	assert.NotContains(t, byEmployee[0], "employee_id")

	all := decode[[]LocationResponse](t, ts.get(t, "/all-projects"))
	require.Len(t, all, 2)
	for _, l := range all {
		require.NotNil(t, l.EmployeeID)
	}

	empty := ts.get(t, "/projects/nobody")
	raw, err = io.ReadAll(empty.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestGeocode(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.resolve = func(place string) (models.Place, error) {
		if place == "Paris" {
			return models.Place{DisplayName: "Paris, France", Latitude: 48.85, Longitude: 2.35}, nil
		}
		return models.Place{}, models.ErrNotFound
	}

	resp := ts.get(t, "/geocode/Paris")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[GeocodeResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, "Paris, France", body.City)
	assert.Equal(t, 48.85, body.Latitude)

	resp = ts.get(t, "/geocode/Atlantis")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	fail := decode[failureResponse](t, resp)
	assert.False(t, fail.Success)
	assert.Equal(t, msgCityNotFound, fail.Error)
}

func TestGeocode_ResolverTimeout(t *testing.T) {
	ts := newTestServer(t)
	ts.geocoder.resolve = func(string) (models.Place, error) {
		return models.Place{}, fmt.Errorf("search: %w", models.ErrResolverTimeout)
	}

	resp := ts.get(t, "/geocode/Paris")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.False(t, decode[failureResponse](t, resp).Success)
}

func TestStaticAndHealth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "dashboard")

	assert.Equal(t, http.StatusOK, ts.get(t, "/app.js").StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/uploads/missing.jpg").StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.get(t, "/uploads/").StatusCode)

	health := ts.get(t, "/health")
	require.Equal(t, http.StatusOK, health.StatusCode)
	raw, err = io.ReadAll(health.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.srv.URL+"/media", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8080")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
