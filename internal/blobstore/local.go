package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/metrics"
)

// LocalStore writes files under a directory served at URLPrefix.
type LocalStore struct {
	dir       string
	tempDir   string
	urlPrefix string
	maxBytes  int64
	clock     func() time.Time
	logger    zerolog.Logger
}

type LocalConfig struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
	Logger    zerolog.Logger
}

// TempDirName is the subdirectory of the storage root holding uploads that are
// still being written. It must not be served.
const TempDirName = ".tmp"

// NewLocalStore creates the storage directory if it does not exist.
func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage dir is empty")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/uploads"
	}
	tempDir := filepath.Join(cfg.Dir, TempDirName)
	if err := os.MkdirAll(tempDir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	return &LocalStore{
		dir:       cfg.Dir,
		tempDir:   tempDir,
		urlPrefix: cfg.URLPrefix,
		maxBytes:  cfg.MaxBytes,
		clock:     time.Now,
		logger:    cfg.Logger.With().Str("component", "local_blobstore").Logger(),
	}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

// Put streams the upload to a temp file and links it under its final name
// only after the whole body was read within the limit.
func (s *LocalStore) Put(ctx context.Context, up Upload) (Object, error) {
	if up.Size > s.maxBytes {
		metrics.UploadsRejected.WithLabelValues("too_large").Inc()
		return Object{}, tooLarge(up.Size, s.maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, storageErr("put", err)
	}

	contentType, body, err := DetectContentType(up.Body, up.ContentType)
	if err != nil {
		return Object{}, storageErr("read upload", err)
	}

	tmp, err := os.CreateTemp(s.tempDir, "upload-*.tmp")
	if err != nil {
		return Object{}, storageErr("create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	n, err := io.CopyN(tmp, ctxReader{ctx: ctx, r: body}, s.maxBytes+1)
	if err != nil && !errors.Is(err, io.EOF) {
		tmp.Close()
		return Object{}, storageErr("write file", err)
	}
	if n > s.maxBytes {
		tmp.Close()
		metrics.UploadsRejected.WithLabelValues("too_large").Inc()
		return Object{}, tooLarge(n, s.maxBytes)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Object{}, storageErr("sync file", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, storageErr("close file", err)
	}

	name, err := s.link(tmpPath, up.Name)
	if err != nil {
		return Object{}, err
	}

	metrics.UploadBytes.Observe(float64(n))
	s.logger.Debug().
		Str("stored_name", name).
		Int64("size", n).
		Msg("file stored")

	return Object{
		StoredName:  name,
		URL:         s.urlPrefix + "/" + url.PathEscape(name),
		Size:        n,
		ContentType: contentType,
	}, nil
}

// link gives the temp file its final name; os.Link never replaces an existing
// file, so a name clash just draws a new name.
func (s *LocalStore) link(tmpPath, original string) (string, error) {
	var lastErr error
	for range 3 {
		name := StoredName(s.clock(), original)
		err := os.Link(tmpPath, filepath.Join(s.dir, name))
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", storageErr("link file", err)
		}
		lastErr = err
	}
	return "", storageErr("link file", lastErr)
}
