package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/metrics"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base clients use to fetch objects; defaults to the
	// endpoint URL.
	PublicURL string
	MaxBytes  int64
	Logger    zerolog.Logger
}

// MinioStore keeps uploads in an S3-compatible bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	maxBytes  int64
	clock     func() time.Time
	logger    zerolog.Logger
}

func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = client.EndpointURL().String()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	return &MinioStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		maxBytes:  cfg.MaxBytes,
		clock:     time.Now,
		logger:    cfg.Logger.With().Str("component", "minio_blobstore").Logger(),
	}, nil
}

func (s *MinioStore) Put(ctx context.Context, up Upload) (Object, error) {
	if up.Size > s.maxBytes {
		metrics.UploadsRejected.WithLabelValues("too_large").Inc()
		return Object{}, tooLarge(up.Size, s.maxBytes)
	}

	contentType, body, err := DetectContentType(up.Body, up.ContentType)
	if err != nil {
		return Object{}, storageErr("read upload", err)
	}

	name := StoredName(s.clock(), up.Name)
	counter := &countingReader{r: io.LimitReader(body, s.maxBytes+1)}

	size := up.Size
	if size < 0 {
		size = -1
	}

	info, err := s.client.PutObject(ctx, s.bucket, name, counter, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Object{}, storageErr("put object", err)
	}

	if counter.n > s.maxBytes {
		if rmErr := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); rmErr != nil {
			s.logger.Error().Err(rmErr).Str("object", name).Msg("failed to remove oversized object")
			return Object{}, errors.Join(tooLarge(counter.n, s.maxBytes), storageErr("remove object", rmErr))
		}
		metrics.UploadsRejected.WithLabelValues("too_large").Inc()
		return Object{}, tooLarge(counter.n, s.maxBytes)
	}

	metrics.UploadBytes.Observe(float64(info.Size))

	return Object{
		StoredName:  name,
		URL:         objectURL(s.publicURL, s.bucket, name),
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}

func objectURL(base, bucket, name string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + url.PathEscape(name)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
