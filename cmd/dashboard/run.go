package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/blobstore"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/config"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/geocode"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/logging"
	httpapi "github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/httpapi"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/kafka"
	"github.com/rjzeref/Coord-Media-Data-DashBoard/internal/media/service"
	pg "github.com/rjzeref/Coord-Media-Data-DashBoard/internal/storage/postgres"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.Component("dashboard")

	db, err := pg.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := pg.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info().Msg("schema migrated")
	}

	// Dependencies
	blobs, uploadsDir, err := newBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("blob store: %w", err)
	}

	geocoder, err := geocode.NewClient(geocode.Config{
		BaseURL:   cfg.Geocoder.URL,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   cfg.Geocoder.Timeout,
		Logger:    logging.Logger(),
	})
	if err != nil {
		return fmt.Errorf("geocoder: %w", err)
	}

	deps := service.Deps{
		Media:     pg.NewMediaRepo(db),
		Locations: pg.NewLocationRepo(db),
		Blobs:     blobs,
		Geocoder:  geocoder,
		Logger:    logging.Logger(),
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			Logger:  logging.Logger(),
		})
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				log.Warn().Err(err).Msg("close kafka producer")
			}
		}()
		deps.Events = producer
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events")
	}

	svc := service.New(deps)
	h := httpapi.New(svc, httpapi.Options{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		PublicDir:      cfg.Server.PublicDir,
	})
	router := httpapi.NewRouter(h, httpapi.RouterConfig{UploadsDir: uploadsDir})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.Upload.Driver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen and serve: %w", err)
	}
}

// newBlobStore returns the configured store and the directory to expose under
// /uploads, which is empty for object storage.
func newBlobStore(ctx context.Context, cfg *config.Config) (service.BlobStore, string, error) {
	switch cfg.Upload.Driver {
	case config.StorageMinio:
		s, err := blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
			PublicURL: cfg.Minio.PublicURL,
			MaxBytes:  cfg.Upload.MaxBytes,
			Logger:    logging.Logger(),
		})
		return s, "", err
	default:
		s, err := blobstore.NewLocalStore(blobstore.LocalConfig{
			Dir:      cfg.Upload.Dir,
			MaxBytes: cfg.Upload.MaxBytes,
			Logger:   logging.Logger(),
		})
		if err != nil {
			return nil, "", err
		}
		return s, s.Dir(), nil
	}
}
