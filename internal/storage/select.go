package storage

import (
	"context"
	"fmt"
	"log/slog"

	"alcyxob/attachment-service/internal/config"
	"alcyxob/attachment-service/internal/invoker"
)

// Select builds the backend for this deployment. A configured bucket means
// the direct backend, otherwise files are kept by the storage service.
func Select(ctx context.Context, cfg config.Config, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DirectBucket() {
		store, err := newObjectStore(ctx, cfg.S3, logger)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
		return NewBucketBackend(store, BucketOptions{
			URLExpiry:       cfg.S3.PresignExpiry,
			UploadExpiry:    cfg.S3.UploadExpiry,
			SignConcurrency: cfg.S3.SignConcurrency,
		}, logger), nil
	}

	inv, err := invoker.NewHTTPInvoker(cfg.StorageService.BaseURL, cfg.StorageService.Timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage service invoker: %w", err)
	}
	return NewDelegatedBackend(inv, cfg.Attachments.ServiceName, logger), nil
}

func newObjectStore(ctx context.Context, cfg config.S3Config, logger *slog.Logger) (ObjectStore, error) {
	switch cfg.Provider {
	case "", "s3":
		return NewS3ObjectStore(ctx, cfg, logger)
	case "minio":
		return NewMinioObjectStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown s3 provider %q", cfg.Provider)
	}
}
