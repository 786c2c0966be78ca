package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultSignConcurrency = 8

// BucketBackend is the direct backend: a bucket this service owns, accessed
// through an ObjectStore client.
type BucketBackend struct {
	store        ObjectStore
	urlExpiry    time.Duration
	uploadExpiry time.Duration
	concurrency  int
	logger       *slog.Logger
}

// BucketOptions tunes a BucketBackend. Zero values pick defaults.
type BucketOptions struct {
	URLExpiry       time.Duration
	UploadExpiry    time.Duration
	SignConcurrency int
}

func NewBucketBackend(store ObjectStore, opts BucketOptions, logger *slog.Logger) *BucketBackend {
	if opts.URLExpiry <= 0 {
		opts.URLExpiry = DefaultPresignedURLExpiry
	}
	if opts.UploadExpiry <= 0 {
		opts.UploadExpiry = DefaultPresignedURLExpiry
	}
	if opts.SignConcurrency <= 0 {
		opts.SignConcurrency = defaultSignConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BucketBackend{
		store:        store,
		urlExpiry:    opts.URLExpiry,
		uploadExpiry: opts.UploadExpiry,
		concurrency:  opts.SignConcurrency,
		logger:       logger.With(slog.String("component", "storage.bucket")),
	}
}

func (b *BucketBackend) Kind() BackendKind { return KindBucket }

// Bucket returns the bucket name of the underlying store.
func (b *BucketBackend) Bucket() string { return b.store.Bucket() }

// HeadInfo reads metadata of one object. A missing object is a failure here:
// the caller is relating a file that should already be uploaded.
func (b *BucketBackend) HeadInfo(ctx context.Context, path string) (ObjectInfo, error) {
	info, err := b.store.HeadObject(ctx, path)
	if err != nil {
		return ObjectInfo{}, &BackendError{Op: "head", Path: path, Err: err}
	}
	return info, nil
}

func (b *BucketBackend) FilesInfo(ctx context.Context, paths []string) (map[string]ObjectInfo, error) {
	out := make(map[string]ObjectInfo, len(paths))
	for _, p := range uniquePaths(paths) {
		info, err := b.HeadInfo(ctx, p)
		if err != nil {
			return nil, err
		}
		out[p] = info
	}
	return out, nil
}

// SignURL presigns one download. It returns nil when no object exists under
// the path, so that a record whose file vanished still renders.
func (b *BucketBackend) SignURL(ctx context.Context, file FileRef) (*string, error) {
	if _, err := b.store.HeadObject(ctx, file.Path); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			b.logger.Debug("object missing, url resolves to null", slog.String("path", file.Path))
			return nil, nil
		}
		return nil, &BackendError{Op: "sign", Path: file.Path, Err: err}
	}

	u, err := b.store.PresignGetObject(ctx, file.Path, file.Name, b.urlExpiry)
	if err != nil {
		return nil, &BackendError{Op: "sign", Path: file.Path, Err: err}
	}
	return &u, nil
}

// SignURLs signs each file concurrently. The first failure other than a
// missing object cancels the rest and fails the whole batch.
func (b *BucketBackend) SignURLs(ctx context.Context, files []FileRef) (map[string]string, error) {
	out := make(map[string]string, len(files))
	if len(files) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	seen := make(map[string]struct{}, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for _, f := range files {
		if f.Path == "" {
			continue
		}
		if _, dup := seen[f.Path]; dup {
			continue
		}
		seen[f.Path] = struct{}{}

		g.Go(func() error {
			u, err := b.SignURL(gctx, f)
			if err != nil {
				return err
			}
			if u == nil {
				return nil
			}
			mu.Lock()
			out[f.Path] = *u
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BucketBackend) DeleteObjects(ctx context.Context, paths []string) error {
	for _, p := range uniquePaths(paths) {
		if err := b.store.DeleteObject(ctx, p); err != nil {
			if errors.Is(err, ErrObjectNotFound) {
				continue
			}
			return &BackendError{Op: "delete", Path: p, Err: err}
		}
	}
	return nil
}

// PresignUpload implements UploadSigner.
func (b *BucketBackend) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	u, err := b.store.PresignPutObject(ctx, key, contentType, b.uploadExpiry)
	if err != nil {
		return "", &BackendError{Op: "presign_upload", Path: key, Err: err}
	}
	return u, nil
}
