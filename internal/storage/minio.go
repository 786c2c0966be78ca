package storage

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alcyxob/attachment-service/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioObjectStore implements ObjectStore with the MinIO client, for
// self-hosted S3-compatible deployments.
type minioObjectStore struct {
	client     *minio.Client
	bucketName string
	logger     *slog.Logger
}

// NewMinioObjectStore creates an ObjectStore bound to cfg.BucketName.
func NewMinioObjectStore(cfg config.S3Config, logger *slog.Logger) (ObjectStore, error) {
	// minio.New wants host[:port] without scheme
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("MinIO object store initialized",
		slog.String("endpoint", endpoint),
		slog.String("bucket", cfg.BucketName),
	)

	return &minioObjectStore{client: client, bucketName: cfg.BucketName, logger: logger}, nil
}

func (m *minioObjectStore) Bucket() string { return m.bucketName }

func (m *minioObjectStore) HeadObject(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, err
	}

	size := info.Size
	out := ObjectInfo{ContentLength: &size}
	if info.ContentType != "" {
		contentType := info.ContentType
		out.ContentType = &contentType
	}
	return out, nil
}

func (m *minioObjectStore) PresignGetObject(ctx context.Context, key, fileName string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	params := url.Values{}
	if cd := contentDisposition(fileName); cd != "" {
		params.Set("response-content-disposition", cd)
	}

	u, err := m.client.PresignedGetObject(ctx, m.bucketName, key, expires, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// PresignPutObject ignores contentType: MinIO presigned PUTs do not sign it.
func (m *minioObjectStore) PresignPutObject(ctx context.Context, key, _ string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	u, err := m.client.PresignedPutObject(ctx, m.bucketName, key, expires)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *minioObjectStore) DeleteObject(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return ErrObjectNotFound
		}
		return err
	}

	m.logger.Debug("deleted object", slog.String("key", key), slog.String("bucket", m.bucketName))
	return nil
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchBucket" {
		return false
	}
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
