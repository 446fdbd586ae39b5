package service

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	artifactDomain "github.com/echocipher/carrier/internal/artifact/domain"
	apperrors "github.com/echocipher/carrier/internal/errors"
)

// MinIOConfig configures the MinIO backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// MinIOBackend stores objects in a MinIO bucket.
type MinIOBackend struct {
	client *minio.Client
	bucket string
}

// NewMinIOBackend connects to MinIO and creates the bucket when missing.
func NewMinIOBackend(ctx context.Context, cfg MinIOConfig) (*MinIOBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create minio client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to check minio bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, apperrors.Wrap(err, "failed to create minio bucket")
		}
	}

	return &MinIOBackend{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinIOBackend) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	_, err := m.client.PutObject(
		ctx,
		m.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  "application/octet-stream",
			UserMetadata: metadata,
		},
	)
	if err != nil {
		return artifactDomain.NewStorageError(err)
	}
	return nil
}

func (m *MinIOBackend) Get(ctx context.Context, key string) ([]byte, map[string]string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, m.mapError(err)
	}
	defer func() {
		_ = obj.Close()
	}()

	info, err := obj.Stat()
	if err != nil {
		return nil, nil, m.mapError(err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, nil, m.mapError(err)
	}
	return data, info.UserMetadata, nil
}

func (m *MinIOBackend) Head(ctx context.Context, key string) (map[string]string, int64, error) {
	info, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, 0, m.mapError(err)
	}
	return info.UserMetadata, info.Size, nil
}

func (m *MinIOBackend) Delete(ctx context.Context, key string) error {
	err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}
	if isMinIONotFound(err) {
		return nil
	}
	return artifactDomain.NewStorageError(err)
}

// Close is a no-op.
func (m *MinIOBackend) Close() error {
	return nil
}

func (m *MinIOBackend) mapError(err error) error {
	if isMinIONotFound(err) {
		return artifactDomain.ErrObjectNotFound
	}
	return artifactDomain.NewStorageError(err)
}

func isMinIONotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
