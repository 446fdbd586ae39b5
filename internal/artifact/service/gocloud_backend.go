package service

import (
	"context"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	artifactDomain "github.com/echocipher/carrier/internal/artifact/domain"
	apperrors "github.com/echocipher/carrier/internal/errors"
)

// GoCloudBackend stores objects in a gocloud.dev bucket opened from a URL such
// as file:///var/lib/carrier or mem://.
type GoCloudBackend struct {
	bucket *blob.Bucket
}

// NewGoCloudBackend opens the bucket at bucketURL.
func NewGoCloudBackend(ctx context.Context, bucketURL string) (*GoCloudBackend, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open artifact bucket")
	}
	return &GoCloudBackend{bucket: bucket}, nil
}

func (g *GoCloudBackend) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	opts := &blob.WriterOptions{
		ContentType: "application/octet-stream",
		Metadata:    metadata,
	}
	if err := g.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return artifactDomain.NewStorageError(err)
	}
	return nil
}

func (g *GoCloudBackend) Get(ctx context.Context, key string) ([]byte, map[string]string, error) {
	attrs, err := g.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, nil, g.mapError(err)
	}
	data, err := g.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, nil, g.mapError(err)
	}
	return data, attrs.Metadata, nil
}

func (g *GoCloudBackend) Head(ctx context.Context, key string) (map[string]string, int64, error) {
	attrs, err := g.bucket.Attributes(ctx, key)
	if err != nil {
		return nil, 0, g.mapError(err)
	}
	return attrs.Metadata, attrs.Size, nil
}

func (g *GoCloudBackend) Delete(ctx context.Context, key string) error {
	err := g.bucket.Delete(ctx, key)
	if err == nil || gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return artifactDomain.NewStorageError(err)
}

func (g *GoCloudBackend) Close() error {
	return g.bucket.Close()
}

func (g *GoCloudBackend) mapError(err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return artifactDomain.ErrObjectNotFound
	}
	return artifactDomain.NewStorageError(err)
}
