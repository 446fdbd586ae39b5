package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	artifactDomain "github.com/echocipher/carrier/internal/artifact/domain"
	"github.com/echocipher/carrier/internal/metrics"
)

const metricsDomain = "artifact"

// storeUseCaseWithMetrics decorates StoreUseCase with metrics instrumentation.
type storeUseCaseWithMetrics struct {
	next    StoreUseCase
	metrics metrics.BusinessMetrics
}

// NewStoreUseCaseWithMetrics wraps a StoreUseCase with metrics recording.
func NewStoreUseCaseWithMetrics(useCase StoreUseCase, m metrics.BusinessMetrics) StoreUseCase {
	return &storeUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *storeUseCaseWithMetrics) PutChunk(
	ctx context.Context,
	data []byte,
	fileName string,
	metadata artifactDomain.Metadata,
) (uuid.UUID, error) {
	start := time.Now()
	id, err := s.next.PutChunk(ctx, data, fileName, metadata)
	metrics.Observe(ctx, s.metrics, metricsDomain, "chunk_put", start, err)
	return id, err
}

func (s *storeUseCaseWithMetrics) PutBundle(
	ctx context.Context,
	data []byte,
	fileName string,
	metadata artifactDomain.Metadata,
) (uuid.UUID, error) {
	start := time.Now()
	id, err := s.next.PutBundle(ctx, data, fileName, metadata)
	metrics.Observe(ctx, s.metrics, metricsDomain, "bundle_put", start, err)
	return id, err
}

func (s *storeUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*artifactDomain.Object, error) {
	start := time.Now()
	obj, err := s.next.Get(ctx, id)
	metrics.Observe(ctx, s.metrics, metricsDomain, "object_get", start, err)
	return obj, err
}

func (s *storeUseCaseWithMetrics) Stat(ctx context.Context, id uuid.UUID) (*artifactDomain.Metadata, error) {
	start := time.Now()
	meta, err := s.next.Stat(ctx, id)
	metrics.Observe(ctx, s.metrics, metricsDomain, "object_stat", start, err)
	return meta, err
}

func (s *storeUseCaseWithMetrics) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	start := time.Now()
	ok, err := s.next.Exists(ctx, id)
	metrics.Observe(ctx, s.metrics, metricsDomain, "object_exists", start, err)
	return ok, err
}

func (s *storeUseCaseWithMetrics) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	metrics.Observe(ctx, s.metrics, metricsDomain, "object_delete", start, err)
	return err
}

func (s *storeUseCaseWithMetrics) DeleteArtifact(
	ctx context.Context,
	bundleID *uuid.UUID,
	chunkIDs []uuid.UUID,
) error {
	start := time.Now()
	err := s.next.DeleteArtifact(ctx, bundleID, chunkIDs)
	metrics.Observe(ctx, s.metrics, metricsDomain, "artifact_delete", start, err)
	return err
}
