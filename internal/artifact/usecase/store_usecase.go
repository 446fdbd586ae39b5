package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	artifactDomain "github.com/echocipher/carrier/internal/artifact/domain"
	artifactService "github.com/echocipher/carrier/internal/artifact/service"
	apperrors "github.com/echocipher/carrier/internal/errors"
)

// Config holds artifact store configuration.
type Config struct {
	// DeleteMaxTries bounds the DeleteArtifact attempts. Zero means five.
	DeleteMaxTries uint
	// DeleteConcurrency bounds parallel deletes. Zero means eight.
	DeleteConcurrency int
	// DeleteRetryInterval is the initial backoff between attempts. Zero uses the backoff default.
	DeleteRetryInterval time.Duration
}

type storeUseCase struct {
	config  Config
	backend artifactService.Backend
	logger  *slog.Logger
}

// NewStoreUseCase creates a new StoreUseCase.
func NewStoreUseCase(config Config, backend artifactService.Backend, logger *slog.Logger) StoreUseCase {
	if config.DeleteMaxTries == 0 {
		config.DeleteMaxTries = 5
	}
	if config.DeleteConcurrency <= 0 {
		config.DeleteConcurrency = 8
	}
	return &storeUseCase{
		config:  config,
		backend: backend,
		logger:  logger,
	}
}

func (s *storeUseCase) PutChunk(
	ctx context.Context,
	data []byte,
	fileName string,
	metadata artifactDomain.Metadata,
) (uuid.UUID, error) {
	metadata.Kind = artifactDomain.KindChunk
	return s.put(ctx, data, fileName, metadata)
}

func (s *storeUseCase) PutBundle(
	ctx context.Context,
	data []byte,
	fileName string,
	metadata artifactDomain.Metadata,
) (uuid.UUID, error) {
	metadata.Kind = artifactDomain.KindBundle
	metadata.Index = 0
	return s.put(ctx, data, fileName, metadata)
}

func (s *storeUseCase) put(
	ctx context.Context,
	data []byte,
	fileName string,
	metadata artifactDomain.Metadata,
) (uuid.UUID, error) {
	if len(data) == 0 {
		return uuid.Nil, artifactDomain.ErrEmptyContent
	}
	if fileName == "" {
		return uuid.Nil, apperrors.Wrap(apperrors.ErrInvalidInput, "artifact file name is required")
	}

	id := uuid.Must(uuid.NewV7())
	metadata.FileName = fileName
	metadata.SHA256 = artifactDomain.Checksum(data)
	metadata.Size = int64(len(data))

	if err := s.backend.Put(ctx, artifactDomain.ObjectKey(id), data, metadata.ToMap()); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *storeUseCase) Get(ctx context.Context, id uuid.UUID) (*artifactDomain.Object, error) {
	data, raw, err := s.backend.Get(ctx, artifactDomain.ObjectKey(id))
	if err != nil {
		return nil, err
	}

	metadata := artifactDomain.MetadataFromMap(raw)
	if metadata.SHA256 != "" && metadata.SHA256 != artifactDomain.Checksum(data) {
		s.logger.Error("artifact checksum mismatch", slog.String("artifact_id", id.String()))
		return nil, artifactDomain.ErrChecksumMismatch
	}
	return &artifactDomain.Object{ID: id, Metadata: metadata, Data: data}, nil
}

func (s *storeUseCase) Stat(ctx context.Context, id uuid.UUID) (*artifactDomain.Metadata, error) {
	raw, size, err := s.backend.Head(ctx, artifactDomain.ObjectKey(id))
	if err != nil {
		return nil, err
	}
	metadata := artifactDomain.MetadataFromMap(raw)
	metadata.Size = size
	return &metadata, nil
}

func (s *storeUseCase) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.Stat(ctx, id)
	if err == nil {
		return true, nil
	}
	if apperrors.Is(err, artifactDomain.ErrObjectNotFound) {
		return false, nil
	}
	return false, err
}

func (s *storeUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return s.backend.Delete(ctx, artifactDomain.ObjectKey(id))
}

func (s *storeUseCase) DeleteArtifact(ctx context.Context, bundleID *uuid.UUID, chunkIDs []uuid.UUID) error {
	remaining := make([]uuid.UUID, 0, len(chunkIDs)+1)
	seen := make(map[uuid.UUID]struct{}, len(chunkIDs)+1)
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			return
		}
		seen[id] = struct{}{}
		remaining = append(remaining, id)
	}
	if bundleID != nil {
		add(*bundleID)
	}
	for _, id := range chunkIDs {
		add(id)
	}
	if len(remaining) == 0 {
		return nil
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		failed, lastErr := s.deleteAll(ctx, remaining)
		remaining = failed
		if len(failed) == 0 {
			return struct{}{}, nil
		}
		s.logger.Warn("artifact delete incomplete",
			slog.Int("attempt", attempt),
			slog.Int("remaining", len(failed)),
			slog.Any("error", lastErr),
		)
		return struct{}{}, lastErr
	}

	bo := backoff.NewExponentialBackOff()
	if s.config.DeleteRetryInterval > 0 {
		bo.InitialInterval = s.config.DeleteRetryInterval
	}
	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(s.config.DeleteMaxTries))
	if err != nil && len(remaining) > 0 {
		return &artifactDomain.PartialDeleteError{Remaining: remaining, Err: err}
	}
	return nil
}

// deleteAll deletes ids in parallel and returns the ids that failed, in input order.
func (s *storeUseCase) deleteAll(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var (
		mu      sync.Mutex
		lastErr error
		failed  = make([]bool, len(ids))
	)

	var g errgroup.Group
	g.SetLimit(s.config.DeleteConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := s.backend.Delete(ctx, artifactDomain.ObjectKey(id)); err != nil {
				mu.Lock()
				failed[i] = true
				lastErr = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]uuid.UUID, 0)
	for i, id := range ids {
		if failed[i] {
			out = append(out, id)
		}
	}
	return out, lastErr
}
