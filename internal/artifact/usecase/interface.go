// Package usecase implements the artifact store on top of a storage backend.
package usecase

import (
	"context"

	"github.com/google/uuid"

	artifactDomain "github.com/echocipher/carrier/internal/artifact/domain"
)

// StoreUseCase stores bundles and chunks as immutable objects addressed by id.
type StoreUseCase interface {
	// PutChunk stores one chunk. metadata.Index must be set by the caller.
	PutChunk(ctx context.Context, data []byte, fileName string, metadata artifactDomain.Metadata) (uuid.UUID, error)

	PutBundle(ctx context.Context, data []byte, fileName string, metadata artifactDomain.Metadata) (uuid.UUID, error)

	// Get returns the object content after verifying its checksum.
	Get(ctx context.Context, id uuid.UUID) (*artifactDomain.Object, error)

	Stat(ctx context.Context, id uuid.UUID) (*artifactDomain.Metadata, error)

	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// Delete is idempotent.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteArtifact removes the bundle (when not nil) and every chunk, retrying
	// failures. When objects survive every attempt it returns a
	// *artifactDomain.PartialDeleteError naming them.
	DeleteArtifact(ctx context.Context, bundleID *uuid.UUID, chunkIDs []uuid.UUID) error
}
