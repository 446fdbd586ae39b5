// Package usecase implements the key vault business rules: key resolution for
// conversions, explicit generation, rotation and at-rest protection.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

// MasterKeyRepository persists vault records.
type MasterKeyRepository interface {
	// Create inserts a new record.
	Create(ctx context.Context, key *keyvaultDomain.MasterKey) error

	// GetByID returns ErrMasterKeyNotFound when the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*keyvaultDomain.MasterKey, error)

	// GetActive returns the active record of scope or ErrMasterKeyNotFound.
	GetActive(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error)

	// GetLatestVersion returns the highest version stored for scope, or 0.
	GetLatestVersion(ctx context.Context, scope string) (uint, error)

	// ListByScope returns every record of scope, newest version first.
	ListByScope(ctx context.Context, scope string) ([]*keyvaultDomain.MasterKey, error)

	// Deactivate clears the active flag of id if it is still set. It returns
	// ErrConflict when the record was not active anymore.
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error

	// DeleteSupplied removes an inactive caller-supplied record. It returns
	// ErrMasterKeyNotFound when no such record exists.
	DeleteSupplied(ctx context.Context, id uuid.UUID) error
}

// VaultUseCase is the key vault.
type VaultUseCase interface {
	// GetOrCreateMasterKey resolves the key used for a new conversion of userID:
	// the user's active key, then the system key, then the bootstrap key.
	// It never generates a key and fails with ErrNoKeyAvailable instead.
	GetOrCreateMasterKey(ctx context.Context, userID string) (*keyvaultDomain.ResolvedKey, error)

	// GenerateKey creates the first active key of scope.
	GenerateKey(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error)

	// ImportKey stores a caller-supplied key as an inactive record so a conversion can pin it.
	ImportKey(ctx context.Context, scope, hexKey string) (*keyvaultDomain.ResolvedKey, error)

	// DiscardImported deletes a key stored by ImportKey that no conversion pinned.
	DiscardImported(ctx context.Context, ref keyvaultDomain.KeyReference) error

	// Rotate deactivates the active key of scope and creates the next version.
	Rotate(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error)

	// Reveal returns the plaintext of a pinned key.
	Reveal(ctx context.Context, ref keyvaultDomain.KeyReference) (string, error)

	// ListKeys returns every version of scope, superseded ones included.
	ListKeys(ctx context.Context, scope string) ([]*keyvaultDomain.MasterKey, error)

	EncryptAtRest(plainHexKey string) (string, error)
	DecryptAtRest(encryptedForm string) (string, error)
}
