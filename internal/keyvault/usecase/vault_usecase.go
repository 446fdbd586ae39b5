package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/echocipher/carrier/internal/database"
	apperrors "github.com/echocipher/carrier/internal/errors"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	keyvaultService "github.com/echocipher/carrier/internal/keyvault/service"
)

// ErrActiveKeyExists is returned by GenerateKey when the scope already has an active key.
var ErrActiveKeyExists = apperrors.Wrap(apperrors.ErrConflict, "scope already has an active key, rotate it instead")

// Config holds vault settings.
type Config struct {
	// BootstrapKeyHex is the externally configured fallback master key (MASTER_KEY_HEX).
	BootstrapKeyHex string

	// VersionMaxTries bounds the transactions attempted when a concurrent
	// writer allocated the same key version first. Zero means 5.
	VersionMaxTries uint

	// VersionRetryInterval is the first backoff interval between those attempts.
	VersionRetryInterval time.Duration
}

type vaultUseCase struct {
	config    Config
	txManager database.TxManager
	keyRepo   MasterKeyRepository
	protector *keyvaultService.KeyProtector
}

// NewVaultUseCase creates a new VaultUseCase.
func NewVaultUseCase(
	config Config,
	txManager database.TxManager,
	keyRepo MasterKeyRepository,
	protector *keyvaultService.KeyProtector,
) VaultUseCase {
	return &vaultUseCase{
		config:    config,
		txManager: txManager,
		keyRepo:   keyRepo,
		protector: protector,
	}
}

func (v *vaultUseCase) GetOrCreateMasterKey(
	ctx context.Context,
	userID string,
) (*keyvaultDomain.ResolvedKey, error) {
	if err := keyvaultDomain.ValidateScope(userID); err != nil {
		return nil, err
	}

	for _, scope := range []string{userID, keyvaultDomain.SystemScope} {
		record, err := v.keyRepo.GetActive(ctx, scope)
		if err != nil {
			if apperrors.Is(err, keyvaultDomain.ErrMasterKeyNotFound) {
				continue
			}
			return nil, err
		}
		return v.resolve(record)
	}

	return v.bootstrap()
}

func (v *vaultUseCase) GenerateKey(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	if err := keyvaultDomain.ValidateScope(scope); err != nil {
		return nil, err
	}

	var created *keyvaultDomain.MasterKey
	err := v.allocate(ctx, func(ctx context.Context) error {
		_, err := v.keyRepo.GetActive(ctx, scope)
		if err == nil {
			return ErrActiveKeyExists
		}
		if !apperrors.Is(err, keyvaultDomain.ErrMasterKeyNotFound) {
			return err
		}

		created, err = v.createGenerated(ctx, scope)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (v *vaultUseCase) ImportKey(
	ctx context.Context,
	scope, hexKey string,
) (*keyvaultDomain.ResolvedKey, error) {
	if err := keyvaultDomain.ValidateHexKey(hexKey); err != nil {
		return nil, err
	}
	if err := keyvaultDomain.ValidateScope(scope); err != nil {
		return nil, err
	}

	encrypted, err := v.protector.EncryptAtRest(hexKey)
	if err != nil {
		return nil, err
	}

	var record *keyvaultDomain.MasterKey
	err = v.allocate(ctx, func(ctx context.Context) error {
		version, err := v.keyRepo.GetLatestVersion(ctx, scope)
		if err != nil {
			return err
		}
		record = &keyvaultDomain.MasterKey{
			ID:           uuid.Must(uuid.NewV7()),
			Scope:        scope,
			Version:      version + 1,
			Algorithm:    v.protector.Algorithm(),
			EncryptedKey: encrypted,
			Source:       keyvaultDomain.SourceSupplied,
			IsActive:     false,
			CreatedAt:    time.Now().UTC(),
		}
		return v.keyRepo.Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return &keyvaultDomain.ResolvedKey{
		Hex:       hexKey,
		Reference: referenceFor(record, hexKey),
	}, nil
}

func (v *vaultUseCase) DiscardImported(ctx context.Context, ref keyvaultDomain.KeyReference) error {
	if ref.ID == nil {
		return nil
	}
	return v.keyRepo.DeleteSupplied(ctx, *ref.ID)
}

func (v *vaultUseCase) Rotate(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	if err := keyvaultDomain.ValidateScope(scope); err != nil {
		return nil, err
	}

	var created *keyvaultDomain.MasterKey
	err := v.allocate(ctx, func(ctx context.Context) error {
		current, err := v.keyRepo.GetActive(ctx, scope)
		if err != nil {
			return err
		}

		if err := v.keyRepo.Deactivate(ctx, current.ID, time.Now().UTC()); err != nil {
			return err
		}

		created, err = v.createGenerated(ctx, scope)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (v *vaultUseCase) Reveal(ctx context.Context, ref keyvaultDomain.KeyReference) (string, error) {
	if ref.ID == nil {
		resolved, err := v.bootstrap()
		if err != nil {
			return "", err
		}
		if resolved.Reference.Fingerprint != ref.Fingerprint {
			return "", apperrors.Wrap(keyvaultDomain.ErrNoKeyAvailable, "bootstrap key changed since encoding")
		}
		return resolved.Hex, nil
	}

	record, err := v.keyRepo.GetByID(ctx, *ref.ID)
	if err != nil {
		return "", err
	}

	resolved, err := v.resolve(record)
	if err != nil {
		return "", err
	}
	if ref.Fingerprint != "" && resolved.Reference.Fingerprint != ref.Fingerprint {
		return "", apperrors.Wrap(keyvaultDomain.ErrDecryptionFailed, "stored key does not match pinned fingerprint")
	}
	return resolved.Hex, nil
}

func (v *vaultUseCase) ListKeys(ctx context.Context, scope string) ([]*keyvaultDomain.MasterKey, error) {
	if err := keyvaultDomain.ValidateScope(scope); err != nil {
		return nil, err
	}
	return v.keyRepo.ListByScope(ctx, scope)
}

func (v *vaultUseCase) EncryptAtRest(plainHexKey string) (string, error) {
	return v.protector.EncryptAtRest(plainHexKey)
}

func (v *vaultUseCase) DecryptAtRest(encryptedForm string) (string, error) {
	return v.protector.DecryptAtRest(encryptedForm)
}

// allocate runs fn in a transaction and reruns it while the version it
// allocated was taken by a concurrent transaction on the same scope.
func (v *vaultUseCase) allocate(ctx context.Context, fn func(ctx context.Context) error) error {
	operation := func() (struct{}, error) {
		err := v.txManager.WithTx(ctx, fn)
		if err != nil && !apperrors.Is(err, keyvaultDomain.ErrVersionConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	maxTries := v.config.VersionMaxTries
	if maxTries == 0 {
		maxTries = 5
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	if v.config.VersionRetryInterval > 0 {
		bo.InitialInterval = v.config.VersionRetryInterval
	}

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(maxTries))
	return err
}

// createGenerated runs inside allocate; the repository locks the scope while
// reading the latest version.
func (v *vaultUseCase) createGenerated(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	version, err := v.keyRepo.GetLatestVersion(ctx, scope)
	if err != nil {
		return nil, err
	}

	plain, err := keyvaultService.GenerateHexKey()
	if err != nil {
		return nil, err
	}

	encrypted, err := v.protector.EncryptAtRest(plain)
	if err != nil {
		return nil, err
	}

	record := &keyvaultDomain.MasterKey{
		ID:           uuid.Must(uuid.NewV7()),
		Scope:        scope,
		Version:      version + 1,
		Algorithm:    v.protector.Algorithm(),
		EncryptedKey: encrypted,
		Source:       keyvaultDomain.SourceGenerated,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := v.keyRepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (v *vaultUseCase) resolve(record *keyvaultDomain.MasterKey) (*keyvaultDomain.ResolvedKey, error) {
	plain, err := v.protector.WithAlgorithm(record.Algorithm).DecryptAtRest(record.EncryptedKey)
	if err != nil {
		return nil, err
	}
	return &keyvaultDomain.ResolvedKey{
		Hex:       plain,
		Reference: referenceFor(record, plain),
	}, nil
}

func (v *vaultUseCase) bootstrap() (*keyvaultDomain.ResolvedKey, error) {
	if v.config.BootstrapKeyHex == "" {
		return nil, keyvaultDomain.ErrNoKeyAvailable
	}
	if err := keyvaultDomain.ValidateHexKey(v.config.BootstrapKeyHex); err != nil {
		return nil, apperrors.Wrap(keyvaultDomain.ErrEncryptionConfig, "MASTER_KEY_HEX is malformed")
	}
	return &keyvaultDomain.ResolvedKey{
		Hex: v.config.BootstrapKeyHex,
		Reference: keyvaultDomain.KeyReference{
			Source:      keyvaultDomain.SourceBootstrap,
			Fingerprint: keyvaultDomain.Fingerprint(v.config.BootstrapKeyHex),
		},
	}, nil
}

func referenceFor(record *keyvaultDomain.MasterKey, plain string) keyvaultDomain.KeyReference {
	id := record.ID
	return keyvaultDomain.KeyReference{
		ID:          &id,
		Version:     record.Version,
		Source:      record.Source,
		Fingerprint: keyvaultDomain.Fingerprint(plain),
	}
}
