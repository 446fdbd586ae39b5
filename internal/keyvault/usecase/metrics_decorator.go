package usecase

import (
	"context"
	"time"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	"github.com/echocipher/carrier/internal/metrics"
)

const metricsDomain = "keyvault"

// vaultUseCaseWithMetrics decorates VaultUseCase with metrics instrumentation.
type vaultUseCaseWithMetrics struct {
	next    VaultUseCase
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a VaultUseCase with metrics recording.
func NewVaultUseCaseWithMetrics(useCase VaultUseCase, m metrics.BusinessMetrics) VaultUseCase {
	return &vaultUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (v *vaultUseCaseWithMetrics) GetOrCreateMasterKey(
	ctx context.Context,
	userID string,
) (*keyvaultDomain.ResolvedKey, error) {
	start := time.Now()
	key, err := v.next.GetOrCreateMasterKey(ctx, userID)
	metrics.Observe(ctx, v.metrics, metricsDomain, "key_resolve", start, err)
	return key, err
}

func (v *vaultUseCaseWithMetrics) GenerateKey(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	start := time.Now()
	key, err := v.next.GenerateKey(ctx, scope)
	metrics.Observe(ctx, v.metrics, metricsDomain, "key_generate", start, err)
	return key, err
}

func (v *vaultUseCaseWithMetrics) ImportKey(
	ctx context.Context,
	scope, hexKey string,
) (*keyvaultDomain.ResolvedKey, error) {
	start := time.Now()
	key, err := v.next.ImportKey(ctx, scope, hexKey)
	metrics.Observe(ctx, v.metrics, metricsDomain, "key_import", start, err)
	return key, err
}

func (v *vaultUseCaseWithMetrics) DiscardImported(ctx context.Context, ref keyvaultDomain.KeyReference) error {
	start := time.Now()
	err := v.next.DiscardImported(ctx, ref)
	metrics.Observe(ctx, v.metrics, metricsDomain, "key_discard", start, err)
	return err
}

func (v *vaultUseCaseWithMetrics) Rotate(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	start := time.Now()
	key, err := v.next.Rotate(ctx, scope)
	metrics.Observe(ctx, v.metrics, metricsDomain, "key_rotate", start, err)
	return key, err
}

func (v *vaultUseCaseWithMetrics) Reveal(ctx context.Context, ref keyvaultDomain.KeyReference) (string, error) {
	start := time.Now()
	key, err := v.next.Reveal(ctx, ref)
	metrics.Observe(ctx, v.metrics, metricsDomain, "key_reveal", start, err)
	return key, err
}

func (v *vaultUseCaseWithMetrics) ListKeys(ctx context.Context, scope string) ([]*keyvaultDomain.MasterKey, error) {
	start := time.Now()
	keys, err := v.next.ListKeys(ctx, scope)
	metrics.Observe(ctx, v.metrics, metricsDomain, "key_list", start, err)
	return keys, err
}

func (v *vaultUseCaseWithMetrics) EncryptAtRest(plainHexKey string) (string, error) {
	start := time.Now()
	form, err := v.next.EncryptAtRest(plainHexKey)
	metrics.Observe(context.Background(), v.metrics, metricsDomain, "encrypt_at_rest", start, err)
	return form, err
}

func (v *vaultUseCaseWithMetrics) DecryptAtRest(encryptedForm string) (string, error) {
	start := time.Now()
	key, err := v.next.DecryptAtRest(encryptedForm)
	metrics.Observe(context.Background(), v.metrics, metricsDomain, "decrypt_at_rest", start, err)
	return key, err
}
