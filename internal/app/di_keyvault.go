package app

import (
	"context"
	"fmt"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	keyvaultHTTP "github.com/echocipher/carrier/internal/keyvault/http"
	keyvaultRepository "github.com/echocipher/carrier/internal/keyvault/repository"
	keyvaultService "github.com/echocipher/carrier/internal/keyvault/service"
	keyvaultUseCase "github.com/echocipher/carrier/internal/keyvault/usecase"
)

// KMSService returns the KMS service used to unwrap the protection key.
func (c *Container) KMSService() keyvaultService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = keyvaultService.NewKMSService()
	})
	return c.kmsService
}

// KeyProtector returns the at-rest protector of stored master keys.
func (c *Container) KeyProtector() (*keyvaultService.KeyProtector, error) {
	var err error
	c.keyProtectorInit.Do(func() {
		c.keyProtector, err = c.initKeyProtector()
		if err != nil {
			c.initErrors["keyProtector"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyProtector"]; exists {
		return nil, storedErr
	}
	return c.keyProtector, nil
}

// MasterKeyRepository returns the master key repository based on database driver.
func (c *Container) MasterKeyRepository() (keyvaultUseCase.MasterKeyRepository, error) {
	var err error
	c.masterKeyRepositoryInit.Do(func() {
		c.masterKeyRepository, err = c.initMasterKeyRepository()
		if err != nil {
			c.initErrors["masterKeyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyRepository"]; exists {
		return nil, storedErr
	}
	return c.masterKeyRepository, nil
}

// VaultUseCase returns the key vault.
func (c *Container) VaultUseCase() (keyvaultUseCase.VaultUseCase, error) {
	var err error
	c.vaultUseCaseInit.Do(func() {
		c.vaultUseCase, err = c.initVaultUseCase()
		if err != nil {
			c.initErrors["vaultUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultUseCase"]; exists {
		return nil, storedErr
	}
	return c.vaultUseCase, nil
}

// KeyHandler returns the HTTP handler for key management.
func (c *Container) KeyHandler() (*keyvaultHTTP.KeyHandler, error) {
	var err error
	c.keyHandlerInit.Do(func() {
		c.keyHandler, err = c.initKeyHandler()
		if err != nil {
			c.initErrors["keyHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyHandler"]; exists {
		return nil, storedErr
	}
	return c.keyHandler, nil
}

// initKeyProtector loads the protection key. Without DB_ENCRYPTION_KEY the
// protector is still built and every vault operation that touches stored keys
// fails with an encryption config error.
func (c *Container) initKeyProtector() (*keyvaultService.KeyProtector, error) {
	algorithm := keyvaultDomain.Algorithm(c.config.KeyVaultAlgorithm)
	aeadManager := keyvaultService.NewAEADManager()

	if c.config.DBEncryptionKey == "" {
		c.Logger().Warn("DB_ENCRYPTION_KEY is not set, stored master keys are unavailable")
		return keyvaultService.NewKeyProtector(nil, algorithm, aeadManager), nil
	}

	protectionKey, err := keyvaultService.LoadProtectionKey(
		context.Background(),
		keyvaultService.ProtectionKeyConfig{
			Key:         c.config.DBEncryptionKey,
			KMSProvider: c.config.KMSProvider,
			KMSKeyURI:   c.config.KMSKeyURI,
		},
		c.KMSService(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load protection key: %w", err)
	}

	return keyvaultService.NewKeyProtector(protectionKey, algorithm, aeadManager), nil
}

func (c *Container) initMasterKeyRepository() (keyvaultUseCase.MasterKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for master key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres", "pgx":
		return keyvaultRepository.NewPostgreSQLMasterKeyRepository(db), nil
	case "mysql":
		return keyvaultRepository.NewMySQLMasterKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initVaultUseCase() (keyvaultUseCase.VaultUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for vault use case: %w", err)
	}

	keyRepository, err := c.MasterKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key repository for vault use case: %w", err)
	}

	protector, err := c.KeyProtector()
	if err != nil {
		return nil, fmt.Errorf("failed to get key protector for vault use case: %w", err)
	}

	baseUseCase := keyvaultUseCase.NewVaultUseCase(
		keyvaultUseCase.Config{BootstrapKeyHex: c.config.MasterKeyHex},
		txManager,
		keyRepository,
		protector,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for vault use case: %w", err)
		}
		return keyvaultUseCase.NewVaultUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) initKeyHandler() (*keyvaultHTTP.KeyHandler, error) {
	vaultUseCase, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for key handler: %w", err)
	}
	return keyvaultHTTP.NewKeyHandler(vaultUseCase, c.Logger()), nil
}
