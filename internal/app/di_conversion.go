package app

import (
	"fmt"

	"github.com/spf13/afero"

	conversionHTTP "github.com/echocipher/carrier/internal/conversion/http"
	conversionService "github.com/echocipher/carrier/internal/conversion/service"
	conversionUseCase "github.com/echocipher/carrier/internal/conversion/usecase"
)

// UploadStore returns the on-disk spool for uploaded audio.
func (c *Container) UploadStore() (*conversionService.UploadStore, error) {
	var err error
	c.uploadStoreInit.Do(func() {
		c.uploadStore, err = conversionService.NewUploadStore(
			afero.NewOsFs(),
			c.config.UploadDir,
			c.config.MaxUploadBytes,
			c.Logger(),
		)
		if err != nil {
			c.initErrors["uploadStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["uploadStore"]; exists {
		return nil, storedErr
	}
	return c.uploadStore, nil
}

// ConversionUseCase returns the conversion orchestrator.
func (c *Container) ConversionUseCase() (conversionUseCase.ConversionUseCase, error) {
	var err error
	c.conversionUseCaseInit.Do(func() {
		c.conversionUseCase, err = c.initConversionUseCase()
		if err != nil {
			c.initErrors["conversionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["conversionUseCase"]; exists {
		return nil, storedErr
	}
	return c.conversionUseCase, nil
}

// ConversionHandler returns the HTTP handler for conversions.
func (c *Container) ConversionHandler() (*conversionHTTP.ConversionHandler, error) {
	var err error
	c.conversionHandlerInit.Do(func() {
		c.conversionHandler, err = c.initConversionHandler()
		if err != nil {
			c.initErrors["conversionHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["conversionHandler"]; exists {
		return nil, storedErr
	}
	return c.conversionHandler, nil
}

func (c *Container) initConversionUseCase() (conversionUseCase.ConversionUseCase, error) {
	vault, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for conversion use case: %w", err)
	}

	ledger, err := c.LedgerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger use case for conversion use case: %w", err)
	}

	store, err := c.StoreUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get store use case for conversion use case: %w", err)
	}

	gateway, err := c.Gateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get gateway for conversion use case: %w", err)
	}

	uploads, err := c.UploadStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get upload store for conversion use case: %w", err)
	}

	baseUseCase := conversionUseCase.NewConversionUseCase(
		c.conversionConfig(),
		vault,
		ledger,
		store,
		gateway,
		uploads,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for conversion use case: %w", err)
		}
		return conversionUseCase.NewConversionUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) conversionConfig() conversionUseCase.Config {
	return conversionUseCase.Config{
		MaxUploadBytes:  c.config.MaxUploadBytes,
		DefaultCompress: c.config.GatewayDefaultCompress,
		MaxEntryBytes:   c.config.GatewayMaxResponseBytes,
	}
}

func (c *Container) initConversionHandler() (*conversionHTTP.ConversionHandler, error) {
	useCase, err := c.ConversionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion use case for conversion handler: %w", err)
	}

	uploads, err := c.UploadStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get upload store for conversion handler: %w", err)
	}

	return conversionHTTP.NewConversionHandler(useCase, uploads, c.Logger()), nil
}
