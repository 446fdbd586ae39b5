package app

import (
	"fmt"

	ledgerRepository "github.com/echocipher/carrier/internal/ledger/repository"
	ledgerUseCase "github.com/echocipher/carrier/internal/ledger/usecase"
)

// ConversionRepository returns the ledger repository based on database driver.
func (c *Container) ConversionRepository() (ledgerUseCase.ConversionRepository, error) {
	var err error
	c.conversionRepositoryInit.Do(func() {
		c.conversionRepository, err = c.initConversionRepository()
		if err != nil {
			c.initErrors["conversionRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["conversionRepository"]; exists {
		return nil, storedErr
	}
	return c.conversionRepository, nil
}

// LedgerUseCase returns the conversion ledger.
func (c *Container) LedgerUseCase() (ledgerUseCase.LedgerUseCase, error) {
	var err error
	c.ledgerUseCaseInit.Do(func() {
		c.ledgerUseCase, err = c.initLedgerUseCase()
		if err != nil {
			c.initErrors["ledgerUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ledgerUseCase"]; exists {
		return nil, storedErr
	}
	return c.ledgerUseCase, nil
}

func (c *Container) initConversionRepository() (ledgerUseCase.ConversionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for conversion repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres", "pgx":
		return ledgerRepository.NewPostgreSQLConversionRepository(db), nil
	case "mysql":
		return ledgerRepository.NewMySQLConversionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initLedgerUseCase wires the outbox as the event recorder when it is enabled.
func (c *Container) initLedgerUseCase() (ledgerUseCase.LedgerUseCase, error) {
	repository, err := c.ConversionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion repository for ledger use case: %w", err)
	}

	var recorder ledgerUseCase.EventRecorder
	if c.config.OutboxEnabled {
		outbox, err := c.OutboxUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get outbox use case for ledger use case: %w", err)
		}
		recorder = outbox
	}

	baseUseCase := ledgerUseCase.NewLedgerUseCase(repository, recorder, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for ledger use case: %w", err)
		}
		return ledgerUseCase.NewLedgerUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
