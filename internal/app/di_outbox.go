package app

import (
	"context"
	"fmt"

	"github.com/echocipher/carrier/internal/outbox/publisher"
	outboxRepository "github.com/echocipher/carrier/internal/outbox/repository"
	outboxUseCase "github.com/echocipher/carrier/internal/outbox/usecase"
)

// OutboxRepository returns the outbox event repository based on database driver.
func (c *Container) OutboxRepository() (outboxUseCase.OutboxEventRepository, error) {
	var err error
	c.outboxRepositoryInit.Do(func() {
		c.outboxRepository, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepository"]; exists {
		return nil, storedErr
	}
	return c.outboxRepository, nil
}

// EventPublisher returns the publisher selected by OUTBOX_PUBLISHER.
func (c *Container) EventPublisher() (outboxUseCase.EventPublisher, error) {
	var err error
	c.eventPublisherInit.Do(func() {
		c.eventPublisher, err = c.initEventPublisher()
		if err != nil {
			c.initErrors["eventPublisher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventPublisher"]; exists {
		return nil, storedErr
	}
	return c.eventPublisher, nil
}

// OutboxUseCase returns the outbox recorder and processor.
func (c *Container) OutboxUseCase() (*outboxUseCase.OutboxUseCase, error) {
	var err error
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, err = c.initOutboxUseCase()
		if err != nil {
			c.initErrors["outboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

func (c *Container) initOutboxRepository() (outboxUseCase.OutboxEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres", "pgx":
		return outboxRepository.NewPostgreSQLOutboxEventRepository(db), nil
	case "mysql":
		return outboxRepository.NewMySQLOutboxEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initEventPublisher() (outboxUseCase.EventPublisher, error) {
	switch c.config.OutboxPublisher {
	case "", "log":
		return publisher.NewLogPublisher(c.Logger()), nil
	case "amqp":
		amqpPublisher, err := publisher.NewAMQPPublisher(context.Background(), publisher.AMQPConfig{
			URL:      c.config.AMQPURL,
			Exchange: c.config.AMQPExchange,
		}, c.Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to connect amqp publisher: %w", err)
		}
		return amqpPublisher, nil
	default:
		return nil, fmt.Errorf("unsupported outbox publisher: %s", c.config.OutboxPublisher)
	}
}

func (c *Container) initOutboxUseCase() (*outboxUseCase.OutboxUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}

	repository, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}

	eventPublisher, err := c.EventPublisher()
	if err != nil {
		return nil, fmt.Errorf("failed to get event publisher for outbox use case: %w", err)
	}

	return outboxUseCase.NewOutboxUseCase(
		outboxUseCase.Config{
			Interval:   c.config.OutboxInterval,
			BatchSize:  c.config.OutboxBatchSize,
			MaxRetries: c.config.OutboxMaxRetries,
		},
		txManager,
		repository,
		outboxUseCase.NewPublishingProcessor(eventPublisher),
		c.Logger(),
	), nil
}
