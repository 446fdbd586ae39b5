// Package usecase records conversion events in the outbox and delivers them to the configured publisher.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/echocipher/carrier/internal/database"
	apperrors "github.com/echocipher/carrier/internal/errors"
	"github.com/echocipher/carrier/internal/outbox/domain"
)

// Config holds outbox use case configuration
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// Retention is how long processed events are kept. Zero keeps them forever.
	Retention time.Duration
}

// OutboxEventRepository defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// EventProcessor delivers a single outbox event
type EventProcessor interface {
	Process(ctx context.Context, event *domain.OutboxEvent) error
}

// EventPublisher sends an encoded event to the event sink
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
	Close() error
}

// UseCase defines the interface for outbox use cases
type UseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
	Record(ctx context.Context, eventType string, payload any) error
}

// OutboxUseCase implements business logic for processing outbox events
type OutboxUseCase struct {
	config         Config
	txManager      database.TxManager
	outboxRepo     OutboxEventRepository
	eventProcessor EventProcessor
	logger         *slog.Logger
}

// NewOutboxUseCase creates a new OutboxUseCase
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	eventProcessor EventProcessor,
	logger *slog.Logger,
) *OutboxUseCase {
	return &OutboxUseCase{
		config:         config,
		txManager:      txManager,
		outboxRepo:     outboxRepo,
		eventProcessor: eventProcessor,
		logger:         logger,
	}
}

// Record stores a pending event. It joins the caller's transaction when ctx carries one.
func (uc *OutboxUseCase) Record(ctx context.Context, eventType string, payload any) error {
	event, err := domain.NewOutboxEvent(eventType, payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode outbox payload")
	}
	return uc.outboxRepo.Create(ctx, event)
}

// Start starts the outbox event processing loop
func (uc *OutboxUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox event processor",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox event processor")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessEvents(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process events", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessEvents retrieves and processes pending events from the outbox in a transaction
func (uc *OutboxUseCase) ProcessEvents(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := uc.outboxRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}

		if len(events) > 0 && uc.logger != nil {
			uc.logger.Info("processing events", slog.Int("count", len(events)))
		}

		for _, event := range events {
			if err := uc.processEvent(ctx, event); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process event",
						slog.String("event_id", event.ID.String()),
						slog.String("event_type", event.EventType),
						slog.Any("error", err),
					)
				}

				event.Retries++
				errorMsg := err.Error()
				event.LastError = &errorMsg

				if event.Retries >= uc.config.MaxRetries {
					event.Status = domain.OutboxEventStatusFailed
				}

				if err := uc.outboxRepo.Update(ctx, event); err != nil {
					return err
				}
				continue
			}

			now := time.Now().UTC()
			event.Status = domain.OutboxEventStatusProcessed
			event.ProcessedAt = &now

			if err := uc.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
		}

		return uc.purge(ctx)
	})
}

func (uc *OutboxUseCase) purge(ctx context.Context) error {
	if uc.config.Retention <= 0 {
		return nil
	}
	removed, err := uc.outboxRepo.DeleteProcessedBefore(ctx, time.Now().UTC().Add(-uc.config.Retention))
	if err != nil {
		return err
	}
	if removed > 0 && uc.logger != nil {
		uc.logger.Info("purged processed events", slog.Int64("count", removed))
	}
	return nil
}

func (uc *OutboxUseCase) processEvent(ctx context.Context, event *domain.OutboxEvent) error {
	if uc.logger != nil {
		uc.logger.Debug("processing event",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
		)
	}

	return uc.eventProcessor.Process(ctx, event)
}

// PublishingProcessor hands events to an EventPublisher
type PublishingProcessor struct {
	publisher EventPublisher
}

// NewPublishingProcessor creates a new PublishingProcessor
func NewPublishingProcessor(publisher EventPublisher) *PublishingProcessor {
	return &PublishingProcessor{
		publisher: publisher,
	}
}

// Process rejects payloads that are not valid JSON and publishes the rest
func (p *PublishingProcessor) Process(ctx context.Context, event *domain.OutboxEvent) error {
	payload := []byte(event.Payload)
	if !json.Valid(payload) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "outbox payload is not valid json")
	}
	return p.publisher.Publish(ctx, event.EventType, payload)
}
