package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	"github.com/echocipher/carrier/internal/metrics"
)

const metricsDomain = "ledger"

// ledgerUseCaseWithMetrics decorates LedgerUseCase with metrics instrumentation.
type ledgerUseCaseWithMetrics struct {
	next    LedgerUseCase
	metrics metrics.BusinessMetrics
}

// NewLedgerUseCaseWithMetrics wraps a LedgerUseCase with metrics recording.
func NewLedgerUseCaseWithMetrics(useCase LedgerUseCase, m metrics.BusinessMetrics) LedgerUseCase {
	return &ledgerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (l *ledgerUseCaseWithMetrics) Create(
	ctx context.Context,
	input CreateInput,
) (*ledgerDomain.Conversion, error) {
	start := time.Now()
	conversion, err := l.next.Create(ctx, input)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_create", start, err)
	return conversion, err
}

func (l *ledgerUseCaseWithMetrics) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := l.next.MarkProcessing(ctx, id)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_mark_processing", start, err)
	return err
}

func (l *ledgerUseCaseWithMetrics) MarkCompleted(
	ctx context.Context,
	id uuid.UUID,
	output *ledgerDomain.OutputDescriptor,
) error {
	start := time.Now()
	err := l.next.MarkCompleted(ctx, id, output)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_mark_completed", start, err)
	return err
}

func (l *ledgerUseCaseWithMetrics) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	convErr ledgerDomain.ConversionError,
) error {
	start := time.Now()
	err := l.next.MarkFailed(ctx, id, convErr)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_mark_failed", start, err)
	return err
}

func (l *ledgerUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*ledgerDomain.Conversion, error) {
	start := time.Now()
	conversion, err := l.next.Get(ctx, id)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_get", start, err)
	return conversion, err
}

func (l *ledgerUseCaseWithMetrics) GetForUser(
	ctx context.Context,
	userID string,
	id uuid.UUID,
) (*ledgerDomain.Conversion, error) {
	start := time.Now()
	conversion, err := l.next.GetForUser(ctx, userID, id)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_get", start, err)
	return conversion, err
}

func (l *ledgerUseCaseWithMetrics) ListByUser(
	ctx context.Context,
	userID string,
	filter ledgerDomain.ListFilter,
) ([]*ledgerDomain.Conversion, error) {
	start := time.Now()
	conversions, err := l.next.ListByUser(ctx, userID, filter)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_list", start, err)
	return conversions, err
}

func (l *ledgerUseCaseWithMetrics) Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error) {
	start := time.Now()
	stats, err := l.next.Stats(ctx, userID)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_stats", start, err)
	return stats, err
}

func (l *ledgerUseCaseWithMetrics) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := l.next.Delete(ctx, id)
	metrics.Observe(ctx, l.metrics, metricsDomain, "conversion_delete", start, err)
	return err
}
