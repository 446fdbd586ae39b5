package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	"github.com/echocipher/carrier/internal/metrics"
)

const metricsDomain = "conversion"

// conversionUseCaseWithMetrics decorates ConversionUseCase with metrics instrumentation.
type conversionUseCaseWithMetrics struct {
	next    ConversionUseCase
	metrics metrics.BusinessMetrics
}

// NewConversionUseCaseWithMetrics wraps a ConversionUseCase with metrics recording.
func NewConversionUseCaseWithMetrics(useCase ConversionUseCase, m metrics.BusinessMetrics) ConversionUseCase {
	return &conversionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *conversionUseCaseWithMetrics) Encode(
	ctx context.Context,
	input EncodeInput,
) (*ledgerDomain.Conversion, error) {
	start := time.Now()
	conversion, err := c.next.Encode(ctx, input)
	metrics.Observe(ctx, c.metrics, metricsDomain, "encode", start, err)
	return conversion, err
}

func (c *conversionUseCaseWithMetrics) Decode(ctx context.Context, input DecodeInput) (*DecodeOutput, error) {
	start := time.Now()
	output, err := c.next.Decode(ctx, input)
	metrics.Observe(ctx, c.metrics, metricsDomain, "decode", start, err)
	return output, err
}

func (c *conversionUseCaseWithMetrics) Create(
	ctx context.Context,
	input CreateInput,
) (*ledgerDomain.Conversion, error) {
	start := time.Now()
	conversion, err := c.next.Create(ctx, input)
	metrics.Observe(ctx, c.metrics, metricsDomain, "create", start, err)
	return conversion, err
}

func (c *conversionUseCaseWithMetrics) GetStatus(
	ctx context.Context,
	userID string,
	id uuid.UUID,
) (*ledgerDomain.Conversion, error) {
	start := time.Now()
	conversion, err := c.next.GetStatus(ctx, userID, id)
	metrics.Observe(ctx, c.metrics, metricsDomain, "get_status", start, err)
	return conversion, err
}

func (c *conversionUseCaseWithMetrics) List(
	ctx context.Context,
	userID string,
	filter ledgerDomain.ListFilter,
) ([]*ledgerDomain.Conversion, error) {
	start := time.Now()
	conversions, err := c.next.List(ctx, userID, filter)
	metrics.Observe(ctx, c.metrics, metricsDomain, "list", start, err)
	return conversions, err
}

func (c *conversionUseCaseWithMetrics) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	start := time.Now()
	err := c.next.Delete(ctx, userID, id)
	metrics.Observe(ctx, c.metrics, metricsDomain, "delete", start, err)
	return err
}

func (c *conversionUseCaseWithMetrics) DownloadBundle(
	ctx context.Context,
	userID string,
	id uuid.UUID,
) (*BundleDownload, error) {
	start := time.Now()
	download, err := c.next.DownloadBundle(ctx, userID, id)
	metrics.Observe(ctx, c.metrics, metricsDomain, "download_bundle", start, err)
	return download, err
}

func (c *conversionUseCaseWithMetrics) Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error) {
	start := time.Now()
	stats, err := c.next.Stats(ctx, userID)
	metrics.Observe(ctx, c.metrics, metricsDomain, "stats", start, err)
	return stats, err
}

func (c *conversionUseCaseWithMetrics) GatewayHealth(ctx context.Context) error {
	start := time.Now()
	err := c.next.GatewayHealth(ctx)
	metrics.Observe(ctx, c.metrics, metricsDomain, "gateway_health", start, err)
	return err
}
