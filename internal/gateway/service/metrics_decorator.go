package service

import (
	"context"
	"time"

	gatewayDomain "github.com/echocipher/carrier/internal/gateway/domain"
	"github.com/echocipher/carrier/internal/metrics"
)

// gatewayWithMetrics decorates Gateway with metrics instrumentation.
type gatewayWithMetrics struct {
	next    Gateway
	metrics metrics.BusinessMetrics
}

// NewGatewayWithMetrics wraps a Gateway with metrics recording.
func NewGatewayWithMetrics(gateway Gateway, m metrics.BusinessMetrics) Gateway {
	return &gatewayWithMetrics{
		next:    gateway,
		metrics: m,
	}
}

func (g *gatewayWithMetrics) Encode(
	ctx context.Context,
	req gatewayDomain.EncodeRequest,
) (*gatewayDomain.EncodeResult, error) {
	start := time.Now()
	result, err := g.next.Encode(ctx, req)
	metrics.Observe(ctx, g.metrics, "gateway", "encode", start, err)
	return result, err
}

func (g *gatewayWithMetrics) Decode(
	ctx context.Context,
	req gatewayDomain.DecodeRequest,
) (*gatewayDomain.DecodeResult, error) {
	start := time.Now()
	result, err := g.next.Decode(ctx, req)
	metrics.Observe(ctx, g.metrics, "gateway", "decode", start, err)
	return result, err
}

func (g *gatewayWithMetrics) Health(ctx context.Context) error {
	start := time.Now()
	err := g.next.Health(ctx)
	metrics.Observe(ctx, g.metrics, "gateway", "health", start, err)
	return err
}
