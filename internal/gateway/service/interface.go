// Package service provides the gateway drivers that reach the external
// encode/decode transform, over HTTP or as a local subprocess.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gatewayDomain "github.com/echocipher/carrier/internal/gateway/domain"
)

// Gateway drivers.
const (
	DriverHTTP    = "http"
	DriverProcess = "process"
)

// DefaultMaxChunkBytes is the chunk size used when neither the request nor the config sets one.
const DefaultMaxChunkBytes int64 = 50 * 1024 * 1024

// DefaultMaxResponseBytes caps a transform output when the config sets no limit.
const DefaultMaxResponseBytes int64 = 1 << 30

// healthBodyLimit caps the body read from the health endpoint.
const healthBodyLimit int64 = 64 * 1024

// Gateway invokes the external transform. Implementations only check structural
// expectations of the output and classify failures as ErrGatewayTimeout or
// ErrGatewayFailure.
type Gateway interface {
	Encode(ctx context.Context, req gatewayDomain.EncodeRequest) (*gatewayDomain.EncodeResult, error)
	Decode(ctx context.Context, req gatewayDomain.DecodeRequest) (*gatewayDomain.DecodeResult, error)
	Health(ctx context.Context) error
}

// Config selects and configures a gateway driver.
type Config struct {
	Driver               string
	URL                  string
	APIKey               string
	Timeout              time.Duration
	Command              string
	Script               string
	WorkDir              string
	DefaultMaxChunkBytes int64
	// MaxResponseBytes caps a bundle, an audio result or a single bundle entry.
	MaxResponseBytes int64
}

func (c Config) maxResponseBytes() int64 {
	if c.MaxResponseBytes > 0 {
		return c.MaxResponseBytes
	}
	return DefaultMaxResponseBytes
}

// NewGateway builds the driver named by cfg.Driver.
func NewGateway(cfg Config, logger *slog.Logger) (Gateway, error) {
	switch cfg.Driver {
	case "", DriverHTTP:
		return NewHTTPGateway(cfg, logger), nil
	case DriverProcess:
		return NewProcessGateway(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported gateway driver: %s", cfg.Driver)
	}
}

func maxChunkBytes(requested, configured int64) int64 {
	if requested > 0 {
		return requested
	}
	if configured > 0 {
		return configured
	}
	return DefaultMaxChunkBytes
}

// withTimeout bounds ctx by the configured gateway timeout.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
