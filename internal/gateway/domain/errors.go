package domain

import (
	"fmt"

	"github.com/echocipher/carrier/internal/errors"
)

var (
	// ErrGatewayTimeout indicates the transform did not answer in time. It is retryable.
	ErrGatewayTimeout = errors.Wrap(errors.ErrUnavailable, "gateway timeout")

	// ErrGatewayFailure indicates the transform rejected the request or produced unusable output.
	ErrGatewayFailure = errors.New("gateway failure")
)

// NewFailure returns an ErrGatewayFailure carrying the remote reason.
func NewFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGatewayFailure, fmt.Sprintf(format, args...))
}

// NewTimeout returns an ErrGatewayTimeout wrapping cause.
func NewTimeout(cause error) error {
	if cause == nil {
		return ErrGatewayTimeout
	}
	return fmt.Errorf("%w: %w", ErrGatewayTimeout, cause)
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrGatewayTimeout)
}
