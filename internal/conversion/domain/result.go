// Package domain defines the orchestrator's error taxonomy, its uniform
// operation result and the input rules shared by every conversion flow.
package domain

import (
	"strings"

	artifactDomain "github.com/echocipher/carrier/internal/artifact/domain"
	"github.com/echocipher/carrier/internal/errors"
	gatewayDomain "github.com/echocipher/carrier/internal/gateway/domain"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

// ErrorKind classifies a failed operation.
type ErrorKind string

const (
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindNotFound              ErrorKind = "NotFound"
	KindInvalidTransition     ErrorKind = "InvalidTransition"
	KindGatewayTimeout        ErrorKind = "GatewayTimeout"
	KindGatewayFailure        ErrorKind = "GatewayFailure"
	KindStorageError          ErrorKind = "StorageError"
	KindEncryptionConfigError ErrorKind = "EncryptionConfigError"
	KindDecryptionFailed      ErrorKind = "DecryptionFailed"
	KindNoKeyAvailable        ErrorKind = "NoKeyAvailable"
	KindPartialDeleteFailure  ErrorKind = "PartialDeleteFailure"
	KindInternal              ErrorKind = "Internal"
)

// KindOf maps err to its kind. The most specific match wins: key and
// artifact errors are checked before the base sentinels they wrap.
func KindOf(err error) ErrorKind {
	var partial *artifactDomain.PartialDeleteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &partial):
		return KindPartialDeleteFailure
	case errors.Is(err, gatewayDomain.ErrGatewayTimeout):
		return KindGatewayTimeout
	case errors.Is(err, gatewayDomain.ErrGatewayFailure):
		return KindGatewayFailure
	case errors.Is(err, keyvaultDomain.ErrNoKeyAvailable):
		return KindNoKeyAvailable
	case errors.Is(err, keyvaultDomain.ErrEncryptionConfig):
		return KindEncryptionConfigError
	case errors.Is(err, keyvaultDomain.ErrDecryptionFailed):
		return KindDecryptionFailed
	case errors.Is(err, artifactDomain.ErrStorage):
		return KindStorageError
	case errors.Is(err, ledgerDomain.ErrInvalidTransition), errors.Is(err, errors.ErrConflict):
		return KindInvalidTransition
	case errors.Is(err, errors.ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, errors.ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

// Retryable reports whether an operation that failed with kind may succeed if repeated.
func (k ErrorKind) Retryable() bool {
	return k == KindGatewayTimeout
}

// ReasonOf returns the human-readable reason of err that is safe to hand to
// callers. It keeps the domain context of the failure and drops the text of
// the backend or driver error underneath it.
func ReasonOf(err error) string {
	switch kind := KindOf(err); kind {
	case "":
		return ""
	case KindInternal:
		return "internal error"
	case KindPartialDeleteFailure:
		var partial *artifactDomain.PartialDeleteError
		errors.As(err, &partial)
		return (&artifactDomain.PartialDeleteError{Remaining: partial.Remaining}).Error()
	case KindGatewayTimeout:
		return upTo(err.Error(), gatewayDomain.ErrGatewayTimeout.Error())
	case KindStorageError:
		return upTo(err.Error(), artifactDomain.ErrStorage.Error())
	case KindEncryptionConfigError:
		return upTo(err.Error(), keyvaultDomain.ErrEncryptionConfig.Error())
	case KindDecryptionFailed:
		return upTo(err.Error(), keyvaultDomain.ErrDecryptionFailed.Error())
	default:
		return err.Error()
	}
}

// upTo cuts msg after the first occurrence of sentinel.
func upTo(msg, sentinel string) string {
	if i := strings.Index(msg, sentinel); i >= 0 {
		return msg[:i+len(sentinel)]
	}
	return sentinel
}

// ConversionErrorOf builds the error stored on a failed ledger record.
func ConversionErrorOf(err error) ledgerDomain.ConversionError {
	kind := KindOf(err)
	return ledgerDomain.ConversionError{
		Kind:      string(kind),
		Message:   ReasonOf(err),
		Retryable: kind.Retryable(),
	}
}

// Result is the uniform outcome of an orchestrator operation.
type Result[T any] struct {
	Success   bool      `json:"success"`
	Payload   T         `json:"payload,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// NewResult converts the (payload, err) form into a Result.
func NewResult[T any](payload T, err error) Result[T] {
	if err != nil {
		var zero T
		return Result[T]{
			Success:   false,
			Payload:   zero,
			ErrorKind: KindOf(err),
			Message:   ReasonOf(err),
		}
	}
	return Result[T]{Success: true, Payload: payload}
}
