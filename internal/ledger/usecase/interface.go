// Package usecase implements the conversion ledger state machine.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

// TransitionUpdate carries the fields written together with a status change.
type TransitionUpdate struct {
	Output    *ledgerDomain.OutputDescriptor
	Error     *ledgerDomain.ConversionError
	EndTime   *time.Time
	UpdatedAt time.Time
}

// ConversionRepository persists conversion records.
type ConversionRepository interface {
	Create(ctx context.Context, conversion *ledgerDomain.Conversion) error

	// Get returns ErrConversionNotFound when the record does not exist.
	Get(ctx context.Context, id uuid.UUID) (*ledgerDomain.Conversion, error)

	ListByUser(
		ctx context.Context,
		userID string,
		filter ledgerDomain.ListFilter,
	) ([]*ledgerDomain.Conversion, error)

	// Transition moves id to status `to` only if its current status is one of
	// `from`, in a single conditional update. It returns ErrInvalidTransition
	// when the record exists in another status and ErrConversionNotFound when it
	// does not exist.
	Transition(
		ctx context.Context,
		id uuid.UUID,
		from []ledgerDomain.Status,
		to ledgerDomain.Status,
		update TransitionUpdate,
	) error

	Delete(ctx context.Context, id uuid.UUID) error

	// Stats aggregates the conversions of userID, or of every user when userID is empty.
	Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error)
}

// EventRecorder receives ledger change notifications. Recording is best effort.
type EventRecorder interface {
	Record(ctx context.Context, eventType string, payload any) error
}

// CreateInput describes a new conversion.
type CreateInput struct {
	UserID             string
	Direction          ledgerDomain.Direction
	Input              ledgerDomain.InputDescriptor
	KeyID              *uuid.UUID
	KeyVersion         uint
	KeyFingerprint     string
	SourceConversionID *uuid.UUID
}

// LedgerUseCase is the conversion ledger.
type LedgerUseCase interface {
	// Create allocates a new record in pending.
	Create(ctx context.Context, input CreateInput) (*ledgerDomain.Conversion, error)

	// MarkProcessing moves pending -> processing. Calling it twice fails.
	MarkProcessing(ctx context.Context, id uuid.UUID) error

	// MarkCompleted moves processing -> completed and records the end time.
	MarkCompleted(ctx context.Context, id uuid.UUID, output *ledgerDomain.OutputDescriptor) error

	// MarkFailed moves pending or processing -> failed. Marking an already failed
	// record again is a no-op that keeps the first error.
	MarkFailed(ctx context.Context, id uuid.UUID, convErr ledgerDomain.ConversionError) error

	Get(ctx context.Context, id uuid.UUID) (*ledgerDomain.Conversion, error)

	// GetForUser behaves like Get but reports records of other users as not found.
	GetForUser(ctx context.Context, userID string, id uuid.UUID) (*ledgerDomain.Conversion, error)

	ListByUser(
		ctx context.Context,
		userID string,
		filter ledgerDomain.ListFilter,
	) ([]*ledgerDomain.Conversion, error)

	Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
