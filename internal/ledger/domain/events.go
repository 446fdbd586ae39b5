package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted on ledger changes.
const (
	EventConversionCreated    = "conversion.created"
	EventConversionProcessing = "conversion.processing"
	EventConversionCompleted  = "conversion.completed"
	EventConversionFailed     = "conversion.failed"
	EventConversionDeleted    = "conversion.deleted"
)

// StatusEvent is the payload published for ledger changes.
type StatusEvent struct {
	ConversionID uuid.UUID        `json:"conversionId"`
	UserID       string           `json:"userId"`
	Direction    Direction        `json:"direction"`
	Status       Status           `json:"status"`
	Error        *ConversionError `json:"error,omitempty"`
	OccurredAt   time.Time        `json:"occurredAt"`
}

// EventTypeFor returns the event type emitted when a conversion enters status.
func EventTypeFor(status Status) string {
	switch status {
	case StatusProcessing:
		return EventConversionProcessing
	case StatusCompleted:
		return EventConversionCompleted
	case StatusFailed:
		return EventConversionFailed
	default:
		return EventConversionCreated
	}
}
