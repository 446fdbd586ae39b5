package domain

import (
	"github.com/echocipher/carrier/internal/errors"
)

var (
	// ErrConversionNotFound indicates the conversion does not exist or belongs to another user.
	ErrConversionNotFound = errors.Wrap(errors.ErrNotFound, "conversion not found")

	// ErrInvalidTransition indicates a ledger state machine violation.
	ErrInvalidTransition = errors.Wrap(errors.ErrConflict, "invalid status transition")

	// ErrInvalidFilter indicates an unknown status or direction in a list filter.
	ErrInvalidFilter = errors.Wrap(errors.ErrInvalidInput, "invalid conversion filter")
)
