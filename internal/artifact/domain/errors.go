package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/echocipher/carrier/internal/errors"
)

var (
	// ErrObjectNotFound indicates the artifact id is not present in the store.
	ErrObjectNotFound = errors.Wrap(errors.ErrNotFound, "artifact not found")

	// ErrStorage is the root of every storage backend failure.
	ErrStorage = errors.New("storage error")

	// ErrChecksumMismatch indicates stored content does not match its recorded checksum.
	ErrChecksumMismatch = errors.Wrap(ErrStorage, "artifact checksum mismatch")

	// ErrPartialDelete indicates some objects of an artifact survived deletion.
	ErrPartialDelete = errors.Wrap(ErrStorage, "partial artifact delete")

	// ErrEmptyContent indicates an attempt to store zero bytes.
	ErrEmptyContent = errors.Wrap(errors.ErrInvalidInput, "artifact content is empty")
)

// PartialDeleteError names the ids still present after DeleteArtifact gave up.
type PartialDeleteError struct {
	Remaining []uuid.UUID
	Err       error
}

func (e *PartialDeleteError) Error() string {
	ids := make([]string, len(e.Remaining))
	for i, id := range e.Remaining {
		ids[i] = id.String()
	}
	msg := fmt.Sprintf("partial artifact delete: %d object(s) remain: %s", len(ids), strings.Join(ids, ", "))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrPartialDelete and the last backend error.
func (e *PartialDeleteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPartialDelete}
	}
	return []error{ErrPartialDelete, e.Err}
}

// NewStorageError wraps a backend failure so that it matches ErrStorage.
func NewStorageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
