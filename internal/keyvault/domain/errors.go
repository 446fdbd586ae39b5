package domain

import (
	"github.com/echocipher/carrier/internal/errors"
)

// Key vault errors.
var (
	// ErrNoKeyAvailable indicates no stored key exists for the scope and no bootstrap key is configured.
	ErrNoKeyAvailable = errors.Wrap(errors.ErrNotFound, "no master key available")

	// ErrMasterKeyNotFound indicates the referenced vault record does not exist.
	ErrMasterKeyNotFound = errors.Wrap(errors.ErrNotFound, "master key not found")

	// ErrVersionConflict indicates another transaction allocated the same version of a scope first.
	ErrVersionConflict = errors.Wrap(errors.ErrConflict, "master key version already allocated")

	// ErrInvalidKeyFormat indicates a supplied key is not 64 hexadecimal characters.
	ErrInvalidKeyFormat = errors.Wrap(errors.ErrInvalidInput, "master key must be 64 hexadecimal characters")

	// ErrInvalidScope indicates an empty or oversized key scope.
	ErrInvalidScope = errors.Wrap(errors.ErrInvalidInput, "invalid key scope")

	// ErrEncryptionConfig indicates the vault protection key is missing or malformed.
	ErrEncryptionConfig = errors.New("encryption configuration error")

	// ErrDecryptionFailed indicates a malformed or tampered at-rest form.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrUnsupportedAlgorithm indicates an unknown at-rest algorithm.
	ErrUnsupportedAlgorithm = errors.Wrap(ErrEncryptionConfig, "unsupported algorithm")

	// ErrInvalidKeySize indicates a protection key that is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(ErrEncryptionConfig, "protection key must be exactly 32 bytes")

	// ErrKeyMismatch indicates a supplied key differs from the one pinned to a conversion.
	ErrKeyMismatch = errors.Wrap(errors.ErrInvalidInput, "master key does not match the key used for encoding")
)
