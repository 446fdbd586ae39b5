package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

const maxScopeLength = 100

// MasterKey is a vault record. The key material itself is only ever held in
// EncryptedKey; the plaintext never leaves memory.
//
// At most one key per scope is active. Superseded keys stay in storage so that
// conversions pinned to them remain decodable.
type MasterKey struct {
	ID            uuid.UUID
	Scope         string
	Version       uint
	Algorithm     Algorithm
	EncryptedKey  string
	Source        KeySource
	IsActive      bool
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// KeyReference pins the exact key used by a conversion. ID is nil for the
// bootstrap key, which is identified by fingerprint alone.
type KeyReference struct {
	ID          *uuid.UUID
	Version     uint
	Source      KeySource
	Fingerprint string
}

// ResolvedKey is a plaintext master key together with the reference that pins it.
// Callers must not log or persist Hex.
type ResolvedKey struct {
	Hex       string
	Reference KeyReference
}

// ValidateHexKey checks that key is exactly 64 hexadecimal characters.
func ValidateHexKey(key string) error {
	if !hexKeyPattern.MatchString(key) {
		return ErrInvalidKeyFormat
	}
	return nil
}

// ValidateScope checks that a key scope is usable.
func ValidateScope(scope string) error {
	if strings.TrimSpace(scope) == "" || len(scope) > maxScopeLength {
		return ErrInvalidScope
	}
	return nil
}

// Fingerprint returns a short stable identifier for a hex master key. It is
// case-insensitive so that the same key in either case matches.
func Fingerprint(hexKey string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(hexKey)))
	return hex.EncodeToString(sum[:16])
}
