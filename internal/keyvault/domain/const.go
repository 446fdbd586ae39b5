package domain

// Algorithm identifies the authenticated cipher used to protect a master key at rest.
type Algorithm string

const (
	// AESGCM is AES-256-GCM with a 16-byte IV and a 16-byte authentication tag.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305 with a 12-byte nonce and a 16-byte authentication tag.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySource records how a master key entered the vault.
type KeySource string

const (
	// SourceGenerated keys were produced by an explicit GenerateKey or Rotate call.
	SourceGenerated KeySource = "generated"

	// SourceSupplied keys were provided by a caller for a single conversion.
	SourceSupplied KeySource = "supplied"

	// SourceBootstrap marks the externally configured key. It is never persisted.
	SourceBootstrap KeySource = "bootstrap"
)

// SystemScope is the reserved scope for the system-wide master key.
const SystemScope = "system"

const (
	// MasterKeySize is the size in bytes of a master key and of the vault protection key.
	MasterKeySize = 32

	// AuthTagSize is the size in bytes of the authentication tag for every supported algorithm.
	AuthTagSize = 16
)
