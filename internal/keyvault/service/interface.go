// Package service provides the cryptographic building blocks of the key vault:
// authenticated ciphers, the at-rest key protector and KMS access for the
// protection key.
package service

import (
	"context"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
//
// Encrypt returns the ciphertext with the authentication tag appended, plus the
// freshly generated nonce. Decrypt expects the same layout.
type AEAD interface {
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
	NonceSize() int
}

// AEADManager creates AEAD cipher instances for a key and algorithm.
type AEADManager interface {
	CreateCipher(key []byte, alg keyvaultDomain.Algorithm) (AEAD, error)
}

// KMSKeeper is the subset of *secrets.Keeper used to unwrap the protection key.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens KMS keepers by URI.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}
