package service

import (
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

// AEADManagerService implements AEADManager.
type AEADManagerService struct{}

// NewAEADManager creates a new AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher returns the cipher for alg keyed with key.
// Returns ErrInvalidKeySize for keys that are not 32 bytes and
// ErrUnsupportedAlgorithm for unknown algorithms.
func (am *AEADManagerService) CreateCipher(key []byte, alg keyvaultDomain.Algorithm) (AEAD, error) {
	if len(key) != keyvaultDomain.MasterKeySize {
		return nil, keyvaultDomain.ErrInvalidKeySize
	}

	switch alg {
	case keyvaultDomain.AESGCM:
		return NewAESGCM(key)
	case keyvaultDomain.ChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, keyvaultDomain.ErrUnsupportedAlgorithm
	}
}
