package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/echocipher/carrier/internal/errors"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

// ProtectionKeyConfig describes where the vault protection key comes from.
//
// Without a KMS, Key must be 64 hex characters. With a KMS, Key is the base64
// ciphertext produced by the keeper at KMSKeyURI.
type ProtectionKeyConfig struct {
	Key         string
	KMSProvider string
	KMSKeyURI   string
}

// LoadProtectionKey resolves the 32-byte protection key from cfg. Every failure is
// reported as ErrEncryptionConfig.
func LoadProtectionKey(ctx context.Context, cfg ProtectionKeyConfig, kms KMSService) ([]byte, error) {
	raw := strings.TrimSpace(cfg.Key)
	if raw == "" {
		return nil, errors.Wrap(keyvaultDomain.ErrEncryptionConfig, "DB_ENCRYPTION_KEY is not set")
	}

	if cfg.KMSKeyURI == "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, errors.Wrap(keyvaultDomain.ErrEncryptionConfig, "protection key is not valid hex")
		}
		if len(key) != keyvaultDomain.MasterKeySize {
			keyvaultDomain.Zero(key)
			return nil, keyvaultDomain.ErrInvalidKeySize
		}
		return key, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrap(keyvaultDomain.ErrEncryptionConfig, "protection key is not valid base64")
	}

	keeper, err := kms.OpenKeeper(ctx, cfg.KMSKeyURI)
	if err != nil {
		return nil, errors.Wrap(keyvaultDomain.ErrEncryptionConfig, err.Error())
	}
	defer func() {
		_ = keeper.Close()
	}()

	key, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, errors.Wrap(keyvaultDomain.ErrEncryptionConfig, "failed to decrypt protection key with KMS")
	}
	if len(key) != keyvaultDomain.MasterKeySize {
		keyvaultDomain.Zero(key)
		return nil, keyvaultDomain.ErrInvalidKeySize
	}
	return key, nil
}

// GenerateHexKey returns a new random 256-bit key encoded as 64 lowercase hex characters.
func GenerateHexKey() (string, error) {
	b := make([]byte, keyvaultDomain.MasterKeySize)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate key")
	}
	defer keyvaultDomain.Zero(b)
	return hex.EncodeToString(b), nil
}

// KeyProtector encrypts and decrypts master keys at rest with the vault protection key.
type KeyProtector struct {
	protectionKey []byte
	algorithm     keyvaultDomain.Algorithm
	aeadManager   AEADManager
}

// NewKeyProtector creates a KeyProtector. A nil or wrongly sized protectionKey is
// accepted here; every operation then fails with ErrEncryptionConfig so that a
// misconfigured vault is reported at use rather than silently bypassed.
func NewKeyProtector(
	protectionKey []byte,
	algorithm keyvaultDomain.Algorithm,
	aeadManager AEADManager,
) *KeyProtector {
	if algorithm == "" {
		algorithm = keyvaultDomain.AESGCM
	}
	return &KeyProtector{
		protectionKey: protectionKey,
		algorithm:     algorithm,
		aeadManager:   aeadManager,
	}
}

// Algorithm returns the algorithm used by EncryptAtRest.
func (p *KeyProtector) Algorithm() keyvaultDomain.Algorithm {
	return p.algorithm
}

// WithAlgorithm returns a protector sharing the same protection key but using alg.
func (p *KeyProtector) WithAlgorithm(alg keyvaultDomain.Algorithm) *KeyProtector {
	return &KeyProtector{
		protectionKey: p.protectionKey,
		algorithm:     alg,
		aeadManager:   p.aeadManager,
	}
}

func (p *KeyProtector) cipher() (AEAD, error) {
	if len(p.protectionKey) != keyvaultDomain.MasterKeySize {
		return nil, keyvaultDomain.ErrInvalidKeySize
	}
	return p.aeadManager.CreateCipher(p.protectionKey, p.algorithm)
}

// EncryptAtRest validates plainHexKey and returns its "iv:authTag:ciphertext" form.
// Each call uses a fresh random IV.
func (p *KeyProtector) EncryptAtRest(plainHexKey string) (string, error) {
	if err := keyvaultDomain.ValidateHexKey(plainHexKey); err != nil {
		return "", err
	}

	c, err := p.cipher()
	if err != nil {
		return "", err
	}

	sealed, nonce, err := c.Encrypt([]byte(plainHexKey), nil)
	if err != nil {
		return "", errors.Wrap(keyvaultDomain.ErrEncryptionConfig, err.Error())
	}

	form, err := keyvaultDomain.NewEncryptedForm(nonce, sealed)
	if err != nil {
		return "", err
	}
	return form.String(), nil
}

// DecryptAtRest reverses EncryptAtRest. Malformed input or a failed
// authentication tag yields ErrDecryptionFailed and never a partial value.
func (p *KeyProtector) DecryptAtRest(encryptedForm string) (string, error) {
	form, err := keyvaultDomain.ParseEncryptedForm(encryptedForm)
	if err != nil {
		return "", err
	}

	c, err := p.cipher()
	if err != nil {
		return "", err
	}

	if len(form.IV) != c.NonceSize() {
		return "", errors.Wrap(keyvaultDomain.ErrDecryptionFailed, "invalid iv length")
	}

	plaintext, err := c.Decrypt(form.Sealed(), form.IV, nil)
	if err != nil {
		return "", errors.Wrap(keyvaultDomain.ErrDecryptionFailed, "authentication failed")
	}

	hexKey := string(plaintext)
	keyvaultDomain.Zero(plaintext)
	if err := keyvaultDomain.ValidateHexKey(hexKey); err != nil {
		return "", errors.Wrap(keyvaultDomain.ErrDecryptionFailed, "decrypted key has invalid format")
	}
	return hexKey, nil
}
