package domain

import (
	"encoding/hex"
	"strings"

	"github.com/echocipher/carrier/internal/errors"
)

const formSeparator = ":"

// EncryptedForm is the at-rest representation of a master key: the nonce, the
// authentication tag and the ciphertext, serialized as "iv:authTag:ciphertext" in hex.
type EncryptedForm struct {
	IV         []byte
	AuthTag    []byte
	Ciphertext []byte
}

// String returns the delimited hex serialization stored in durable storage.
func (f EncryptedForm) String() string {
	return hex.EncodeToString(f.IV) + formSeparator +
		hex.EncodeToString(f.AuthTag) + formSeparator +
		hex.EncodeToString(f.Ciphertext)
}

// Sealed returns ciphertext||tag, the layout expected by cipher.AEAD.Open.
func (f EncryptedForm) Sealed() []byte {
	out := make([]byte, 0, len(f.Ciphertext)+len(f.AuthTag))
	out = append(out, f.Ciphertext...)
	return append(out, f.AuthTag...)
}

// NewEncryptedForm splits an AEAD output (ciphertext||tag) into its stored parts.
func NewEncryptedForm(nonce, sealed []byte) (EncryptedForm, error) {
	if len(sealed) < AuthTagSize {
		return EncryptedForm{}, errors.Wrap(ErrEncryptionConfig, "sealed output shorter than auth tag")
	}
	split := len(sealed) - AuthTagSize
	return EncryptedForm{
		IV:         nonce,
		AuthTag:    sealed[split:],
		Ciphertext: sealed[:split],
	}, nil
}

// ParseEncryptedForm parses the "iv:authTag:ciphertext" serialization. Any structural
// problem is reported as ErrDecryptionFailed.
func ParseEncryptedForm(s string) (EncryptedForm, error) {
	parts := strings.Split(s, formSeparator)
	if len(parts) != 3 {
		return EncryptedForm{}, errors.Wrap(ErrDecryptionFailed, "invalid encrypted key format")
	}

	decoded := make([][]byte, 3)
	for i, part := range parts {
		if part == "" {
			return EncryptedForm{}, errors.Wrap(ErrDecryptionFailed, "empty encrypted key segment")
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return EncryptedForm{}, errors.Wrap(ErrDecryptionFailed, "invalid hex in encrypted key")
		}
		decoded[i] = b
	}

	if len(decoded[1]) != AuthTagSize {
		return EncryptedForm{}, errors.Wrap(ErrDecryptionFailed, "invalid auth tag length")
	}

	return EncryptedForm{IV: decoded[0], AuthTag: decoded[1], Ciphertext: decoded[2]}, nil
}
