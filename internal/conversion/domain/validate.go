package domain

import (
	"path/filepath"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/echocipher/carrier/internal/errors"
	appValidation "github.com/echocipher/carrier/internal/validation"
)

const (
	maxUserIDLength   = 100
	maxFileNameLength = 255
)

// ValidateUserID checks a caller identity.
func ValidateUserID(userID string) error {
	err := validation.Validate(userID,
		validation.Required,
		appValidation.NotBlank,
		validation.Length(1, maxUserIDLength),
		appValidation.SafeIdentifier,
	)
	if err != nil {
		return errors.Wrap(ErrInvalidUserID, err.Error())
	}
	return nil
}

// SanitizeFileName strips directories, reserved characters, NUL and ".."
// sequences and caps the length, keeping the extension when possible.
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`<>:"|?*/`, r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == "" {
		return ""
	}
	if len(name) > maxFileNameLength {
		ext := filepath.Ext(name)
		if len(ext) >= maxFileNameLength {
			ext = ""
		}
		name = strings.ToValidUTF8(name[:maxFileNameLength-len(ext)], "") + ext
	}
	return name
}

// ValidateAudioInput sanitizes fileName and checks its extension and size.
// It returns the sanitized name.
func ValidateAudioInput(fileName string, size, maxBytes int64) (string, error) {
	clean := SanitizeFileName(fileName)
	if err := validation.Validate(clean, validation.Required, appValidation.AudioFile); err != nil {
		return "", ErrUnsupportedFormat
	}
	if size <= 0 {
		return "", ErrEmptyFile
	}
	if maxBytes > 0 && size > maxBytes {
		return "", ErrFileTooLarge
	}
	return clean, nil
}
