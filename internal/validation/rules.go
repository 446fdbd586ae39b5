// Package validation provides custom validation rules for the application.
package validation

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/echocipher/carrier/internal/errors"
)

// forbiddenChars may not appear in user ids or stored file names.
const forbiddenChars = `/\<>:"|?*` + "\x00"

var hexKeyRegex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// AudioExtensions lists the accepted audio input extensions.
var AudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".opus": true,
	".wma":  true,
	".aiff": true,
	".ape":  true,
}

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// HexKey validates a 64 character hexadecimal master key.
var HexKey = validation.NewStringRuleWithError(
	func(s string) bool {
		return hexKeyRegex.MatchString(s)
	},
	validation.NewError("validation_hex_key", "must be 64 hexadecimal characters"),
)

// SafeIdentifier rejects path separators, shell-special and control characters.
var SafeIdentifier = validation.NewStringRuleWithError(
	func(s string) bool {
		if strings.ContainsAny(s, forbiddenChars) || strings.Contains(s, "..") {
			return false
		}
		for _, r := range s {
			if unicode.IsControl(r) {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_safe_identifier", "must not contain path separators, control or reserved characters"),
)

// AudioFile validates that a file name has a supported audio extension.
var AudioFile = validation.NewStringRuleWithError(
	func(s string) bool {
		return AudioExtensions[strings.ToLower(filepath.Ext(s))]
	},
	validation.NewError("validation_audio_file", "must be a supported audio file"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
