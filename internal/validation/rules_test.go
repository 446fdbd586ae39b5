package validation

import (
	"errors"
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/echocipher/carrier/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(errors.New("user_id: must not be blank"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "user_id: must not be blank")
}

func TestHexKey(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{"lower case", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"upper case", "0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", false},
		{"too short", "0123456789abcdef", true},
		{"non hex", "zz23456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", true},
		{"empty is left to Required", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, HexKey)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSafeIdentifier(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{"plain", "alice", false},
		{"email like", "alice@example.com", false},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"parent", "..alice", true},
		{"pipe", "a|b", true},
		{"nul", "a\x00b", true},
		{"newline", "a\nb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, SafeIdentifier)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAudioFile(t *testing.T) {
	assert.NoError(t, validation.Validate("song.WAV", AudioFile))
	assert.NoError(t, validation.Validate("voice.opus", AudioFile))
	assert.Error(t, validation.Validate("image.png", AudioFile))
	assert.Error(t, validation.Validate("noext", AudioFile))
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, validation.Validate("x", NotBlank))
	assert.Error(t, validation.Validate("   ", NotBlank))
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, validation.Validate("x", NoWhitespace))
	assert.Error(t, validation.Validate(" x", NoWhitespace))
}
