package domain

import (
	"github.com/echocipher/carrier/internal/errors"
)

var (
	// ErrInvalidUserID indicates a blank, oversized or unsafe user id.
	ErrInvalidUserID = errors.Wrap(errors.ErrInvalidInput, "invalid user id")

	// ErrUnsupportedFormat indicates an input file that is not a supported audio format.
	ErrUnsupportedFormat = errors.Wrap(errors.ErrInvalidInput, "unsupported audio format")

	// ErrEmptyFile indicates an empty upload.
	ErrEmptyFile = errors.Wrap(errors.ErrInvalidInput, "file is empty")

	// ErrFileTooLarge indicates an upload above the configured limit.
	ErrFileTooLarge = errors.Wrap(errors.ErrInvalidInput, "file exceeds the maximum upload size")

	// ErrNotEncodeConversion indicates a decode request naming a decode conversion.
	ErrNotEncodeConversion = errors.Wrap(errors.ErrInvalidInput, "conversion is not an encode conversion")

	// ErrSourceNotCompleted indicates a decode of an encode conversion that has not completed.
	ErrSourceNotCompleted = errors.Wrap(errors.ErrConflict, "conversion has not completed")

	// ErrConversionInProgress indicates an attempt to delete a conversion that is processing.
	ErrConversionInProgress = errors.Wrap(errors.ErrConflict, "conversion is processing")

	// ErrNoArtifact indicates a completed conversion without stored output.
	ErrNoArtifact = errors.Wrap(errors.ErrNotFound, "conversion has no stored artifact")

	// ErrEmptyBundle indicates a gateway bundle without chunk images.
	ErrEmptyBundle = errors.Wrap(errors.ErrInvalidInput, "bundle contains no images")
)

// ErrInvalidFileName indicates a file name that is empty once sanitized.
var ErrInvalidFileName = errors.Wrap(errors.ErrInvalidInput, "invalid file name")
