// Package usecase implements the conversion orchestrator. It strings the key
// vault, the ledger, the gateway and the artifact store together for every
// encode and decode request.
package usecase

import (
	"context"

	"github.com/google/uuid"

	conversionDomain "github.com/echocipher/carrier/internal/conversion/domain"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

// UploadStore gives access to spooled uploads.
type UploadStore interface {
	Read(ctx context.Context, upload *conversionDomain.Upload) ([]byte, error)
	Remove(upload *conversionDomain.Upload)
}

// EncodeOptions tunes an encode. A nil Compress uses the configured default.
type EncodeOptions struct {
	Compress      *bool
	MaxChunkBytes int64
}

// EncodeInput is an encode request. An empty MasterKeyHex resolves the key
// through the vault.
type EncodeInput struct {
	UserID       string
	Upload       *conversionDomain.Upload
	MasterKeyHex string
	Options      EncodeOptions
}

// DecodeInput is a decode request for a completed encode conversion.
// An empty MasterKeyHex uses the key pinned to that conversion.
type DecodeInput struct {
	UserID         string
	ConversionID   uuid.UUID
	MasterKeyHex   string
	OutputFileName string
}

// DecodeOutput is the recovered audio together with the decode record.
type DecodeOutput struct {
	Conversion  *ledgerDomain.Conversion
	Audio       []byte
	FileName    string
	ContentType string
}

// CreateInput describes a conversion to register without running it.
type CreateInput struct {
	UserID    string
	Direction ledgerDomain.Direction
	FileName  string
	FileSize  int64
}

// BundleDownload is a stored bundle.
type BundleDownload struct {
	Data     []byte
	FileName string
}

// ConversionUseCase orchestrates conversions on behalf of a user. Records of
// other users are always reported as not found.
type ConversionUseCase interface {
	// Encode runs a full encode and returns the completed record. The upload is
	// removed whatever the outcome.
	Encode(ctx context.Context, input EncodeInput) (*ledgerDomain.Conversion, error)

	// Decode recovers the audio of a completed encode conversion.
	Decode(ctx context.Context, input DecodeInput) (*DecodeOutput, error)

	Create(ctx context.Context, input CreateInput) (*ledgerDomain.Conversion, error)

	GetStatus(ctx context.Context, userID string, id uuid.UUID) (*ledgerDomain.Conversion, error)

	List(ctx context.Context, userID string, filter ledgerDomain.ListFilter) ([]*ledgerDomain.Conversion, error)

	// Delete removes the stored artifact and then the record. When artifact
	// objects survive, the record is kept and a PartialDeleteError returned.
	Delete(ctx context.Context, userID string, id uuid.UUID) error

	DownloadBundle(ctx context.Context, userID string, id uuid.UUID) (*BundleDownload, error)

	Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error)

	GatewayHealth(ctx context.Context) error
}
