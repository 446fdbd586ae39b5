package dto

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

const validKey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

func boolPtr(b bool) *bool { return &b }

func TestEncodeRequest_Validate(t *testing.T) {
	t.Run("Success_Empty", func(t *testing.T) {
		req := EncodeRequest{}
		assert.NoError(t, req.Validate())
	})

	t.Run("Success_AllFields", func(t *testing.T) {
		req := EncodeRequest{MasterKey: validKey, Compress: boolPtr(false), MaxChunkBytes: 1024}
		assert.NoError(t, req.Validate())
	})

	t.Run("Error_ShortKey", func(t *testing.T) {
		req := EncodeRequest{MasterKey: "abc"}
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "64 hexadecimal")
	})

	t.Run("Error_NegativeChunkBytes", func(t *testing.T) {
		req := EncodeRequest{MaxChunkBytes: -1}
		assert.Error(t, req.Validate())
	})
}

func TestDecodeRequest_Validate(t *testing.T) {
	t.Run("Success_Empty", func(t *testing.T) {
		req := DecodeRequest{}
		assert.NoError(t, req.Validate())
	})

	t.Run("Success_OutputName", func(t *testing.T) {
		req := DecodeRequest{MasterKey: validKey, OutputFileName: "song.flac"}
		assert.NoError(t, req.Validate())
	})

	t.Run("Error_NotAudio", func(t *testing.T) {
		req := DecodeRequest{OutputFileName: "song.exe"}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_InvalidKey", func(t *testing.T) {
		req := DecodeRequest{MasterKey: strings.Repeat("z", 64)}
		assert.Error(t, req.Validate())
	})
}

func TestCreateConversionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateConversionRequest
		wantErr bool
	}{
		{name: "valid", req: CreateConversionRequest{Direction: "encode", FileName: "a.wav", FileSize: 10}},
		{name: "bad direction", req: CreateConversionRequest{Direction: "sideways", FileName: "a.wav", FileSize: 10}, wantErr: true},
		{name: "blank name", req: CreateConversionRequest{Direction: "decode", FileName: "  ", FileSize: 10}, wantErr: true},
		{name: "zero size", req: CreateConversionRequest{Direction: "encode", FileName: "a.wav"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestListConversionsQuery_Validate(t *testing.T) {
	assert.NoError(t, (&ListConversionsQuery{}).Validate())
	assert.NoError(t, (&ListConversionsQuery{Status: "failed", Direction: "encode"}).Validate())
	assert.Error(t, (&ListConversionsQuery{Status: "done"}).Validate())
	assert.Error(t, (&ListConversionsQuery{Direction: "both"}).Validate())
}

func TestMapConversionToResponse(t *testing.T) {
	now := time.Now().UTC()
	bundleID := uuid.Must(uuid.NewV7())
	chunkID := uuid.Must(uuid.NewV7())
	sourceID := uuid.Must(uuid.NewV7())

	conv := &ledgerDomain.Conversion{
		ID:             uuid.Must(uuid.NewV7()),
		UserID:         "alice",
		Direction:      ledgerDomain.DirectionEncode,
		Status:         ledgerDomain.StatusCompleted,
		Input:          ledgerDomain.NewInputDescriptor("song.WAV", 42),
		KeyVersion:     2,
		KeyFingerprint: "abcd",
		Output: &ledgerDomain.OutputDescriptor{
			BundleID:       &bundleID,
			BundleFileName: "song_images.zip",
			BundleSize:     99,
			ChunkCount:     1,
			Chunks:         []ledgerDomain.ChunkRef{{ID: chunkID, FileName: "p0.png", Size: 50}},
		},
		SourceConversionID: &sourceID,
		StartTime:          now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	resp := MapConversionToResponse(conv)

	assert.Equal(t, conv.ID.String(), resp.ID)
	assert.Equal(t, "wav", resp.Format)
	assert.Equal(t, sourceID.String(), resp.SourceConversionID)
	require.NotNil(t, resp.Output)
	assert.Equal(t, bundleID.String(), resp.Output.BundleID)
	require.Len(t, resp.Output.Chunks, 1)
	assert.Equal(t, chunkID.String(), resp.Output.Chunks[0].ID)
	assert.Nil(t, resp.Error)
}

func TestMapConversionToResponse_Failed(t *testing.T) {
	conv := &ledgerDomain.Conversion{
		ID:     uuid.Must(uuid.NewV7()),
		Status: ledgerDomain.StatusFailed,
		Error:  &ledgerDomain.ConversionError{Kind: "GatewayTimeout", Message: "timeout", Retryable: true},
	}

	resp := MapConversionToResponse(conv)

	require.NotNil(t, resp.Error)
	assert.True(t, resp.Error.Retryable)
	assert.Nil(t, resp.Output)
	assert.Empty(t, resp.SourceConversionID)
}

func TestMapConversionsToListResponse_Empty(t *testing.T) {
	resp := MapConversionsToListResponse(nil)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}
