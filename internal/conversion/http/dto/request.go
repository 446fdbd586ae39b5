// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	customValidation "github.com/echocipher/carrier/internal/validation"
)

// EncodeRequest holds the non-file form fields of an encode upload.
type EncodeRequest struct {
	MasterKey     string `form:"master_key"`
	Compress      *bool  `form:"compress"`
	MaxChunkBytes int64  `form:"max_chunk_bytes"`
}

// Validate checks if the encode request is valid.
func (r *EncodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MasterKey, customValidation.HexKey),
		validation.Field(&r.MaxChunkBytes, validation.Min(int64(0))),
	)
}

// DecodeRequest contains the optional parameters of a decode.
// An empty master key uses the key pinned to the encode conversion.
type DecodeRequest struct {
	MasterKey      string `json:"master_key"`
	OutputFileName string `json:"output_filename"`
}

// Validate checks if the decode request is valid.
func (r *DecodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MasterKey, customValidation.HexKey),
		validation.Field(&r.OutputFileName,
			validation.Length(0, 255),
			customValidation.AudioFile,
		),
	)
}

// CreateConversionRequest registers a conversion without running it.
type CreateConversionRequest struct {
	Direction string `json:"direction"`
	FileName  string `json:"file_name"`
	FileSize  int64  `json:"file_size"`
}

// Validate checks if the create conversion request is valid.
func (r *CreateConversionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Direction,
			validation.Required,
			validation.In(string(ledgerDomain.DirectionEncode), string(ledgerDomain.DirectionDecode)),
		),
		validation.Field(&r.FileName, validation.Required, customValidation.NotBlank),
		validation.Field(&r.FileSize, validation.Required, validation.Min(int64(1))),
	)
}

// ListConversionsQuery holds the list filters. Pagination is parsed separately.
type ListConversionsQuery struct {
	Status    string `form:"status"`
	Direction string `form:"direction"`
}

// Validate checks if the list filters are valid.
func (q *ListConversionsQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Status, validation.In(
			string(ledgerDomain.StatusPending),
			string(ledgerDomain.StatusProcessing),
			string(ledgerDomain.StatusCompleted),
			string(ledgerDomain.StatusFailed),
		)),
		validation.Field(&q.Direction, validation.In(
			string(ledgerDomain.DirectionEncode),
			string(ledgerDomain.DirectionDecode),
		)),
	)
}
