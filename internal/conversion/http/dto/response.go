package dto

import (
	"time"

	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

// ChunkResponse is one image of an encode bundle.
type ChunkResponse struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	Index    int    `json:"index"`
}

// OutputResponse describes what a completed conversion produced.
type OutputResponse struct {
	BundleID       string          `json:"bundle_id,omitempty"`
	BundleFileName string          `json:"bundle_file_name,omitempty"`
	BundleSize     int64           `json:"bundle_size,omitempty"`
	ChunkCount     int             `json:"chunk_count"`
	Chunks         []ChunkResponse `json:"chunks,omitempty"`
	FileName       string          `json:"file_name,omitempty"`
	Size           int64           `json:"size,omitempty"`
}

// ErrorResponse is the failure recorded on a conversion.
type ErrorResponse struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// ConversionResponse represents a conversion record in API responses.
// Key material never appears here, only the key version and fingerprint.
type ConversionResponse struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	Direction          string          `json:"direction"`
	Status             string          `json:"status"`
	FileName           string          `json:"file_name"`
	FileSize           int64           `json:"file_size"`
	Format             string          `json:"format"`
	Output             *OutputResponse `json:"output,omitempty"`
	Error              *ErrorResponse  `json:"error,omitempty"`
	KeyVersion         uint            `json:"key_version,omitempty"`
	KeyFingerprint     string          `json:"key_fingerprint,omitempty"`
	SourceConversionID string          `json:"source_conversion_id,omitempty"`
	StartTime          time.Time       `json:"start_time"`
	EndTime            *time.Time      `json:"end_time,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// MapConversionToResponse converts a ledger record to an API response.
func MapConversionToResponse(c *ledgerDomain.Conversion) ConversionResponse {
	resp := ConversionResponse{
		ID:             c.ID.String(),
		UserID:         c.UserID,
		Direction:      string(c.Direction),
		Status:         string(c.Status),
		FileName:       c.Input.FileName,
		FileSize:       c.Input.FileSize,
		Format:         c.Input.Format,
		KeyVersion:     c.KeyVersion,
		KeyFingerprint: c.KeyFingerprint,
		StartTime:      c.StartTime,
		EndTime:        c.EndTime,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.SourceConversionID != nil {
		resp.SourceConversionID = c.SourceConversionID.String()
	}
	if c.Error != nil {
		resp.Error = &ErrorResponse{
			Kind:      c.Error.Kind,
			Message:   c.Error.Message,
			Retryable: c.Error.Retryable,
		}
	}
	if c.Output != nil {
		resp.Output = mapOutput(c.Output)
	}
	return resp
}

func mapOutput(o *ledgerDomain.OutputDescriptor) *OutputResponse {
	out := &OutputResponse{
		BundleFileName: o.BundleFileName,
		BundleSize:     o.BundleSize,
		ChunkCount:     o.ChunkCount,
		FileName:       o.FileName,
		Size:           o.Size,
	}
	if o.BundleID != nil {
		out.BundleID = o.BundleID.String()
	}
	for _, chunk := range o.Chunks {
		out.Chunks = append(out.Chunks, ChunkResponse{
			ID:       chunk.ID.String(),
			FileName: chunk.FileName,
			Size:     chunk.Size,
			Index:    chunk.Index,
		})
	}
	return out
}

// ListConversionsResponse represents a paginated list of conversions.
type ListConversionsResponse struct {
	Data []ConversionResponse `json:"data"`
}

// MapConversionsToListResponse converts ledger records to a list response.
func MapConversionsToListResponse(conversions []*ledgerDomain.Conversion) ListConversionsResponse {
	data := make([]ConversionResponse, 0, len(conversions))
	for _, c := range conversions {
		data = append(data, MapConversionToResponse(c))
	}
	return ListConversionsResponse{Data: data}
}

// StatsResponse holds per-status counts for a user.
type StatsResponse struct {
	Total           int64 `json:"total"`
	Pending         int64 `json:"pending"`
	Processing      int64 `json:"processing"`
	Completed       int64 `json:"completed"`
	Failed          int64 `json:"failed"`
	TotalInputBytes int64 `json:"total_input_bytes"`
}

// MapStatsToResponse converts ledger stats to an API response.
func MapStatsToResponse(s *ledgerDomain.Stats) StatsResponse {
	return StatsResponse{
		Total:           s.Total,
		Pending:         s.Pending,
		Processing:      s.Processing,
		Completed:       s.Completed,
		Failed:          s.Failed,
		TotalInputBytes: s.TotalInputBytes,
	}
}
