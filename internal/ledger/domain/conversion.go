// Package domain defines the conversion ledger: the durable per-conversion record
// and the rules governing its status transitions.
package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a conversion.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Direction tells whether a conversion turns audio into carrier images or back.
type Direction string

const (
	DirectionEncode Direction = "encode"
	DirectionDecode Direction = "decode"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionEncode || d == DirectionDecode
}

// allowedSources lists, for every target status, the statuses it may be entered from.
var allowedSources = map[Status][]Status{
	StatusProcessing: {StatusPending},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusPending, StatusProcessing},
}

// SourcesFor returns the statuses from which to may be entered.
func SourcesFor(to Status) []Status {
	return allowedSources[to]
}

// CanTransition reports whether from -> to is a legal ledger transition.
func CanTransition(from, to Status) bool {
	for _, s := range allowedSources[to] {
		if s == from {
			return true
		}
	}
	return false
}

// InputDescriptor describes what the caller submitted.
type InputDescriptor struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Format   string `json:"format"`
}

// NewInputDescriptor derives the format from the file extension.
func NewInputDescriptor(fileName string, fileSize int64) InputDescriptor {
	return InputDescriptor{
		FileName: fileName,
		FileSize: fileSize,
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), "."),
	}
}

// ChunkRef points at one stored chunk of an artifact.
type ChunkRef struct {
	ID       uuid.UUID `json:"id"`
	FileName string    `json:"fileName"`
	Size     int64     `json:"size"`
	Index    int       `json:"index"`
}

// OutputDescriptor references what a completed conversion produced. Encode
// conversions fill the artifact fields; decode conversions fill FileName and Size.
type OutputDescriptor struct {
	BundleID       *uuid.UUID `json:"bundleId,omitempty"`
	BundleFileName string     `json:"bundleFileName,omitempty"`
	BundleSize     int64      `json:"bundleSize,omitempty"`
	Chunks         []ChunkRef `json:"chunks,omitempty"`
	ChunkCount     int        `json:"chunkCount"`
	FileName       string     `json:"fileName,omitempty"`
	Size           int64      `json:"size,omitempty"`
}

// ChunkIDs returns the chunk ids in index order.
func (o *OutputDescriptor) ChunkIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(o.Chunks))
	for i, c := range o.Chunks {
		ids[i] = c.ID
	}
	return ids
}

// HasArtifact reports whether the descriptor references stored artifact objects.
func (o *OutputDescriptor) HasArtifact() bool {
	return o != nil && (o.BundleID != nil || len(o.Chunks) > 0)
}

// ConversionError is the failure captured by a failed conversion.
type ConversionError struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Conversion is one conversion attempt.
//
// KeyID and KeyFingerprint pin the master key version used; KeyID is nil when the
// bootstrap key was used. They are weak references: the key lifecycle is owned by
// the vault.
type Conversion struct {
	ID                 uuid.UUID
	UserID             string
	Direction          Direction
	Status             Status
	Input              InputDescriptor
	Output             *OutputDescriptor
	Error              *ConversionError
	KeyID              *uuid.UUID
	KeyVersion         uint
	KeyFingerprint     string
	SourceConversionID *uuid.UUID
	StartTime          time.Time
	EndTime            *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Page size bounds of ListByUser.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ListFilter narrows ListByUser results.
type ListFilter struct {
	Status    Status
	Direction Direction
	Offset    int
	Limit     int
}

// Stats aggregates conversions per status.
type Stats struct {
	Total           int64 `json:"total"`
	Pending         int64 `json:"pending"`
	Processing      int64 `json:"processing"`
	Completed       int64 `json:"completed"`
	Failed          int64 `json:"failed"`
	TotalInputBytes int64 `json:"totalInputBytes"`
}

// Add accumulates count conversions in status s.
func (s *Stats) Add(status Status, count int64) {
	s.Total += count
	switch status {
	case StatusPending:
		s.Pending += count
	case StatusProcessing:
		s.Processing += count
	case StatusCompleted:
		s.Completed += count
	case StatusFailed:
		s.Failed += count
	}
}
