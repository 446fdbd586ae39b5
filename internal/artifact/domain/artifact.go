// Package domain defines stored artifact objects: the bundle of an encode
// conversion and its ordered chunks.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Kind distinguishes bundles from chunks.
type Kind string

const (
	KindBundle Kind = "bundle"
	KindChunk  Kind = "chunk"
)

const keyPrefix = "artifacts/"

// Metadata keys as stored by every backend. Backends may change key case, so
// they are always compared lower-cased.
const (
	metaFileName     = "filename"
	metaKind         = "kind"
	metaIndex        = "index"
	metaSHA256       = "sha256"
	metaSize         = "size"
	metaConversionID = "conversion_id"
	metaUserID       = "user_id"
)

// Metadata describes a stored object.
type Metadata struct {
	FileName     string
	Kind         Kind
	Index        int
	SHA256       string
	Size         int64
	ConversionID string
	UserID       string
}

// Object is a stored artifact with its content.
type Object struct {
	ID       uuid.UUID
	Metadata Metadata
	Data     []byte
}

// ObjectKey returns the backend key of an artifact id.
func ObjectKey(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// Checksum returns the hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ToMap encodes m as backend user metadata.
func (m Metadata) ToMap() map[string]string {
	out := map[string]string{
		metaFileName: m.FileName,
		metaKind:     string(m.Kind),
		metaSHA256:   m.SHA256,
		metaSize:     strconv.FormatInt(m.Size, 10),
	}
	if m.Kind == KindChunk {
		out[metaIndex] = strconv.Itoa(m.Index)
	}
	if m.ConversionID != "" {
		out[metaConversionID] = m.ConversionID
	}
	if m.UserID != "" {
		out[metaUserID] = m.UserID
	}
	return out
}

// MetadataFromMap decodes backend user metadata. Unknown keys are ignored and
// malformed numbers decode as zero.
func MetadataFromMap(in map[string]string) Metadata {
	normalized := make(map[string]string, len(in))
	for k, v := range in {
		normalized[strings.ToLower(k)] = v
	}

	m := Metadata{
		FileName:     normalized[metaFileName],
		Kind:         Kind(normalized[metaKind]),
		SHA256:       normalized[metaSHA256],
		ConversionID: normalized[metaConversionID],
		UserID:       normalized[metaUserID],
	}
	if v, err := strconv.Atoi(normalized[metaIndex]); err == nil {
		m.Index = v
	}
	if v, err := strconv.ParseInt(normalized[metaSize], 10, 64); err == nil {
		m.Size = v
	}
	return m
}
