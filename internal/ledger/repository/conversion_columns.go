// Package repository implements conversion ledger persistence for PostgreSQL and MySQL.
package repository

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

const conversionColumns = `id, user_id, direction, status, input_file_name, input_file_size, input_format,
	output, error, key_id, key_version, key_fingerprint, source_conversion_id,
	start_time, end_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// conversionRow holds the nullable columns shared by both dialects.
type conversionRow struct {
	conversion         ledgerDomain.Conversion
	output             sql.NullString
	convErr            sql.NullString
	keyFingerprint     sql.NullString
	endTime            sql.NullTime
	keyID              []byte
	sourceConversionID []byte
}

// finish decodes the nullable columns into the conversion. decodeID converts
// the raw id representation of the dialect.
func (r *conversionRow) finish(decodeID func([]byte) (uuid.UUID, error)) (*ledgerDomain.Conversion, error) {
	c := r.conversion

	if r.output.Valid && r.output.String != "" {
		var output ledgerDomain.OutputDescriptor
		if err := json.Unmarshal([]byte(r.output.String), &output); err != nil {
			return nil, err
		}
		c.Output = &output
	}
	if r.convErr.Valid && r.convErr.String != "" {
		var convErr ledgerDomain.ConversionError
		if err := json.Unmarshal([]byte(r.convErr.String), &convErr); err != nil {
			return nil, err
		}
		c.Error = &convErr
	}
	if r.keyFingerprint.Valid {
		c.KeyFingerprint = r.keyFingerprint.String
	}
	if r.endTime.Valid {
		t := r.endTime.Time
		c.EndTime = &t
	}
	if len(r.keyID) > 0 {
		id, err := decodeID(r.keyID)
		if err != nil {
			return nil, err
		}
		c.KeyID = &id
	}
	if len(r.sourceConversionID) > 0 {
		id, err := decodeID(r.sourceConversionID)
		if err != nil {
			return nil, err
		}
		c.SourceConversionID = &id
	}
	return &c, nil
}

// jsonArg encodes v for a JSON column. Strings are used rather than []byte so
// that lib/pq does not send them as bytea.
func jsonArg(v any) (any, error) {
	switch t := v.(type) {
	case *ledgerDomain.OutputDescriptor:
		if t == nil {
			return nil, nil
		}
	case *ledgerDomain.ConversionError:
		if t == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// placeholders renders n bind parameters starting at position start. A nil
// render function yields MySQL style markers.
func placeholders(n, start int, render func(int) string) string {
	parts := make([]string, n)
	for i := range n {
		if render == nil {
			parts[i] = "?"
			continue
		}
		parts[i] = render(start + i)
	}
	return strings.Join(parts, ", ")
}
