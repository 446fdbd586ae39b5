package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/echocipher/carrier/internal/database"
	apperrors "github.com/echocipher/carrier/internal/errors"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	ledgerUseCase "github.com/echocipher/carrier/internal/ledger/usecase"
)

// MySQLConversionRepository implements conversion persistence for MySQL.
// Uses BINARY(16) for UUIDs.
type MySQLConversionRepository struct {
	db *sql.DB
}

// NewMySQLConversionRepository creates a new MySQL conversion repository.
func NewMySQLConversionRepository(db *sql.DB) *MySQLConversionRepository {
	return &MySQLConversionRepository{db: db}
}

func marshalNullableID(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	return id.MarshalBinary()
}

// Create inserts a new conversion record.
func (m *MySQLConversionRepository) Create(ctx context.Context, c *ledgerDomain.Conversion) error {
	querier := database.GetTx(ctx, m.db)

	id, err := c.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion id")
	}
	keyID, err := marshalNullableID(c.KeyID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key id")
	}
	sourceID, err := marshalNullableID(c.SourceConversionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal source conversion id")
	}
	output, err := jsonArg(c.Output)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion output")
	}
	convErr, err := jsonArg(c.Error)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion error")
	}

	query := `INSERT INTO conversions (` + conversionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		c.UserID,
		c.Direction,
		c.Status,
		c.Input.FileName,
		c.Input.FileSize,
		c.Input.Format,
		output,
		convErr,
		keyID,
		c.KeyVersion,
		nullableString(c.KeyFingerprint),
		sourceID,
		c.StartTime,
		c.EndTime,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create conversion")
	}
	return nil
}

// Get retrieves a conversion by id.
func (m *MySQLConversionRepository) Get(ctx context.Context, id uuid.UUID) (*ledgerDomain.Conversion, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal conversion id")
	}

	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE id = ?`

	c, err := scanMySQLConversion(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledgerDomain.ErrConversionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get conversion")
	}
	return c, nil
}

// ListByUser returns the conversions of a user, newest first.
func (m *MySQLConversionRepository) ListByUser(
	ctx context.Context,
	userID string,
	filter ledgerDomain.ListFilter,
) ([]*ledgerDomain.Conversion, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + conversionColumns + ` FROM conversions
			  WHERE user_id = ?
			    AND (? = '' OR status = ?)
			    AND (? = '' OR direction = ?)
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	status := string(filter.Status)
	direction := string(filter.Direction)
	rows, err := querier.QueryContext(
		ctx,
		query,
		userID,
		status, status,
		direction, direction,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list conversions")
	}
	defer func() {
		_ = rows.Close()
	}()

	conversions := make([]*ledgerDomain.Conversion, 0)
	for rows.Next() {
		c, err := scanMySQLConversion(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan conversion")
		}
		conversions = append(conversions, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conversions, nil
}

// Transition applies a conditional status update.
func (m *MySQLConversionRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from []ledgerDomain.Status,
	to ledgerDomain.Status,
	update ledgerUseCase.TransitionUpdate,
) error {
	if len(from) == 0 {
		return ledgerDomain.ErrInvalidTransition
	}
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion id")
	}
	output, err := jsonArg(update.Output)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion output")
	}
	convErr, err := jsonArg(update.Error)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion error")
	}

	query := `UPDATE conversions
			  SET status = ?,
			      output = COALESCE(?, output),
			      error = COALESCE(?, error),
			      end_time = COALESCE(?, end_time),
			      updated_at = ?
			  WHERE id = ? AND status IN (` + placeholders(len(from), 0, nil) + `)`

	args := []any{to, output, convErr, update.EndTime, update.UpdatedAt, idBytes}
	for _, s := range from {
		args = append(args, s)
	}

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "failed to transition conversion")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected > 0 {
		return nil
	}

	var current string
	err = querier.QueryRowContext(ctx, `SELECT status FROM conversions WHERE id = ?`, idBytes).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledgerDomain.ErrConversionNotFound
		}
		return apperrors.Wrap(err, "failed to get conversion status")
	}
	return apperrors.Wrapf(ledgerDomain.ErrInvalidTransition, "%s -> %s", current, to)
}

// Delete removes a conversion record.
func (m *MySQLConversionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM conversions WHERE id = ?`, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete conversion")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return ledgerDomain.ErrConversionNotFound
	}
	return nil
}

// Stats aggregates conversions per status for one user, or for everyone when userID is empty.
func (m *MySQLConversionRepository) Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT status, COUNT(*), COALESCE(SUM(input_file_size), 0)
			  FROM conversions
			  WHERE (? = '' OR user_id = ?)
			  GROUP BY status`

	rows, err := querier.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate conversions")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanStats(rows)
}

func scanMySQLConversion(row rowScanner) (*ledgerDomain.Conversion, error) {
	var r conversionRow
	var id []byte
	c := &r.conversion

	err := row.Scan(
		&id,
		&c.UserID,
		&c.Direction,
		&c.Status,
		&c.Input.FileName,
		&c.Input.FileSize,
		&c.Input.Format,
		&r.output,
		&r.convErr,
		&r.keyID,
		&c.KeyVersion,
		&r.keyFingerprint,
		&r.sourceConversionID,
		&c.StartTime,
		&r.endTime,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := c.ID.UnmarshalBinary(id); err != nil {
		return nil, err
	}
	return r.finish(uuid.FromBytes)
}
