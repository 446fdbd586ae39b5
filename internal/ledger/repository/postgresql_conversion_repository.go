package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/echocipher/carrier/internal/database"
	apperrors "github.com/echocipher/carrier/internal/errors"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	ledgerUseCase "github.com/echocipher/carrier/internal/ledger/usecase"
)

// PostgreSQLConversionRepository implements conversion persistence for PostgreSQL.
type PostgreSQLConversionRepository struct {
	db *sql.DB
}

// NewPostgreSQLConversionRepository creates a new PostgreSQL conversion repository.
func NewPostgreSQLConversionRepository(db *sql.DB) *PostgreSQLConversionRepository {
	return &PostgreSQLConversionRepository{db: db}
}

// Create inserts a new conversion record.
func (p *PostgreSQLConversionRepository) Create(ctx context.Context, c *ledgerDomain.Conversion) error {
	querier := database.GetTx(ctx, p.db)

	output, err := jsonArg(c.Output)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion output")
	}
	convErr, err := jsonArg(c.Error)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion error")
	}

	query := `INSERT INTO conversions (` + conversionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = querier.ExecContext(
		ctx,
		query,
		c.ID,
		c.UserID,
		c.Direction,
		c.Status,
		c.Input.FileName,
		c.Input.FileSize,
		c.Input.Format,
		output,
		convErr,
		c.KeyID,
		c.KeyVersion,
		nullableString(c.KeyFingerprint),
		c.SourceConversionID,
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
func (p *PostgreSQLConversionRepository) Get(ctx context.Context, id uuid.UUID) (*ledgerDomain.Conversion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1`

	c, err := scanPostgreSQLConversion(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledgerDomain.ErrConversionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get conversion")
	}
	return c, nil
}

// ListByUser returns the conversions of a user, newest first.
func (p *PostgreSQLConversionRepository) ListByUser(
	ctx context.Context,
	userID string,
	filter ledgerDomain.ListFilter,
) ([]*ledgerDomain.Conversion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + conversionColumns + ` FROM conversions
			  WHERE user_id = $1
			    AND ($2 = '' OR status = $2)
			    AND ($3 = '' OR direction = $3)
			  ORDER BY created_at DESC, id DESC
			  LIMIT $4 OFFSET $5`

	rows, err := querier.QueryContext(
		ctx,
		query,
		userID,
		string(filter.Status),
		string(filter.Direction),
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
		c, err := scanPostgreSQLConversion(rows)
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
func (p *PostgreSQLConversionRepository) Transition(
	ctx context.Context,
	id uuid.UUID,
	from []ledgerDomain.Status,
	to ledgerDomain.Status,
	update ledgerUseCase.TransitionUpdate,
) error {
	if len(from) == 0 {
		return ledgerDomain.ErrInvalidTransition
	}
	querier := database.GetTx(ctx, p.db)

	output, err := jsonArg(update.Output)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion output")
	}
	convErr, err := jsonArg(update.Error)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal conversion error")
	}

	query := `UPDATE conversions
			  SET status = $1,
			      output = COALESCE($2, output),
			      error = COALESCE($3, error),
			      end_time = COALESCE($4, end_time),
			      updated_at = $5
			  WHERE id = $6 AND status IN (` +
		placeholders(len(from), 7, func(i int) string { return fmt.Sprintf("$%d", i) }) + `)`

	args := []any{to, output, convErr, update.EndTime, update.UpdatedAt, id}
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
	err = querier.QueryRowContext(ctx, `SELECT status FROM conversions WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledgerDomain.ErrConversionNotFound
		}
		return apperrors.Wrap(err, "failed to get conversion status")
	}
	return apperrors.Wrapf(ledgerDomain.ErrInvalidTransition, "%s -> %s", current, to)
}

// Delete removes a conversion record.
func (p *PostgreSQLConversionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM conversions WHERE id = $1`, id)
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
func (p *PostgreSQLConversionRepository) Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT status, COUNT(*), COALESCE(SUM(input_file_size), 0)
			  FROM conversions
			  WHERE ($1 = '' OR user_id = $1)
			  GROUP BY status`

	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to aggregate conversions")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanStats(rows)
}

func scanStats(rows *sql.Rows) (*ledgerDomain.Stats, error) {
	stats := &ledgerDomain.Stats{}
	for rows.Next() {
		var status string
		var count, bytes int64
		if err := rows.Scan(&status, &count, &bytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan conversion stats")
		}
		stats.Add(ledgerDomain.Status(status), count)
		stats.TotalInputBytes += bytes
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func scanPostgreSQLConversion(row rowScanner) (*ledgerDomain.Conversion, error) {
	var r conversionRow
	var keyID, sourceID sql.NullString
	c := &r.conversion

	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Direction,
		&c.Status,
		&c.Input.FileName,
		&c.Input.FileSize,
		&c.Input.Format,
		&r.output,
		&r.convErr,
		&keyID,
		&c.KeyVersion,
		&r.keyFingerprint,
		&sourceID,
		&c.StartTime,
		&r.endTime,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if keyID.Valid {
		r.keyID = []byte(keyID.String)
	}
	if sourceID.Valid {
		r.sourceConversionID = []byte(sourceID.String)
	}
	return r.finish(uuid.ParseBytes)
}
