// Package repository implements master key persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/echocipher/carrier/internal/database"
	apperrors "github.com/echocipher/carrier/internal/errors"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

const masterKeyColumns = `id, scope, version, algorithm, encrypted_key, source, is_active, created_at, deactivated_at`

// PostgreSQLMasterKeyRepository implements master key persistence for PostgreSQL.
type PostgreSQLMasterKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLMasterKeyRepository creates a new PostgreSQL master key repository.
func NewPostgreSQLMasterKeyRepository(db *sql.DB) *PostgreSQLMasterKeyRepository {
	return &PostgreSQLMasterKeyRepository{db: db}
}

// Create inserts a new master key record.
func (p *PostgreSQLMasterKeyRepository) Create(ctx context.Context, key *keyvaultDomain.MasterKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO master_keys (` + masterKeyColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		key.ID,
		key.Scope,
		key.Version,
		key.Algorithm,
		key.EncryptedKey,
		key.Source,
		key.IsActive,
		key.CreatedAt,
		key.DeactivatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return keyvaultDomain.ErrVersionConflict
		}
		return apperrors.Wrap(err, "failed to create master key")
	}
	return nil
}

// GetByID retrieves a master key by id.
func (p *PostgreSQLMasterKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*keyvaultDomain.MasterKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys WHERE id = $1`

	key, err := scanPostgreSQLMasterKey(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keyvaultDomain.ErrMasterKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get master key")
	}
	return key, nil
}

// GetActive retrieves the active master key of a scope.
func (p *PostgreSQLMasterKeyRepository) GetActive(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys
			  WHERE scope = $1 AND is_active = TRUE
			  ORDER BY version DESC LIMIT 1`

	key, err := scanPostgreSQLMasterKey(querier.QueryRowContext(ctx, query, scope))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keyvaultDomain.ErrMasterKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get active master key")
	}
	return key, nil
}

// GetLatestVersion returns the highest version of a scope, or 0 when the scope is empty.
// Inside a transaction it holds a per-scope advisory lock until commit, so
// concurrent allocations of the same scope are serialized.
func (p *PostgreSQLMasterKeyRepository) GetLatestVersion(ctx context.Context, scope string) (uint, error) {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, scope); err != nil {
		return 0, apperrors.Wrap(err, "failed to lock master key scope")
	}

	var version uint
	query := `SELECT COALESCE(MAX(version), 0) FROM master_keys WHERE scope = $1`
	if err := querier.QueryRowContext(ctx, query, scope).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get latest master key version")
	}
	return version, nil
}

// ListByScope returns all master keys of a scope ordered by version descending.
func (p *PostgreSQLMasterKeyRepository) ListByScope(
	ctx context.Context,
	scope string,
) ([]*keyvaultDomain.MasterKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys WHERE scope = $1 ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, scope)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list master keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*keyvaultDomain.MasterKey, 0)
	for rows.Next() {
		key, err := scanPostgreSQLMasterKey(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan master key")
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Deactivate clears the active flag with a conditional update.
func (p *PostgreSQLMasterKeyRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE master_keys SET is_active = FALSE, deactivated_at = $1
			  WHERE id = $2 AND is_active = TRUE`

	result, err := querier.ExecContext(ctx, query, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to deactivate master key")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrConflict, "master key is no longer active")
	}
	return nil
}

// DeleteSupplied removes id if it is an inactive supplied key.
func (p *PostgreSQLMasterKeyRepository) DeleteSupplied(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM master_keys WHERE id = $1 AND source = $2 AND is_active = FALSE`

	result, err := querier.ExecContext(ctx, query, id, string(keyvaultDomain.SourceSupplied))
	if err != nil {
		return apperrors.Wrap(err, "failed to delete master key")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return keyvaultDomain.ErrMasterKeyNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgreSQLMasterKey(row rowScanner) (*keyvaultDomain.MasterKey, error) {
	var key keyvaultDomain.MasterKey
	var deactivatedAt sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.Scope,
		&key.Version,
		&key.Algorithm,
		&key.EncryptedKey,
		&key.Source,
		&key.IsActive,
		&key.CreatedAt,
		&deactivatedAt,
	)
	if err != nil {
		return nil, err
	}
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		key.DeactivatedAt = &t
	}
	return &key, nil
}

// isPostgreSQLUniqueViolation matches SQLSTATE 23505 from both lib/pq and pgx.
func isPostgreSQLUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
