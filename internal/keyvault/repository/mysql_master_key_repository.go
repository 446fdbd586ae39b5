package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/echocipher/carrier/internal/database"
	apperrors "github.com/echocipher/carrier/internal/errors"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

// MySQLMasterKeyRepository implements master key persistence for MySQL.
// Uses BINARY(16) for UUIDs.
type MySQLMasterKeyRepository struct {
	db *sql.DB
}

// NewMySQLMasterKeyRepository creates a new MySQL master key repository.
func NewMySQLMasterKeyRepository(db *sql.DB) *MySQLMasterKeyRepository {
	return &MySQLMasterKeyRepository{db: db}
}

// Create inserts a new master key record.
func (m *MySQLMasterKeyRepository) Create(ctx context.Context, key *keyvaultDomain.MasterKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO master_keys (` + masterKeyColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := key.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal master key id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
		// 1062 duplicate entry; 1213 deadlock between two gap-locked allocations.
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && (mysqlErr.Number == 1062 || mysqlErr.Number == 1213) {
			return keyvaultDomain.ErrVersionConflict
		}
		return apperrors.Wrap(err, "failed to create master key")
	}
	return nil
}

// GetByID retrieves a master key by id.
func (m *MySQLMasterKeyRepository) GetByID(ctx context.Context, id uuid.UUID) (*keyvaultDomain.MasterKey, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal master key id")
	}

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys WHERE id = ?`

	key, err := scanMySQLMasterKey(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keyvaultDomain.ErrMasterKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get master key")
	}
	return key, nil
}

// GetActive retrieves the active master key of a scope.
func (m *MySQLMasterKeyRepository) GetActive(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys
			  WHERE scope = ? AND is_active = TRUE
			  ORDER BY version DESC LIMIT 1`

	key, err := scanMySQLMasterKey(querier.QueryRowContext(ctx, query, scope))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keyvaultDomain.ErrMasterKeyNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get active master key")
	}
	return key, nil
}

// GetLatestVersion returns the highest version of a scope, or 0 when the scope is empty.
// Inside a transaction the scope's index range stays locked until commit.
func (m *MySQLMasterKeyRepository) GetLatestVersion(ctx context.Context, scope string) (uint, error) {
	querier := database.GetTx(ctx, m.db)

	var version uint
	query := `SELECT COALESCE(MAX(version), 0) FROM master_keys WHERE scope = ? FOR UPDATE`
	if err := querier.QueryRowContext(ctx, query, scope).Scan(&version); err != nil {
		return 0, apperrors.Wrap(err, "failed to get latest master key version")
	}
	return version, nil
}

// ListByScope returns all master keys of a scope ordered by version descending.
func (m *MySQLMasterKeyRepository) ListByScope(
	ctx context.Context,
	scope string,
) ([]*keyvaultDomain.MasterKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + masterKeyColumns + ` FROM master_keys WHERE scope = ? ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, scope)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list master keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	keys := make([]*keyvaultDomain.MasterKey, 0)
	for rows.Next() {
		key, err := scanMySQLMasterKey(rows)
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
func (m *MySQLMasterKeyRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal master key id")
	}

	query := `UPDATE master_keys SET is_active = FALSE, deactivated_at = ?
			  WHERE id = ? AND is_active = TRUE`

	result, err := querier.ExecContext(ctx, query, at, idBytes)
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
func (m *MySQLMasterKeyRepository) DeleteSupplied(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal master key id")
	}

	query := `DELETE FROM master_keys WHERE id = ? AND source = ? AND is_active = FALSE`

	result, err := querier.ExecContext(ctx, query, idBytes, string(keyvaultDomain.SourceSupplied))
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

func scanMySQLMasterKey(row rowScanner) (*keyvaultDomain.MasterKey, error) {
	var key keyvaultDomain.MasterKey
	var id []byte
	var deactivatedAt sql.NullTime

	err := row.Scan(
		&id,
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
	if err := key.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal master key id")
	}
	if deactivatedAt.Valid {
		t := deactivatedAt.Time
		key.DeactivatedAt = &t
	}
	return &key, nil
}
