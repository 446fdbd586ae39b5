package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/echocipher/carrier/internal/errors"
	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func masterKeyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "scope", "version", "algorithm", "encrypted_key", "source", "is_active", "created_at", "deactivated_at",
	})
}

func TestPostgreSQLMasterKeyRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLMasterKeyRepository(db)

	key := &keyvaultDomain.MasterKey{
		ID:           uuid.Must(uuid.NewV7()),
		Scope:        "alice",
		Version:      1,
		Algorithm:    keyvaultDomain.AESGCM,
		EncryptedKey: "aa:bb:cc",
		Source:       keyvaultDomain.SourceGenerated,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO master_keys")).
		WithArgs(key.ID, key.Scope, key.Version, key.Algorithm, key.EncryptedKey, key.Source, true, key.CreatedAt, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), key))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLMasterKeyRepository_Create_VersionTaken(t *testing.T) {
	key := &keyvaultDomain.MasterKey{
		ID:           uuid.Must(uuid.NewV7()),
		Scope:        "alice",
		Version:      2,
		Algorithm:    keyvaultDomain.AESGCM,
		EncryptedKey: "aa:bb:cc",
		Source:       keyvaultDomain.SourceSupplied,
		CreatedAt:    time.Now().UTC(),
	}

	tests := []struct {
		name string
		err  error
	}{
		{name: "lib/pq", err: &pq.Error{Code: "23505", Constraint: "master_keys_scope_version_key"}},
		{name: "pgx", err: &pgconn.PgError{Code: "23505", ConstraintName: "master_keys_scope_version_key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewPostgreSQLMasterKeyRepository(db)

			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO master_keys")).WillReturnError(tt.err)

			err := repo.Create(context.Background(), key)
			assert.ErrorIs(t, err, keyvaultDomain.ErrVersionConflict)
			assert.ErrorIs(t, err, apperrors.ErrConflict)
		})
	}
}

func TestPostgreSQLMasterKeyRepository_GetActive(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLMasterKeyRepository(db)
		id := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()

		mock.ExpectQuery(regexp.QuoteMeta("FROM master_keys")).
			WithArgs("alice").
			WillReturnRows(masterKeyRows().AddRow(id.String(), "alice", 3, "aes-gcm", "aa:bb:cc", "generated", true, now, nil))

		key, err := repo.GetActive(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, id, key.ID)
		assert.Equal(t, uint(3), key.Version)
		assert.Equal(t, keyvaultDomain.AESGCM, key.Algorithm)
		assert.True(t, key.IsActive)
		assert.Nil(t, key.DeactivatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLMasterKeyRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM master_keys")).
			WithArgs("bob").
			WillReturnRows(masterKeyRows())

		_, err := repo.GetActive(ctx, "bob")
		assert.ErrorIs(t, err, keyvaultDomain.ErrMasterKeyNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestPostgreSQLMasterKeyRepository_ListByScope(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLMasterKeyRepository(db)
	now := time.Now().UTC()
	deactivated := now.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY version DESC")).
		WithArgs("alice").
		WillReturnRows(masterKeyRows().
			AddRow(uuid.Must(uuid.NewV7()).String(), "alice", 2, "aes-gcm", "a:b:c", "generated", true, now, nil).
			AddRow(uuid.Must(uuid.NewV7()).String(), "alice", 1, "aes-gcm", "d:e:f", "generated", false, now, deactivated))

	keys, err := repo.ListByScope(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, uint(2), keys[0].Version)
	require.NotNil(t, keys[1].DeactivatedAt)
	assert.Equal(t, deactivated, *keys[1].DeactivatedAt)
}

func TestPostgreSQLMasterKeyRepository_GetLatestVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLMasterKeyRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0)")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(4))

	version, err := repo.GetLatestVersion(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint(4), version)
}

func TestPostgreSQLMasterKeyRepository_Deactivate(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())
	at := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLMasterKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("WHERE id = $2 AND is_active = TRUE")).
			WithArgs(at, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Deactivate(ctx, id, at))
	})

	t.Run("AlreadyInactive", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLMasterKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE master_keys")).
			WithArgs(at, id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Deactivate(ctx, id, at), apperrors.ErrConflict)
	})
}

func TestPostgreSQLMasterKeyRepository_DeleteSupplied(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLMasterKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM master_keys WHERE id = $1 AND source = $2 AND is_active = FALSE")).
			WithArgs(id, "supplied").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.DeleteSupplied(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotSupplied", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLMasterKeyRepository(db)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM master_keys")).
			WithArgs(id, "supplied").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.DeleteSupplied(ctx, id), keyvaultDomain.ErrMasterKeyNotFound)
	})
}
