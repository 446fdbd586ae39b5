package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
	keyvaultUseCase "github.com/echocipher/carrier/internal/keyvault/usecase"
	vaultMocks "github.com/echocipher/carrier/internal/keyvault/usecase/mocks"
)

func newTestKey(scope string, version uint, active bool) *keyvaultDomain.MasterKey {
	return &keyvaultDomain.MasterKey{
		ID:        uuid.Must(uuid.NewV7()),
		Scope:     scope,
		Version:   version,
		Algorithm: keyvaultDomain.AESGCM,
		Source:    keyvaultDomain.SourceGenerated,
		IsActive:  active,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRunGenerateKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success-text", func(t *testing.T) {
		key := newTestKey("user-1", 1, true)
		mockVault := &vaultMocks.MockVaultUseCase{}
		mockVault.On("GenerateKey", ctx, "user-1").Return(key, nil)

		var out bytes.Buffer
		err := RunGenerateKey(ctx, mockVault, logger, &out, "user-1", "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "Master key generated")
		require.Contains(t, out.String(), key.ID.String())
		require.NotContains(t, out.String(), "EncryptedKey")
		mockVault.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		key := newTestKey("system", 1, true)
		mockVault := &vaultMocks.MockVaultUseCase{}
		mockVault.On("GenerateKey", ctx, "system").Return(key, nil)

		var out bytes.Buffer
		require.NoError(t, RunGenerateKey(ctx, mockVault, logger, &out, "system", "json"))

		var decoded keyOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		require.Equal(t, key.ID.String(), decoded.ID)
		require.Equal(t, "system", decoded.Scope)
		require.True(t, decoded.IsActive)
	})

	t.Run("vault-error", func(t *testing.T) {
		mockVault := &vaultMocks.MockVaultUseCase{}
		mockVault.On("GenerateKey", ctx, "user-1").Return(nil, keyvaultUseCase.ErrActiveKeyExists)

		err := RunGenerateKey(ctx, mockVault, logger, io.Discard, "user-1", "text")
		require.Error(t, err)
		require.True(t, errors.Is(err, keyvaultUseCase.ErrActiveKeyExists))
	})

	t.Run("invalid-format", func(t *testing.T) {
		mockVault := &vaultMocks.MockVaultUseCase{}
		err := RunGenerateKey(ctx, mockVault, logger, io.Discard, "user-1", "yaml")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid format")
		mockVault.AssertNotCalled(t, "GenerateKey")
	})
}

func TestRunRotateKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("success", func(t *testing.T) {
		key := newTestKey("user-1", 2, true)
		mockVault := &vaultMocks.MockVaultUseCase{}
		mockVault.On("Rotate", ctx, "user-1").Return(key, nil)

		var out bytes.Buffer
		require.NoError(t, RunRotateKey(ctx, mockVault, logger, &out, "user-1", "text"))
		require.Contains(t, out.String(), "Master key rotated")
		require.Contains(t, out.String(), "Version:   2")
		mockVault.AssertExpectations(t)
	})

	t.Run("vault-error", func(t *testing.T) {
		mockVault := &vaultMocks.MockVaultUseCase{}
		mockVault.On("Rotate", ctx, "user-1").Return(nil, keyvaultDomain.ErrMasterKeyNotFound)

		err := RunRotateKey(ctx, mockVault, logger, io.Discard, "user-1", "text")
		require.ErrorIs(t, err, keyvaultDomain.ErrMasterKeyNotFound)
	})
}

func TestRunListKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("table", func(t *testing.T) {
		active := newTestKey("user-1", 2, true)
		superseded := newTestKey("user-1", 1, false)
		mockVault := &vaultMocks.MockVaultUseCase{}
		mockVault.On("ListKeys", ctx, "user-1").
			Return([]*keyvaultDomain.MasterKey{active, superseded}, nil)

		var out bytes.Buffer
		require.NoError(t, RunListKeys(ctx, mockVault, &out, "user-1", "text"))
		require.Contains(t, out.String(), active.ID.String())
		require.Contains(t, out.String(), superseded.ID.String())
		require.Contains(t, out.String(), "2026-01-02T03:04:05Z")
		mockVault.AssertExpectations(t)
	})

	t.Run("json", func(t *testing.T) {
		mockVault := &vaultMocks.MockVaultUseCase{}
		mockVault.On("ListKeys", ctx, "user-1").
			Return([]*keyvaultDomain.MasterKey{newTestKey("user-1", 1, true)}, nil)

		var out bytes.Buffer
		require.NoError(t, RunListKeys(ctx, mockVault, &out, "user-1", "json"))

		var decoded []keyOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		require.Len(t, decoded, 1)
		require.Equal(t, uint(1), decoded[0].Version)
	})

	t.Run("vault-error", func(t *testing.T) {
		mockVault := &vaultMocks.MockVaultUseCase{}
		mockVault.On("ListKeys", ctx, "").Return(nil, keyvaultDomain.ErrInvalidScope)

		err := RunListKeys(ctx, mockVault, io.Discard, "", "text")
		require.ErrorIs(t, err, keyvaultDomain.ErrInvalidScope)
	})
}
