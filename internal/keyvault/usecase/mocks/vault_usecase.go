// Package mocks provides mock implementations for testing vault consumers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	keyvaultDomain "github.com/echocipher/carrier/internal/keyvault/domain"
)

// MockVaultUseCase is a mock implementation of VaultUseCase.
type MockVaultUseCase struct {
	mock.Mock
}

func (m *MockVaultUseCase) GetOrCreateMasterKey(
	ctx context.Context,
	userID string,
) (*keyvaultDomain.ResolvedKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyvaultDomain.ResolvedKey), args.Error(1)
}

func (m *MockVaultUseCase) GenerateKey(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyvaultDomain.MasterKey), args.Error(1)
}

func (m *MockVaultUseCase) ImportKey(
	ctx context.Context,
	scope, hexKey string,
) (*keyvaultDomain.ResolvedKey, error) {
	args := m.Called(ctx, scope, hexKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyvaultDomain.ResolvedKey), args.Error(1)
}

func (m *MockVaultUseCase) DiscardImported(ctx context.Context, ref keyvaultDomain.KeyReference) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockVaultUseCase) Rotate(ctx context.Context, scope string) (*keyvaultDomain.MasterKey, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyvaultDomain.MasterKey), args.Error(1)
}

func (m *MockVaultUseCase) Reveal(ctx context.Context, ref keyvaultDomain.KeyReference) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *MockVaultUseCase) ListKeys(ctx context.Context, scope string) ([]*keyvaultDomain.MasterKey, error) {
	args := m.Called(ctx, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keyvaultDomain.MasterKey), args.Error(1)
}

func (m *MockVaultUseCase) EncryptAtRest(plainHexKey string) (string, error) {
	args := m.Called(plainHexKey)
	return args.String(0), args.Error(1)
}

func (m *MockVaultUseCase) DecryptAtRest(encryptedForm string) (string, error) {
	args := m.Called(encryptedForm)
	return args.String(0), args.Error(1)
}

