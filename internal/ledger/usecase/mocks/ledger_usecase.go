// Package mocks provides mock implementations for testing ledger consumers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
	ledgerUseCase "github.com/echocipher/carrier/internal/ledger/usecase"
)

// MockLedgerUseCase is a mock implementation of LedgerUseCase.
type MockLedgerUseCase struct {
	mock.Mock
}

func (m *MockLedgerUseCase) Create(
	ctx context.Context,
	input ledgerUseCase.CreateInput,
) (*ledgerDomain.Conversion, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.Conversion), args.Error(1)
}

func (m *MockLedgerUseCase) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerUseCase) MarkCompleted(
	ctx context.Context,
	id uuid.UUID,
	output *ledgerDomain.OutputDescriptor,
) error {
	args := m.Called(ctx, id, output)
	return args.Error(0)
}

func (m *MockLedgerUseCase) MarkFailed(ctx context.Context, id uuid.UUID, convErr ledgerDomain.ConversionError) error {
	args := m.Called(ctx, id, convErr)
	return args.Error(0)
}

func (m *MockLedgerUseCase) Get(ctx context.Context, id uuid.UUID) (*ledgerDomain.Conversion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.Conversion), args.Error(1)
}

func (m *MockLedgerUseCase) GetForUser(
	ctx context.Context,
	userID string,
	id uuid.UUID,
) (*ledgerDomain.Conversion, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.Conversion), args.Error(1)
}

func (m *MockLedgerUseCase) ListByUser(
	ctx context.Context,
	userID string,
	filter ledgerDomain.ListFilter,
) ([]*ledgerDomain.Conversion, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledgerDomain.Conversion), args.Error(1)
}

func (m *MockLedgerUseCase) Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.Stats), args.Error(1)
}

func (m *MockLedgerUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
