// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	conversionUseCase "github.com/echocipher/carrier/internal/conversion/usecase"
	ledgerDomain "github.com/echocipher/carrier/internal/ledger/domain"
)

// MockConversionUseCase is a mock implementation of ConversionUseCase for testing.
type MockConversionUseCase struct {
	mock.Mock
}

// NewMockConversionUseCase creates a mock that asserts its expectations on cleanup.
func NewMockConversionUseCase(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockConversionUseCase {
	m := &MockConversionUseCase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockConversionUseCase) Encode(
	ctx context.Context,
	input conversionUseCase.EncodeInput,
) (*ledgerDomain.Conversion, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.Conversion), args.Error(1)
}

func (m *MockConversionUseCase) Decode(
	ctx context.Context,
	input conversionUseCase.DecodeInput,
) (*conversionUseCase.DecodeOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversionUseCase.DecodeOutput), args.Error(1)
}

func (m *MockConversionUseCase) Create(
	ctx context.Context,
	input conversionUseCase.CreateInput,
) (*ledgerDomain.Conversion, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.Conversion), args.Error(1)
}

func (m *MockConversionUseCase) GetStatus(
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

func (m *MockConversionUseCase) List(
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

func (m *MockConversionUseCase) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockConversionUseCase) DownloadBundle(
	ctx context.Context,
	userID string,
	id uuid.UUID,
) (*conversionUseCase.BundleDownload, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversionUseCase.BundleDownload), args.Error(1)
}

func (m *MockConversionUseCase) Stats(ctx context.Context, userID string) (*ledgerDomain.Stats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerDomain.Stats), args.Error(1)
}

func (m *MockConversionUseCase) GatewayHealth(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
