package handlers

import (
	"context"

	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/stretchr/testify/mock"
)

// MockLedgerService implements LedgerServiceInterface for handler tests.
type MockLedgerService struct {
	mock.Mock
}

var _ LedgerServiceInterface = (*MockLedgerService)(nil)

func (m *MockLedgerService) GetBalances(ctx context.Context, groupID string) (types.Balances, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(types.Balances), args.Error(1)
}

func (m *MockLedgerService) GetSimplifiedDebts(ctx context.Context, groupID string) ([]types.SimplifiedDebt, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.SimplifiedDebt), args.Error(1)
}

func (m *MockLedgerService) Explain(ctx context.Context, groupID, currency string) ([]types.SimplificationStep, string, error) {
	args := m.Called(ctx, groupID, currency)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]types.SimplificationStep), args.String(1), args.Error(2)
}

func (m *MockLedgerService) Summary(ctx context.Context, groupID string) (*types.GroupSummary, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GroupSummary), args.Error(1)
}

func (m *MockLedgerService) AddParticipant(ctx context.Context, groupID string, req types.UpsertParticipantRequest) (*types.Participant, error) {
	args := m.Called(ctx, groupID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Participant), args.Error(1)
}

func (m *MockLedgerService) CreateExpense(ctx context.Context, groupID, userID string, req types.CreateExpenseRequest) (*types.Expense, error) {
	args := m.Called(ctx, groupID, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Expense), args.Error(1)
}

func (m *MockLedgerService) PreviewSplit(req types.SplitPreviewRequest) (*types.SplitPreviewResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SplitPreviewResponse), args.Error(1)
}

func (m *MockLedgerService) RecordSettlement(ctx context.Context, groupID string, req types.CreateSettlementRequest) (*types.SettlementResponse, error) {
	args := m.Called(ctx, groupID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SettlementResponse), args.Error(1)
}

func (m *MockLedgerService) ConfirmSettlement(ctx context.Context, groupID, settlementID string, strongAuthVerified bool) (*types.SettlementResponse, error) {
	args := m.Called(ctx, groupID, settlementID, strongAuthVerified)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SettlementResponse), args.Error(1)
}

func (m *MockLedgerService) RejectSettlement(ctx context.Context, groupID, settlementID string) (*types.SettlementResponse, error) {
	args := m.Called(ctx, groupID, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SettlementResponse), args.Error(1)
}

type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) CheckHealth(ctx context.Context) types.HealthCheck {
	args := m.Called(ctx)
	return args.Get(0).(types.HealthCheck)
}
