package service

import (
	"context"

	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/stretchr/testify/mock"
)

// MockLedgerStore is a mock implementation of store.LedgerStore
type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) ListParticipants(ctx context.Context, groupID string) ([]types.Participant, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Participant), args.Error(1)
}

func (m *MockLedgerStore) UpsertParticipant(ctx context.Context, groupID string, p types.Participant) error {
	args := m.Called(ctx, groupID, p)
	return args.Error(0)
}

func (m *MockLedgerStore) ListExpenses(ctx context.Context, groupID string) ([]types.Expense, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Expense), args.Error(1)
}

func (m *MockLedgerStore) CreateExpense(ctx context.Context, expense *types.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockLedgerStore) ListSettlements(ctx context.Context, groupID string) ([]types.Settlement, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Settlement), args.Error(1)
}

func (m *MockLedgerStore) CreateSettlement(ctx context.Context, settlement *types.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

func (m *MockLedgerStore) GetSettlement(ctx context.Context, groupID, settlementID string) (*types.Settlement, error) {
	args := m.Called(ctx, groupID, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Settlement), args.Error(1)
}

func (m *MockLedgerStore) UpdateSettlementStatus(ctx context.Context, groupID, settlementID string, from, to types.SettlementStatus) (*types.Settlement, error) {
	args := m.Called(ctx, groupID, settlementID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Settlement), args.Error(1)
}

// MockBalanceCache is a mock implementation of BalanceCache
type MockBalanceCache struct {
	mock.Mock
}

func (m *MockBalanceCache) Get(ctx context.Context, groupID string) (types.Balances, bool, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(types.Balances), args.Bool(1), args.Error(2)
}

func (m *MockBalanceCache) Generation(ctx context.Context, groupID string) (int64, error) {
	args := m.Called(ctx, groupID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBalanceCache) Set(ctx context.Context, groupID string, generation int64, balances types.Balances) (bool, error) {
	args := m.Called(ctx, groupID, generation, balances)
	return args.Bool(0), args.Error(1)
}

func (m *MockBalanceCache) Invalidate(ctx context.Context, groupID string) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of types.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, groupID string, event types.Event) error {
	args := m.Called(ctx, groupID, event)
	return args.Error(0)
}
