package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/NomadCrew/nomad-crew-ledger/internal/store"
	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/models/policy"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

const groupID = "group-1"

func dinner() types.Expense {
	return types.Expense{
		ID:          "exp-1",
		GroupID:     groupID,
		Currency:    "INR",
		TotalAmount: 3000,
		Payers:      []types.PayerShare{{ParticipantID: "A", Amount: 3000}},
		Splits: []types.SplitShare{
			{ParticipantID: "A", Amount: 1000},
			{ParticipantID: "B", Amount: 1000},
			{ParticipantID: "C", Amount: 1000},
		},
	}
}

func dinnerBalances() types.Balances {
	return types.Balances{"A": 2000, "B": -1000, "C": -1000}
}

func newTestService(st *MockLedgerStore, cache BalanceCache) *LedgerService {
	svc := NewLedgerService(st, cache, policy.NewBiometricPolicy(policy.DefaultStrongAuthThreshold), "INR")
	svc.newID = func() string { return "generated-id" }
	return svc
}

func TestLedgerService_GetBalances(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips the store", func(t *testing.T) {
		st := new(MockLedgerStore)
		cache := new(MockBalanceCache)
		cache.On("Get", ctx, groupID).Return(types.Balances{"A": 5, "B": -5}, true, nil)

		got, err := newTestService(st, cache).GetBalances(ctx, groupID)

		require.NoError(t, err)
		assert.Equal(t, types.Balances{"A": 5, "B": -5}, got)
		st.AssertNotCalled(t, "ListExpenses", mock.Anything, mock.Anything)
		cache.AssertExpectations(t)
	})

	t.Run("cache miss computes and stores", func(t *testing.T) {
		st := new(MockLedgerStore)
		cache := new(MockBalanceCache)
		cache.On("Get", ctx, groupID).Return(nil, false, nil)
		st.On("ListExpenses", ctx, groupID).Return([]types.Expense{dinner()}, nil)
		st.On("ListSettlements", ctx, groupID).Return([]types.Settlement{}, nil)
		cache.On("Generation", ctx, groupID).Return(int64(7), nil)
		cache.On("Set", ctx, groupID, int64(7), dinnerBalances()).Return(true, nil)

		got, err := newTestService(st, cache).GetBalances(ctx, groupID)

		require.NoError(t, err)
		assert.Equal(t, dinnerBalances(), got)
		st.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache failures fall back to the store", func(t *testing.T) {
		st := new(MockLedgerStore)
		cache := new(MockBalanceCache)
		cache.On("Get", ctx, groupID).Return(nil, false, errors.New("redis down"))
		st.On("ListExpenses", ctx, groupID).Return([]types.Expense{dinner()}, nil)
		st.On("ListSettlements", ctx, groupID).Return(nil, nil)
		cache.On("Generation", ctx, groupID).Return(int64(0), errors.New("redis down"))

		got, err := newTestService(st, cache).GetBalances(ctx, groupID)

		require.NoError(t, err)
		assert.Equal(t, dinnerBalances(), got)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("refused write still returns balances", func(t *testing.T) {
		st := new(MockLedgerStore)
		cache := new(MockBalanceCache)
		cache.On("Get", ctx, groupID).Return(nil, false, nil)
		cache.On("Generation", ctx, groupID).Return(int64(1), nil)
		st.On("ListExpenses", ctx, groupID).Return([]types.Expense{dinner()}, nil)
		st.On("ListSettlements", ctx, groupID).Return(nil, nil)
		cache.On("Set", ctx, groupID, int64(1), dinnerBalances()).Return(false, nil)

		got, err := newTestService(st, cache).GetBalances(ctx, groupID)

		require.NoError(t, err)
		assert.Equal(t, dinnerBalances(), got)
		cache.AssertExpectations(t)
	})

	t.Run("confirmed settlements only", func(t *testing.T) {
		st := new(MockLedgerStore)
		st.On("ListExpenses", ctx, groupID).Return([]types.Expense{dinner()}, nil)
		st.On("ListSettlements", ctx, groupID).Return([]types.Settlement{
			{FromParticipantID: "B", ToParticipantID: "A", Amount: 1000, Status: types.SettlementStatusConfirmed},
			{FromParticipantID: "C", ToParticipantID: "A", Amount: 1000, Status: types.SettlementStatusPending},
		}, nil)

		got, err := newTestService(st, nil).GetBalances(ctx, groupID)

		require.NoError(t, err)
		assert.Equal(t, int64(1000), got.Get("A"))
		assert.Equal(t, int64(0), got.Get("B"))
		assert.Equal(t, int64(-1000), got.Get("C"))
	})

	t.Run("store error", func(t *testing.T) {
		st := new(MockLedgerStore)
		st.On("ListExpenses", ctx, groupID).Return(nil, errors.New("connection reset"))

		_, err := newTestService(st, nil).GetBalances(ctx, groupID)

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.DatabaseError))
	})
}

func TestLedgerService_GetSimplifiedDebts(t *testing.T) {
	ctx := context.Background()
	st := new(MockLedgerStore)
	st.On("ListExpenses", ctx, groupID).Return([]types.Expense{dinner()}, nil)
	st.On("ListSettlements", ctx, groupID).Return([]types.Settlement{}, nil)

	debts, err := newTestService(st, nil).GetSimplifiedDebts(ctx, groupID)

	require.NoError(t, err)
	assert.Equal(t, []types.SimplifiedDebt{
		{FromParticipantID: "B", ToParticipantID: "A", Amount: 1000},
		{FromParticipantID: "C", ToParticipantID: "A", Amount: 1000},
	}, debts)
}

func TestLedgerService_Explain(t *testing.T) {
	ctx := context.Background()
	participants := []types.Participant{
		{ID: "A", DisplayName: "Asha"},
		{ID: "B", DisplayName: "Bilal"},
		{ID: "C"},
	}

	tests := []struct {
		name          string
		currency      string
		expectedLabel string
		firstPayment  string
	}{
		{name: "default currency", currency: "", expectedLabel: "INR", firstPayment: "Payment 1: Bilal pays Asha INR 10.00"},
		{name: "lowercase code", currency: "usd", expectedLabel: "USD", firstPayment: "Payment 1: Bilal pays Asha USD 10.00"},
		{name: "symbol", currency: "₹", expectedLabel: "₹", firstPayment: "Payment 1: Bilal pays Asha ₹10.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(MockLedgerStore)
			st.On("ListExpenses", ctx, groupID).Return([]types.Expense{dinner()}, nil)
			st.On("ListSettlements", ctx, groupID).Return([]types.Settlement{}, nil)
			st.On("ListParticipants", ctx, groupID).Return(participants, nil)

			steps, label, err := newTestService(st, nil).Explain(ctx, groupID, tt.currency)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedLabel, label)
			require.Len(t, steps, 5)
			assert.Equal(t, tt.firstPayment, steps[2].Title)
			assert.Contains(t, steps[3].Title, "C pays Asha")
		})
	}

	t.Run("unsupported currency", func(t *testing.T) {
		st := new(MockLedgerStore)

		_, _, err := newTestService(st, nil).Explain(ctx, groupID, "XYZ")

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
		st.AssertNotCalled(t, "ListExpenses", mock.Anything, mock.Anything)
	})
}

func TestLedgerService_Summary(t *testing.T) {
	ctx := context.Background()
	lunch := dinner()
	lunch.ID = "exp-2"
	lunch.Currency = "USD"

	st := new(MockLedgerStore)
	st.On("ListExpenses", ctx, groupID).Return([]types.Expense{dinner(), lunch}, nil)
	st.On("ListSettlements", ctx, groupID).Return([]types.Settlement{}, nil)
	st.On("ListParticipants", ctx, groupID).Return([]types.Participant{{ID: "A", DisplayName: "Asha"}}, nil)

	summary, err := newTestService(st, nil).Summary(ctx, groupID)

	require.NoError(t, err)
	assert.Equal(t, groupID, summary.GroupID)
	assert.Equal(t, "INR", summary.Currency)
	assert.Equal(t, int64(6000), summary.TotalSpent)
	assert.Equal(t, types.Balances{"A": 4000, "B": -2000, "C": -2000}, summary.Balances)
	assert.Len(t, summary.Debts, 2)
	require.Len(t, summary.Explanation, 5)
	assert.Equal(t, "Payment 1: B pays Asha INR 20.00", summary.Explanation[2].Title)
}

func TestLedgerService_AddParticipant(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts", func(t *testing.T) {
		st := new(MockLedgerStore)
		st.On("UpsertParticipant", ctx, groupID, types.Participant{ID: "A", DisplayName: "Asha"}).Return(nil)

		p, err := newTestService(st, nil).AddParticipant(ctx, groupID, types.UpsertParticipantRequest{ID: "A", DisplayName: "Asha"})

		require.NoError(t, err)
		assert.Equal(t, "Asha", p.DisplayName)
		st.AssertExpectations(t)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := newTestService(new(MockLedgerStore), nil).AddParticipant(ctx, groupID, types.UpsertParticipantRequest{})
		assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
	})
}

func TestLedgerService_CreateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("percentage split is stored and invalidates cache", func(t *testing.T) {
		st := new(MockLedgerStore)
		cache := new(MockBalanceCache)
		st.On("CreateExpense", ctx, mock.MatchedBy(func(e *types.Expense) bool {
			return e.ID == "generated-id" && e.GroupID == groupID && e.CreatedBy == "user-1" &&
				e.Currency == "INR" && e.Strategy == "percentage" && len(e.Splits) == 2 &&
				e.Splits[0].Amount == 6000 && e.Splits[1].Amount == 4000
		})).Return(nil)
		cache.On("Invalidate", ctx, groupID).Return(nil)

		req := types.CreateExpenseRequest{
			Description:  "Cab",
			TotalAmount:  10000,
			Payers:       []types.PayerShare{{ParticipantID: "A", Amount: 10000}},
			Strategy:     "Percentage",
			Participants: []string{"A", "B"},
			Weights: types.SplitWeights{Percentages: map[string]decimal.Decimal{
				"A": decimal.NewFromInt(60),
				"B": decimal.NewFromInt(40),
			}},
		}

		expense, err := newTestService(st, cache).CreateExpense(ctx, groupID, "user-1", req)

		require.NoError(t, err)
		assert.Equal(t, "generated-id", expense.ID)
		st.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		req     types.CreateExpenseRequest
		errType apperrors.ErrorType
	}{
		{
			name: "unknown strategy",
			req: types.CreateExpenseRequest{
				TotalAmount: 100, Strategy: "random",
				Payers: []types.PayerShare{{ParticipantID: "A", Amount: 100}}, Participants: []string{"A"},
			},
			errType: apperrors.InvalidSplitInput,
		},
		{
			name: "unsupported currency",
			req: types.CreateExpenseRequest{
				TotalAmount: 100, Strategy: "equal", Currency: "ABC",
				Payers: []types.PayerShare{{ParticipantID: "A", Amount: 100}}, Participants: []string{"A"},
			},
			errType: apperrors.ValidationError,
		},
		{
			name: "payers do not cover total",
			req: types.CreateExpenseRequest{
				TotalAmount: 100, Strategy: "equal",
				Payers: []types.PayerShare{{ParticipantID: "A", Amount: 90}}, Participants: []string{"A", "B"},
			},
			errType: apperrors.InvalidSplitInput,
		},
		{
			name: "exact amounts mismatch",
			req: types.CreateExpenseRequest{
				TotalAmount: 100, Strategy: "exact",
				Payers:       []types.PayerShare{{ParticipantID: "A", Amount: 100}},
				Participants: []string{"A", "B"},
				Weights:      types.SplitWeights{Amounts: map[string]int64{"A": 50, "B": 40}},
			},
			errType: apperrors.InvalidSplitInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(MockLedgerStore)

			_, err := newTestService(st, nil).CreateExpense(ctx, groupID, "user-1", tt.req)

			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), err.Error())
			st.AssertNotCalled(t, "CreateExpense", mock.Anything, mock.Anything)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		st := new(MockLedgerStore)
		st.On("CreateExpense", ctx, mock.Anything).Return(errors.New("insert failed"))

		_, err := newTestService(st, nil).CreateExpense(ctx, groupID, "user-1", types.CreateExpenseRequest{
			TotalAmount: 100, Strategy: "equal",
			Payers: []types.PayerShare{{ParticipantID: "A", Amount: 100}}, Participants: []string{"A"},
		})

		assert.True(t, apperrors.IsType(err, apperrors.DatabaseError))
	})
}

func TestLedgerService_PreviewSplit(t *testing.T) {
	svc := newTestService(new(MockLedgerStore), nil)

	resp, err := svc.PreviewSplit(types.SplitPreviewRequest{
		TotalAmount:  12000,
		Strategy:     "shares",
		Participants: []string{"A", "B"},
		Weights:      types.SplitWeights{Units: map[string]int64{"A": 2, "B": 1}},
		Payers:       []types.PayerShare{{ParticipantID: "A", Amount: 12000}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Splits, 2)
	assert.Equal(t, int64(8000), resp.Splits[0].Amount)
	assert.Equal(t, int64(4000), resp.Splits[1].Amount)
	assert.Equal(t, map[string]map[string]int64{"B": {"A": 4000}}, resp.Debts)

	t.Run("without payers", func(t *testing.T) {
		resp, err := svc.PreviewSplit(types.SplitPreviewRequest{
			TotalAmount: 10, Strategy: "equal", Participants: []string{"A", "B", "C"},
		})
		require.NoError(t, err)
		assert.Nil(t, resp.Debts)
		assert.Equal(t, int64(4), resp.Splits[0].Amount)
	})
}

func TestLedgerService_RecordSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("stores pending settlement", func(t *testing.T) {
		st := new(MockLedgerStore)
		st.On("CreateSettlement", ctx, mock.MatchedBy(func(s *types.Settlement) bool {
			return s.ID == "generated-id" && s.Status == types.SettlementStatusPending && s.Amount == 600000
		})).Return(nil)

		resp, err := newTestService(st, nil).RecordSettlement(ctx, groupID, types.CreateSettlementRequest{
			FromParticipantID: "B", ToParticipantID: "A", Amount: 600000,
		})

		require.NoError(t, err)
		assert.Equal(t, types.SettlementStatusPending, resp.Status)
		assert.True(t, resp.RequiresStrongAuth)
		st.AssertExpectations(t)
	})

	tests := []struct {
		name string
		req  types.CreateSettlementRequest
	}{
		{name: "missing payer", req: types.CreateSettlementRequest{ToParticipantID: "A", Amount: 10}},
		{name: "self payment", req: types.CreateSettlementRequest{FromParticipantID: "A", ToParticipantID: "A", Amount: 10}},
		{name: "zero amount", req: types.CreateSettlementRequest{FromParticipantID: "B", ToParticipantID: "A"}},
		{name: "negative amount", req: types.CreateSettlementRequest{FromParticipantID: "B", ToParticipantID: "A", Amount: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(new(MockLedgerStore), nil).RecordSettlement(ctx, groupID, tt.req)
			assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
		})
	}
}

func pendingSettlement(amount int64) *types.Settlement {
	return &types.Settlement{
		ID:                "settle-1",
		GroupID:           groupID,
		FromParticipantID: "B",
		ToParticipantID:   "A",
		Amount:            amount,
		Status:            types.SettlementStatusPending,
	}
}

func TestLedgerService_ConfirmSettlement(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		amount     int64
		status     types.SettlementStatus
		verified   bool
		updateErr  error
		expectCall bool
		errType    apperrors.ErrorType
	}{
		{name: "below threshold", amount: 499999, expectCall: true},
		{name: "at threshold without strong auth", amount: 500000, errType: apperrors.StrongAuthRequiredError},
		{name: "at threshold with strong auth", amount: 500000, verified: true, expectCall: true},
		{name: "already confirmed", amount: 100, status: types.SettlementStatusConfirmed, errType: apperrors.InvalidStatusTransition},
		{name: "rejected cannot be confirmed", amount: 100, status: types.SettlementStatusRejected, errType: apperrors.InvalidStatusTransition},
		{name: "lost race", amount: 100, expectCall: true, updateErr: store.ErrConflict, errType: apperrors.InvalidStatusTransition},
		{name: "database failure", amount: 100, expectCall: true, updateErr: errors.New("timeout"), errType: apperrors.DatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(MockLedgerStore)
			cache := new(MockBalanceCache)

			current := pendingSettlement(tt.amount)
			if tt.status != "" {
				current.Status = tt.status
			}
			st.On("GetSettlement", ctx, groupID, "settle-1").Return(current, nil)

			if tt.expectCall {
				if tt.updateErr != nil {
					st.On("UpdateSettlementStatus", ctx, groupID, "settle-1", types.SettlementStatusPending, types.SettlementStatusConfirmed).
						Return(nil, tt.updateErr)
				} else {
					confirmed := *current
					confirmed.Status = types.SettlementStatusConfirmed
					st.On("UpdateSettlementStatus", ctx, groupID, "settle-1", types.SettlementStatusPending, types.SettlementStatusConfirmed).
						Return(&confirmed, nil)
					cache.On("Invalidate", ctx, groupID).Return(nil)
				}
			}

			resp, err := newTestService(st, cache).ConfirmSettlement(ctx, groupID, "settle-1", tt.verified)

			if tt.errType != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, tt.errType), err.Error())
				cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, types.SettlementStatusConfirmed, resp.Status)
				cache.AssertExpectations(t)
			}
			if !tt.expectCall {
				st.AssertNotCalled(t, "UpdateSettlementStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}

	t.Run("not found", func(t *testing.T) {
		st := new(MockLedgerStore)
		st.On("GetSettlement", ctx, groupID, "missing").Return(nil, store.ErrNotFound)

		_, err := newTestService(st, nil).ConfirmSettlement(ctx, groupID, "missing", true)

		assert.True(t, apperrors.IsType(err, apperrors.NotFoundError))
	})
}

func TestLedgerService_RejectSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("large pending settlement is rejected without strong auth", func(t *testing.T) {
		st := new(MockLedgerStore)
		cache := new(MockBalanceCache)
		current := pendingSettlement(900000)
		rejected := *current
		rejected.Status = types.SettlementStatusRejected
		st.On("GetSettlement", ctx, groupID, "settle-1").Return(current, nil)
		st.On("UpdateSettlementStatus", ctx, groupID, "settle-1", types.SettlementStatusPending, types.SettlementStatusRejected).
			Return(&rejected, nil)
		cache.On("Invalidate", ctx, groupID).Return(errors.New("redis down"))

		resp, err := newTestService(st, cache).RejectSettlement(ctx, groupID, "settle-1")

		require.NoError(t, err)
		assert.Equal(t, types.SettlementStatusRejected, resp.Status)
		st.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("confirmed cannot be rejected", func(t *testing.T) {
		st := new(MockLedgerStore)
		current := pendingSettlement(100)
		current.Status = types.SettlementStatusConfirmed
		st.On("GetSettlement", ctx, groupID, "settle-1").Return(current, nil)

		_, err := newTestService(st, nil).RejectSettlement(ctx, groupID, "settle-1")

		assert.True(t, apperrors.IsType(err, apperrors.InvalidStatusTransition))
	})
}

func TestLedgerService_PublishesEvents(t *testing.T) {
	ctx := context.Background()

	ofType := func(eventType types.EventType) any {
		return mock.MatchedBy(func(e types.Event) bool { return e.Type == eventType })
	}

	t.Run("confirmed settlement", func(t *testing.T) {
		st := new(MockLedgerStore)
		pub := new(MockEventPublisher)
		current := pendingSettlement(100)
		confirmed := *current
		confirmed.Status = types.SettlementStatusConfirmed
		st.On("GetSettlement", ctx, groupID, "settle-1").Return(current, nil)
		st.On("UpdateSettlementStatus", ctx, groupID, "settle-1", types.SettlementStatusPending, types.SettlementStatusConfirmed).
			Return(&confirmed, nil)
		pub.On("Publish", ctx, groupID, ofType(types.EventTypeSettlementConfirmed)).Return(nil)

		_, err := newTestService(st, nil).WithEventPublisher(pub).ConfirmSettlement(ctx, groupID, "settle-1", false)

		require.NoError(t, err)
		pub.AssertExpectations(t)
	})

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		st := new(MockLedgerStore)
		pub := new(MockEventPublisher)
		st.On("CreateSettlement", ctx, mock.AnythingOfType("*types.Settlement")).Return(nil)
		pub.On("Publish", ctx, groupID, ofType(types.EventTypeSettlementRecorded)).Return(errors.New("redis down"))

		resp, err := newTestService(st, nil).WithEventPublisher(pub).RecordSettlement(ctx, groupID, types.CreateSettlementRequest{
			FromParticipantID: "B", ToParticipantID: "A", Amount: 100,
		})

		require.NoError(t, err)
		assert.Equal(t, types.SettlementStatusPending, resp.Status)
		pub.AssertExpectations(t)
	})

	t.Run("rejected write publishes nothing", func(t *testing.T) {
		st := new(MockLedgerStore)
		pub := new(MockEventPublisher)

		_, err := newTestService(st, nil).WithEventPublisher(pub).RecordSettlement(ctx, groupID, types.CreateSettlementRequest{
			FromParticipantID: "A", ToParticipantID: "A", Amount: 100,
		})

		require.Error(t, err)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

// generationCache is an in-memory BalanceCache with the same generation rule
// as the Redis implementation.
type generationCache struct {
	mu         sync.Mutex
	entries    map[string]types.Balances
	generation map[string]int64
}

func newGenerationCache() *generationCache {
	return &generationCache{entries: map[string]types.Balances{}, generation: map[string]int64{}}
}

func (c *generationCache) Get(_ context.Context, groupID string) (types.Balances, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[groupID]
	return b.Clone(), ok, nil
}

func (c *generationCache) Generation(_ context.Context, groupID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation[groupID], nil
}

func (c *generationCache) Set(_ context.Context, groupID string, generation int64, balances types.Balances) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation[groupID] != generation {
		return false, nil
	}
	c.entries[groupID] = balances.Clone()
	return true, nil
}

func (c *generationCache) Invalidate(_ context.Context, groupID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation[groupID]++
	delete(c.entries, groupID)
	return nil
}

func TestLedgerService_GetBalances_ConfirmDuringCompute(t *testing.T) {
	ctx := context.Background()
	st := new(MockLedgerStore)
	cache := newGenerationCache()
	svc := newTestService(st, cache)

	pending := pendingSettlement(1000)
	confirmed := *pending
	confirmed.Status = types.SettlementStatusConfirmed

	st.On("ListExpenses", ctx, groupID).Return([]types.Expense{dinner()}, nil)
	st.On("GetSettlement", ctx, groupID, "settle-1").Return(pending, nil)
	st.On("UpdateSettlementStatus", ctx, groupID, "settle-1", types.SettlementStatusPending, types.SettlementStatusConfirmed).
		Return(&confirmed, nil)

	// The first read loads the settlement while it is still pending, and the
	// confirmation commits before that read writes its result back.
	st.On("ListSettlements", ctx, groupID).Return([]types.Settlement{*pending}, nil).Once().Run(func(mock.Arguments) {
		_, err := svc.ConfirmSettlement(ctx, groupID, "settle-1", false)
		require.NoError(t, err)
	})
	st.On("ListSettlements", ctx, groupID).Return([]types.Settlement{confirmed}, nil)

	stale, err := svc.GetBalances(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), stale.Get("B"))

	_, hit, err := cache.Get(ctx, groupID)
	require.NoError(t, err)
	assert.False(t, hit, "balances computed before the confirmation must not be cached")

	fresh, err := svc.GetBalances(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), fresh.Get("A"))
	assert.Equal(t, int64(0), fresh.Get("B"))
	assert.Equal(t, int64(-1000), fresh.Get("C"))

	_, hit, _ = cache.Get(ctx, groupID)
	assert.True(t, hit)
}
