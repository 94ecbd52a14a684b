// Package service orchestrates the ledger: it loads a group's records from the
// store, runs the split, balance and simplification models over them, caches
// balances and enforces the settlement lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	apperrors "github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/NomadCrew/nomad-crew-ledger/internal/events"
	"github.com/NomadCrew/nomad-crew-ledger/internal/store"
	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/models/balance"
	"github.com/NomadCrew/nomad-crew-ledger/models/policy"
	"github.com/NomadCrew/nomad-crew-ledger/models/split"
	"github.com/NomadCrew/nomad-crew-ledger/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-ledger/services"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LedgerService struct {
	store           store.LedgerStore
	cache           BalanceCache
	events          types.EventPublisher
	policy          policy.BiometricPolicy
	defaultCurrency string
	metrics         *services.LedgerMetrics
	log             *zap.SugaredLogger
	newID           func() string
}

// NewLedgerService wires the service. cache may be nil, in which case balances
// are recomputed on every read.
func NewLedgerService(ledgerStore store.LedgerStore, cache BalanceCache, biometric policy.BiometricPolicy, defaultCurrency string) *LedgerService {
	if defaultCurrency == "" {
		defaultCurrency = string(valueobjects.INR)
	}
	return &LedgerService{
		store:           ledgerStore,
		cache:           cache,
		policy:          biometric,
		defaultCurrency: defaultCurrency,
		metrics:         services.Metrics(),
		log:             logger.Named("ledger.service"),
		newID:           uuid.NewString,
	}
}

// WithEventPublisher announces expense and settlement changes through p.
// Publish failures are logged and never fail the write.
func (s *LedgerService) WithEventPublisher(p types.EventPublisher) *LedgerService {
	s.events = p
	return s
}

// StrongAuthThreshold returns the amount from which confirmation needs strong
// authentication.
func (s *LedgerService) StrongAuthThreshold() int64 {
	return s.policy.Threshold()
}

// GetBalances returns the group's net balances, served from the cache when
// possible. Cache failures are logged and fall back to recomputation.
func (s *LedgerService) GetBalances(ctx context.Context, groupID string) (types.Balances, error) {
	start := time.Now()

	// The generation is read before the records so an invalidation that lands
	// while computing makes the write below a no-op.
	cacheable := false
	var generation int64
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, groupID)
		switch {
		case err != nil:
			s.metrics.CacheLookup("error")
			s.log.Warnw("Balance cache read failed, recomputing", "groupID", groupID, "error", err)
		case hit:
			s.metrics.CacheLookup("hit")
			return cached, nil
		default:
			s.metrics.CacheLookup("miss")
		}

		if generation, err = s.cache.Generation(ctx, groupID); err != nil {
			s.log.Warnw("Balance cache generation unavailable, not caching", "groupID", groupID, "error", err)
		} else {
			cacheable = true
		}
	}

	expenses, settlements, err := s.loadRecords(ctx, groupID)
	if err != nil {
		return nil, err
	}
	balances := balance.ComputeBalances(expenses, settlements)
	if sum := balances.Sum(); sum != 0 {
		s.log.Errorw("Group balances do not sum to zero", "groupID", groupID, "sum", sum)
	}

	if cacheable {
		stored, err := s.cache.Set(ctx, groupID, generation, balances)
		switch {
		case err != nil:
			s.log.Warnw("Failed to cache balances", "groupID", groupID, "error", err)
		case !stored:
			s.log.Debugw("Skipped caching balances invalidated during computation", "groupID", groupID)
		}
	}

	s.metrics.ObserveComputation("balances", start)
	return balances, nil
}

// GetSimplifiedDebts returns the minimal payment plan for the group.
func (s *LedgerService) GetSimplifiedDebts(ctx context.Context, groupID string) ([]types.SimplifiedDebt, error) {
	start := time.Now()
	balances, err := s.GetBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	debts := balance.Simplify(balances)
	s.metrics.PlannedPayments(len(debts))
	s.metrics.ObserveComputation("simplify", start)
	return debts, nil
}

// Explain returns the step-by-step trace of the group's payment plan, with
// amounts labelled by currency (the configured default when empty) and
// participants shown by display name.
func (s *LedgerService) Explain(ctx context.Context, groupID, currency string) ([]types.SimplificationStep, string, error) {
	start := time.Now()
	label, err := s.currencyLabel(currency)
	if err != nil {
		return nil, "", err
	}

	balances, err := s.GetBalances(ctx, groupID)
	if err != nil {
		return nil, "", err
	}
	names, err := s.displayNames(ctx, groupID)
	if err != nil {
		return nil, "", err
	}

	steps := balance.GenerateExplanationWithNames(balances, label, names)
	s.metrics.ObserveComputation("explain", start)
	return steps, label, nil
}

// Summary bundles totals, balances, the plan and its explanation. It always
// computes from the store so the figures agree with each other.
func (s *LedgerService) Summary(ctx context.Context, groupID string) (*types.GroupSummary, error) {
	start := time.Now()

	expenses, settlements, err := s.loadRecords(ctx, groupID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, groupID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	currency := s.defaultCurrency
	var totalSpent int64
	for i, e := range expenses {
		if i == 0 && e.Currency != "" {
			currency = e.Currency
		}
		totalSpent += e.TotalAmount
	}

	names := make(map[string]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.DisplayName
	}

	balances := balance.ComputeBalances(expenses, settlements)
	debts := balance.Simplify(balances)
	s.metrics.PlannedPayments(len(debts))
	s.metrics.ObserveComputation("summary", start)

	return &types.GroupSummary{
		GroupID:      groupID,
		Currency:     currency,
		TotalSpent:   totalSpent,
		Participants: participants,
		Balances:     balances,
		Debts:        debts,
		Explanation:  balance.GenerateExplanationWithNames(balances, currency, names),
	}, nil
}

// AddParticipant registers a participant or renames an existing one.
func (s *LedgerService) AddParticipant(ctx context.Context, groupID string, req types.UpsertParticipantRequest) (*types.Participant, error) {
	if req.ID == "" {
		return nil, apperrors.ValidationFailed("participant id is required", "empty participant id")
	}
	p := types.Participant{ID: req.ID, DisplayName: req.DisplayName}
	if err := s.store.UpsertParticipant(ctx, groupID, p); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return &p, nil
}

// CreateExpense computes the splits for req, stores the expense and drops the
// group's cached balances.
func (s *LedgerService) CreateExpense(ctx context.Context, groupID, userID string, req types.CreateExpenseRequest) (*types.Expense, error) {
	strategy, err := split.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	currency, err := s.currencyCode(req.Currency)
	if err != nil {
		return nil, err
	}

	expense, err := split.BuildExpense(split.ExpenseInput{
		ID:           s.newID(),
		GroupID:      groupID,
		Description:  req.Description,
		Currency:     currency,
		TotalAmount:  req.TotalAmount,
		Payers:       req.Payers,
		Strategy:     strategy,
		Participants: req.Participants,
		Weights:      toWeights(req.Weights),
	})
	if err != nil {
		if apperrors.IsInvalidSplit(err) {
			s.log.Infow("Rejected expense split", "groupID", groupID, "strategy", strategy, "error", err)
		}
		return nil, err
	}
	expense.CreatedBy = userID

	if err := s.store.CreateExpense(ctx, &expense); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	s.invalidate(ctx, groupID)
	s.publish(ctx, types.EventTypeExpenseCreated, groupID, userID, expense)

	s.log.Infow("Expense created", "groupID", groupID, "expenseID", expense.ID,
		"strategy", strategy, "total", expense.TotalAmount)
	return &expense, nil
}

// PreviewSplit runs the calculator on req without touching the store.
func (s *LedgerService) PreviewSplit(req types.SplitPreviewRequest) (*types.SplitPreviewResponse, error) {
	strategy, err := split.ParseStrategy(req.Strategy)
	if err != nil {
		return nil, err
	}
	shares, err := split.ComputeSplit(req.TotalAmount, strategy, req.Participants, toWeights(req.Weights))
	if err != nil {
		return nil, err
	}

	resp := &types.SplitPreviewResponse{Splits: shares}
	if len(req.Payers) > 0 {
		resp.Debts = split.ComputeDebtsForExpense(req.Payers, shares)
	}
	return resp, nil
}

// RecordSettlement stores a pending payment. Pending settlements do not move
// balances, so the cache is left alone.
func (s *LedgerService) RecordSettlement(ctx context.Context, groupID string, req types.CreateSettlementRequest) (*types.SettlementResponse, error) {
	if req.FromParticipantID == "" || req.ToParticipantID == "" {
		return nil, apperrors.ValidationFailed("settlement participants are required", "fromParticipantId and toParticipantId must be set")
	}
	if req.FromParticipantID == req.ToParticipantID {
		return nil, apperrors.ValidationFailed("settlement must be between two participants", fmt.Sprintf("participant %s pays itself", req.FromParticipantID))
	}
	if req.Amount <= 0 {
		return nil, apperrors.ValidationFailed("settlement amount must be positive", fmt.Sprintf("amount %d", req.Amount))
	}

	st := &types.Settlement{
		ID:                s.newID(),
		GroupID:           groupID,
		FromParticipantID: req.FromParticipantID,
		ToParticipantID:   req.ToParticipantID,
		Amount:            req.Amount,
		Status:            types.SettlementStatusPending,
	}
	if err := s.store.CreateSettlement(ctx, st); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	s.metrics.Settlement(string(st.Status))
	s.publish(ctx, types.EventTypeSettlementRecorded, groupID, "", st)

	return s.settlementResponse(st), nil
}

// ConfirmSettlement moves a pending settlement to confirmed. Amounts at or
// above the strong authentication threshold need strongAuthVerified.
func (s *LedgerService) ConfirmSettlement(ctx context.Context, groupID, settlementID string, strongAuthVerified bool) (*types.SettlementResponse, error) {
	st, err := s.getSettlement(ctx, groupID, settlementID)
	if err != nil {
		return nil, err
	}
	if st.Status != types.SettlementStatusPending {
		return nil, apperrors.SettlementTransition(string(st.Status), string(types.SettlementStatusConfirmed))
	}
	if s.policy.RequiresStrongAuth(st.Amount) && !strongAuthVerified {
		s.metrics.StrongAuthRequired()
		s.log.Infow("Settlement confirmation needs strong auth", "groupID", groupID,
			"settlementID", settlementID, "amount", st.Amount, "threshold", s.policy.Threshold())
		return nil, apperrors.StrongAuthRequired(st.Amount, s.policy.Threshold())
	}

	return s.transition(ctx, st, types.SettlementStatusConfirmed)
}

// RejectSettlement moves a pending settlement to rejected.
func (s *LedgerService) RejectSettlement(ctx context.Context, groupID, settlementID string) (*types.SettlementResponse, error) {
	st, err := s.getSettlement(ctx, groupID, settlementID)
	if err != nil {
		return nil, err
	}
	if st.Status != types.SettlementStatusPending {
		return nil, apperrors.SettlementTransition(string(st.Status), string(types.SettlementStatusRejected))
	}
	return s.transition(ctx, st, types.SettlementStatusRejected)
}

func (s *LedgerService) transition(ctx context.Context, st *types.Settlement, to types.SettlementStatus) (*types.SettlementResponse, error) {
	updated, err := s.store.UpdateSettlementStatus(ctx, st.GroupID, st.ID, st.Status, to)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperrors.SettlementTransition("a non-pending status", string(to))
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	s.invalidate(ctx, st.GroupID)
	s.metrics.Settlement(string(to))

	eventType := types.EventTypeSettlementConfirmed
	if to == types.SettlementStatusRejected {
		eventType = types.EventTypeSettlementRejected
	}
	s.publish(ctx, eventType, st.GroupID, "", updated)

	return s.settlementResponse(updated), nil
}

func (s *LedgerService) getSettlement(ctx context.Context, groupID, settlementID string) (*types.Settlement, error) {
	st, err := s.store.GetSettlement(ctx, groupID, settlementID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("settlement", settlementID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return st, nil
}

func (s *LedgerService) settlementResponse(st *types.Settlement) *types.SettlementResponse {
	return &types.SettlementResponse{
		Settlement:         *st,
		RequiresStrongAuth: s.policy.RequiresStrongAuth(st.Amount),
	}
}

func (s *LedgerService) loadRecords(ctx context.Context, groupID string) ([]types.Expense, []types.Settlement, error) {
	expenses, err := s.store.ListExpenses(ctx, groupID)
	if err != nil {
		return nil, nil, apperrors.NewDatabaseError(err)
	}
	settlements, err := s.store.ListSettlements(ctx, groupID)
	if err != nil {
		return nil, nil, apperrors.NewDatabaseError(err)
	}
	return expenses, settlements, nil
}

func (s *LedgerService) displayNames(ctx context.Context, groupID string) (map[string]string, error) {
	participants, err := s.store.ListParticipants(ctx, groupID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	names := make(map[string]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.DisplayName
	}
	return names, nil
}

func (s *LedgerService) invalidate(ctx context.Context, groupID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, groupID); err != nil {
		s.log.Errorw("Failed to invalidate balance cache", "groupID", groupID, "error", err)
	}
}

func (s *LedgerService) publish(ctx context.Context, eventType types.EventType, groupID, userID string, data any) {
	if s.events == nil {
		return
	}
	if err := events.PublishLedgerEvent(ctx, s.events, eventType, groupID, userID, data); err != nil {
		s.log.Warnw("Failed to publish ledger event", "groupID", groupID, "type", eventType, "error", err)
	}
}

// currencyCode validates an expense currency, defaulting when empty.
func (s *LedgerService) currencyCode(code string) (string, error) {
	if code == "" {
		return s.defaultCurrency, nil
	}
	c, err := valueobjects.ParseCurrency(code)
	if err != nil {
		return "", err
	}
	return string(c), nil
}

// currencyLabel accepts a currency code or a display symbol such as "₹".
func (s *LedgerService) currencyLabel(label string) (string, error) {
	if label == "" {
		return s.defaultCurrency, nil
	}
	if isSymbol(label) {
		return label, nil
	}
	return s.currencyCode(label)
}

func isSymbol(label string) bool {
	for _, r := range label {
		if !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

func toWeights(w types.SplitWeights) split.Weights {
	return split.Weights{
		Amounts:     w.Amounts,
		Percentages: w.Percentages,
		Units:       w.Units,
	}
}
