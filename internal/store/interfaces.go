package store

import (
	"context"

	"github.com/NomadCrew/nomad-crew-ledger/types"
)

// LedgerStore persists the raw ledger records of a group. Balances, plans and
// explanations are always derived from these records and never stored.
type LedgerStore interface {
	// ListParticipants returns the group's participants ordered by ID.
	ListParticipants(ctx context.Context, groupID string) ([]types.Participant, error)
	// UpsertParticipant adds a participant or updates its display name.
	UpsertParticipant(ctx context.Context, groupID string, p types.Participant) error

	// ListExpenses returns every expense of the group with payers and splits,
	// oldest first.
	ListExpenses(ctx context.Context, groupID string) ([]types.Expense, error)
	// CreateExpense stores the expense and its payers and splits atomically.
	CreateExpense(ctx context.Context, expense *types.Expense) error

	// ListSettlements returns every settlement of the group regardless of status.
	ListSettlements(ctx context.Context, groupID string) ([]types.Settlement, error)
	CreateSettlement(ctx context.Context, settlement *types.Settlement) error
	// GetSettlement returns ErrNotFound when the settlement does not exist in the group.
	GetSettlement(ctx context.Context, groupID, settlementID string) (*types.Settlement, error)
	// UpdateSettlementStatus moves a settlement from one status to another and
	// returns ErrConflict when its current status is no longer from.
	UpdateSettlementStatus(ctx context.Context, groupID, settlementID string, from, to types.SettlementStatus) (*types.Settlement, error)
}
