package types

import "github.com/shopspring/decimal"

// SplitWeights carries strategy inputs over the wire. Only the map matching
// the chosen strategy is read.
type SplitWeights struct {
	Amounts     map[string]int64           `json:"amounts,omitempty" yaml:"amounts,omitempty"`
	Percentages map[string]decimal.Decimal `json:"percentages,omitempty" yaml:"percentages,omitempty"`
	Units       map[string]int64           `json:"units,omitempty" yaml:"units,omitempty"`
}

// CreateExpenseRequest is the body of POST /v1/groups/:groupId/expenses.
type CreateExpenseRequest struct {
	Description  string       `json:"description"`
	Currency     string       `json:"currency"`
	TotalAmount  int64        `json:"totalAmount"`
	Payers       []PayerShare `json:"payers" binding:"required"`
	Strategy     string       `json:"strategy" binding:"required"`
	Participants []string     `json:"participants"`
	Weights      SplitWeights `json:"weights"`
}

// SplitPreviewRequest computes a split without persisting anything. Payers are
// optional; when present the response includes per-expense debts.
type SplitPreviewRequest struct {
	TotalAmount  int64        `json:"totalAmount"`
	Strategy     string       `json:"strategy" binding:"required"`
	Participants []string     `json:"participants"`
	Weights      SplitWeights `json:"weights"`
	Payers       []PayerShare `json:"payers,omitempty"`
}

type SplitPreviewResponse struct {
	Splits []SplitShare                 `json:"splits"`
	Debts  map[string]map[string]int64 `json:"debts,omitempty"`
}

// CreateSettlementRequest is the body of POST /v1/groups/:groupId/settlements.
type CreateSettlementRequest struct {
	FromParticipantID string `json:"fromParticipantId" binding:"required"`
	ToParticipantID   string `json:"toParticipantId" binding:"required"`
	Amount            int64  `json:"amount" binding:"required"`
}

// ConfirmSettlementRequest carries the caller's strong authentication proof.
// Verifying the proof happens upstream; this service only sees the outcome.
type ConfirmSettlementRequest struct {
	StrongAuthVerified bool `json:"strongAuthVerified"`
}

type UpsertParticipantRequest struct {
	ID          string `json:"id" binding:"required"`
	DisplayName string `json:"displayName"`
}

type BalancesResponse struct {
	GroupID  string   `json:"groupId"`
	Balances Balances `json:"balances"`
}

type SimplifiedDebtsResponse struct {
	GroupID string           `json:"groupId"`
	Debts   []SimplifiedDebt `json:"debts"`
}

type ExplanationResponse struct {
	GroupID  string               `json:"groupId"`
	Currency string               `json:"currency"`
	Steps    []SimplificationStep `json:"steps"`
}

// SettlementResponse adds the policy outcome to a settlement so clients know
// whether confirming it needs strong authentication.
type SettlementResponse struct {
	Settlement
	RequiresStrongAuth bool `json:"requiresStrongAuth"`
}
