package types

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// All monetary amounts in this file are integers in the currency's minor unit
// (paisa for INR, cents for USD).

// Participant is a member of an expense group. Identity is ID; DisplayName is
// presentation only.
type Participant struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

// PayerShare is the amount a participant contributed toward paying an expense.
type PayerShare struct {
	ParticipantID string `json:"participantId" yaml:"participantId"`
	Amount        int64  `json:"amount" yaml:"amount"`
}

// SplitShare is the amount a participant owes for one expense. Percentage and
// ShareUnits record how the amount was derived and play no part in aggregation.
type SplitShare struct {
	ParticipantID string           `json:"participantId" yaml:"participantId"`
	Amount        int64            `json:"amount" yaml:"amount"`
	Percentage    *decimal.Decimal `json:"percentage,omitempty" yaml:"percentage,omitempty"`
	ShareUnits    *int64           `json:"shareUnits,omitempty" yaml:"shareUnits,omitempty"`
	Settled       bool             `json:"settled" yaml:"settled"`
}

// Expense is a shared expense. Callers guarantee that payers and splits each sum
// to TotalAmount.
type Expense struct {
	ID          string       `json:"id" yaml:"id"`
	GroupID     string       `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Currency    string       `json:"currency,omitempty" yaml:"currency,omitempty"`
	Strategy    string       `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	TotalAmount int64        `json:"totalAmount" yaml:"totalAmount"`
	Payers      []PayerShare `json:"payers" yaml:"payers"`
	Splits      []SplitShare `json:"splits" yaml:"splits"`
	CreatedBy   string       `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

// SettlementStatus tracks whether a recorded payment counts toward balances.
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusConfirmed SettlementStatus = "confirmed"
	SettlementStatusRejected  SettlementStatus = "rejected"
)

// IsValid reports whether s is one of the known statuses.
func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusPending, SettlementStatusConfirmed, SettlementStatusRejected:
		return true
	}
	return false
}

// Settlement is a payment from one participant to another. Only confirmed
// settlements are folded into balances.
type Settlement struct {
	ID                string           `json:"id,omitempty" yaml:"id,omitempty"`
	GroupID           string           `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	FromParticipantID string           `json:"fromParticipantId" yaml:"fromParticipantId"`
	ToParticipantID   string           `json:"toParticipantId" yaml:"toParticipantId"`
	Amount            int64            `json:"amount" yaml:"amount"`
	Status            SettlementStatus `json:"status" yaml:"status"`
	CreatedAt         time.Time        `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt         time.Time        `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// SimplifiedDebt is one payment instruction of a settlement plan. Amount is
// always positive.
type SimplifiedDebt struct {
	FromParticipantID string `json:"fromParticipantId" yaml:"fromParticipantId"`
	ToParticipantID   string `json:"toParticipantId" yaml:"toParticipantId"`
	Amount            int64  `json:"amount" yaml:"amount"`
}

// SimplificationStep is one entry of the audit trace produced alongside a
// settlement plan. It never influences the plan itself.
type SimplificationStep struct {
	Title             string          `json:"title"`
	NarrativeBalances []string        `json:"narrativeBalances"`
	ProducedDebt      *SimplifiedDebt `json:"producedDebt,omitempty"`
}

// Balances maps participant ID to a signed net position: positive is owed
// money, negative owes money. The map is sparse and an absent key means zero.
type Balances map[string]int64

// Get returns the balance for id, zero when absent.
func (b Balances) Get(id string) int64 {
	return b[id]
}

// Sum returns the total of all entries. A complete balance map sums to zero.
func (b Balances) Sum() int64 {
	var total int64
	for _, v := range b {
		total += v
	}
	return total
}

// Clone returns an independent copy.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Apply returns a copy with the debt paid: the debtor moves up by the amount
// and the creditor moves down by it.
func (b Balances) Apply(debt SimplifiedDebt) Balances {
	out := b.Clone()
	out[debt.FromParticipantID] += debt.Amount
	out[debt.ToParticipantID] -= debt.Amount
	return out
}

// SortedIDs returns the participant IDs in ascending order.
func (b Balances) SortedIDs() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsSettled reports whether every entry is zero.
func (b Balances) IsSettled() bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// GroupSummary bundles everything a client needs to render a group's ledger.
type GroupSummary struct {
	GroupID      string               `json:"groupId"`
	Currency     string               `json:"currency"`
	TotalSpent   int64                `json:"totalSpent"`
	Participants []Participant        `json:"participants"`
	Balances     Balances             `json:"balances"`
	Debts        []SimplifiedDebt     `json:"debts"`
	Explanation  []SimplificationStep `json:"explanation"`
}
