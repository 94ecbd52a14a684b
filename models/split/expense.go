package split

import (
	"fmt"

	apperrors "github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/NomadCrew/nomad-crew-ledger/models/balance"
	"github.com/NomadCrew/nomad-crew-ledger/types"
)

// ComputeDebtsForExpense suggests who should pay whom to settle a single
// expense, keyed debtor -> creditor -> amount. It uses the same matcher and
// tie-break as group-wide simplification.
func ComputeDebtsForExpense(payers []types.PayerShare, splits []types.SplitShare) map[string]map[string]int64 {
	return balance.DebtsForExpense(payers, splits)
}

// ExpenseInput describes an expense before its splits are computed.
type ExpenseInput struct {
	ID           string
	GroupID      string
	Description  string
	Currency     string
	TotalAmount  int64
	Payers       []types.PayerShare
	Strategy     Strategy
	Participants []string
	Weights      Weights
}

// BuildExpense computes the splits for in and returns an expense that satisfies
// both reconciliation rules: payers and splits each sum to the total.
func BuildExpense(in ExpenseInput) (types.Expense, error) {
	if err := validatePayers(in.TotalAmount, in.Payers); err != nil {
		return types.Expense{}, err
	}

	splits, err := ComputeSplit(in.TotalAmount, in.Strategy, in.Participants, in.Weights)
	if err != nil {
		return types.Expense{}, err
	}
	if !ValidateSplits(in.TotalAmount, splits) {
		return types.Expense{}, apperrors.InvalidSplit("splits do not add up to the total", fmt.Sprintf("total %d", in.TotalAmount))
	}

	return types.Expense{
		ID:          in.ID,
		GroupID:     in.GroupID,
		Description: in.Description,
		Currency:    in.Currency,
		Strategy:    string(in.Strategy),
		TotalAmount: in.TotalAmount,
		Payers:      append([]types.PayerShare(nil), in.Payers...),
		Splits:      splits,
	}, nil
}

func validatePayers(total int64, payers []types.PayerShare) error {
	if len(payers) == 0 {
		return apperrors.InvalidSplit("at least one payer is required", "no payers")
	}
	var sum int64
	for _, p := range payers {
		if p.ParticipantID == "" {
			return apperrors.InvalidSplit("payer id is required", "empty payer id")
		}
		if p.Amount <= 0 {
			return apperrors.InvalidSplit("payer amount must be positive", fmt.Sprintf("payer %s: %d", p.ParticipantID, p.Amount))
		}
		sum += p.Amount
	}
	if sum != total {
		return apperrors.InvalidSplit("payer amounts do not add up to the total", fmt.Sprintf("sum %d, total %d", sum, total))
	}
	return nil
}
