// Package balance folds expenses and settlements into net balances and reduces
// those balances to a minimal set of payments.
//
// Functions here trust their inputs. Expenses whose payers or splits do not sum
// to the total yield a balance map that does not sum to zero; nothing in this
// package detects or corrects that, and tests assert the zero-sum property
// independently.
package balance

import "github.com/NomadCrew/nomad-crew-ledger/types"

// ComputeBalances returns each participant's net position. Payers are credited
// with what they paid, split participants are debited with what they owe, and
// confirmed settlements move the payer up and the recipient down. Pending and
// rejected settlements have no effect.
//
// A participant appears in the result only once referenced by an expense or a
// confirmed settlement; absence means zero.
func ComputeBalances(expenses []types.Expense, settlements []types.Settlement) types.Balances {
	balances := make(types.Balances)

	for _, e := range expenses {
		for _, p := range e.Payers {
			balances[p.ParticipantID] += p.Amount
		}
		for _, s := range e.Splits {
			balances[s.ParticipantID] -= s.Amount
		}
	}

	for _, s := range settlements {
		if s.Status != types.SettlementStatusConfirmed {
			continue
		}
		balances[s.FromParticipantID] += s.Amount
		balances[s.ToParticipantID] -= s.Amount
	}

	return balances
}

// ExpenseBalances returns the net position of each participant within a single
// expense.
func ExpenseBalances(payers []types.PayerShare, splits []types.SplitShare) types.Balances {
	return ComputeBalances([]types.Expense{{Payers: payers, Splits: splits}}, nil)
}
