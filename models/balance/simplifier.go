package balance

import "github.com/NomadCrew/nomad-crew-ledger/types"

// Simplify reduces a zero-sum balance map to payment instructions that settle
// every account. At each step the creditor owed the most is paid by the debtor
// owing the most; ties go to the lower participant ID. The plan never has more
// than creditors+debtors-1 payments and every amount is positive.
//
// Simplify is defined only for balances summing to zero. For other input it
// stops once either side is exhausted and the leftover is not reported.
func Simplify(balances types.Balances) []types.SimplifiedDebt {
	return match(balances, nil)
}

// Counts returns the number of creditors and debtors in balances.
func Counts(balances types.Balances) (creditors, debtors int) {
	for _, v := range balances {
		switch {
		case v > 0:
			creditors++
		case v < 0:
			debtors++
		}
	}
	return creditors, debtors
}

// DebtsForExpense derives pairwise payment suggestions for one expense, keyed
// debtor -> creditor -> amount. Each participant is netted first (paid minus
// owed) so a payer who also has a split only settles the difference.
func DebtsForExpense(payers []types.PayerShare, splits []types.SplitShare) map[string]map[string]int64 {
	out := make(map[string]map[string]int64)
	for _, d := range Simplify(ExpenseBalances(payers, splits)) {
		if out[d.FromParticipantID] == nil {
			out[d.FromParticipantID] = make(map[string]int64)
		}
		out[d.FromParticipantID][d.ToParticipantID] += d.Amount
	}
	return out
}
