package balance

import (
	"container/heap"

	"github.com/NomadCrew/nomad-crew-ledger/types"
)

// party is a creditor or debtor with the amount still to be settled, always
// stored as a positive number.
type party struct {
	id        string
	remaining int64
}

// partyHeap is a max-heap ordered by remaining amount descending, then by
// participant ID ascending, so the top is always the same party for the same
// input regardless of map iteration order.
type partyHeap []party

func (h partyHeap) Len() int { return len(h) }

func (h partyHeap) Less(i, j int) bool {
	if h[i].remaining != h[j].remaining {
		return h[i].remaining > h[j].remaining
	}
	return h[i].id < h[j].id
}

func (h partyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *partyHeap) Push(x any) { *h = append(*h, x.(party)) }

func (h *partyHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

// sides holds the creditors and debtors of a balance map.
type sides struct {
	creditors partyHeap
	debtors   partyHeap
}

// partition splits balances into creditors (positive) and debtors (negative,
// stored negated). Zero entries belong to neither side.
func partition(balances types.Balances) *sides {
	s := &sides{}
	for id, v := range balances {
		switch {
		case v > 0:
			s.creditors = append(s.creditors, party{id: id, remaining: v})
		case v < 0:
			s.debtors = append(s.debtors, party{id: id, remaining: -v})
		}
	}
	heap.Init(&s.creditors)
	heap.Init(&s.debtors)
	return s
}

// next settles the top creditor against the top debtor and returns the debt.
// A party whose remaining amount reaches zero is removed; otherwise its
// decremented amount is re-ordered in place.
func (s *sides) next() (types.SimplifiedDebt, bool) {
	if s.creditors.Len() == 0 || s.debtors.Len() == 0 {
		return types.SimplifiedDebt{}, false
	}

	creditor := &s.creditors[0]
	debtor := &s.debtors[0]
	amount := min(creditor.remaining, debtor.remaining)
	debt := types.SimplifiedDebt{
		FromParticipantID: debtor.id,
		ToParticipantID:   creditor.id,
		Amount:            amount,
	}

	creditor.remaining -= amount
	debtor.remaining -= amount
	settle(&s.creditors)
	settle(&s.debtors)
	return debt, true
}

func settle(h *partyHeap) {
	if (*h)[0].remaining == 0 {
		heap.Pop(h)
		return
	}
	heap.Fix(h, 0)
}

// match runs the greedy largest-creditor-versus-largest-debtor matching. When
// observe is non-nil it sees every debt in emission order, before the next
// match is made. Simplify, GenerateExplanation and single-expense suggestions
// all go through this routine.
func match(balances types.Balances, observe func(types.SimplifiedDebt)) []types.SimplifiedDebt {
	s := partition(balances)
	debts := make([]types.SimplifiedDebt, 0, max(s.creditors.Len()+s.debtors.Len()-1, 0))
	for {
		debt, ok := s.next()
		if !ok {
			return debts
		}
		debts = append(debts, debt)
		if observe != nil {
			observe(debt)
		}
	}
}
