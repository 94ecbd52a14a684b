package balance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NomadCrew/nomad-crew-ledger/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-ledger/types"
)

// GenerateExplanation narrates how Simplify reaches its plan. Amounts are
// rendered with currencyLabel, a currency code such as "INR" or a symbol.
//
// The trace is recorded from the same matching run that produces the debts,
// so the ProducedDebt sequence always equals Simplify(balances).
func GenerateExplanation(balances types.Balances, currencyLabel string) []types.SimplificationStep {
	return GenerateExplanationWithNames(balances, currencyLabel, nil)
}

// GenerateExplanationWithNames is GenerateExplanation with participant IDs
// replaced by display names where names has an entry.
func GenerateExplanationWithNames(balances types.Balances, currencyLabel string, names map[string]string) []types.SimplificationStep {
	n := narrator{label: currencyLabel, names: names}
	steps := []types.SimplificationStep{
		{Title: "Starting balances", NarrativeBalances: n.balances(balances)},
	}

	s := partition(balances)
	steps = append(steps, types.SimplificationStep{
		Title: "Who is owed and who owes",
		NarrativeBalances: []string{
			"Owed money: " + n.side(s.creditors),
			"Owes money: " + n.side(s.debtors),
		},
	})
	creditorCount, debtorCount := Counts(balances)

	running := balances.Clone()
	debts := match(balances, func(d types.SimplifiedDebt) {
		running = running.Apply(d)
		debt := d
		steps = append(steps, types.SimplificationStep{
			Title:             fmt.Sprintf("Payment %d: %s pays %s %s", len(steps)-1, n.name(d.FromParticipantID), n.name(d.ToParticipantID), n.money(d.Amount)),
			NarrativeBalances: n.balances(running),
			ProducedDebt:      &debt,
		})
	})

	steps = append(steps, types.SimplificationStep{
		Title: "Summary",
		NarrativeBalances: []string{
			fmt.Sprintf("%d payment(s) settle every balance", len(debts)),
			fmt.Sprintf("Paying each debt directly could take up to %d payments (%d owed x %d owing)",
				creditorCount*debtorCount, creditorCount, debtorCount),
		},
	})
	return steps
}

type narrator struct {
	label string
	names map[string]string
}

func (n narrator) name(id string) string {
	if name, ok := n.names[id]; ok && name != "" {
		return name
	}
	return id
}

func (n narrator) money(amount int64) string {
	return valueobjects.FormatMinor(amount, n.label)
}

// balances describes every entry in ascending participant ID order.
func (n narrator) balances(b types.Balances) []string {
	if len(b) == 0 {
		return []string{"No balances to settle"}
	}
	lines := make([]string, 0, len(b))
	for _, id := range b.SortedIDs() {
		v := b[id]
		switch {
		case v > 0:
			lines = append(lines, fmt.Sprintf("%s is owed %s", n.name(id), n.money(v)))
		case v < 0:
			lines = append(lines, fmt.Sprintf("%s owes %s", n.name(id), n.money(-v)))
		default:
			lines = append(lines, fmt.Sprintf("%s is settled up", n.name(id)))
		}
	}
	return lines
}

// side lists a heap's parties in matching priority order.
func (n narrator) side(h partyHeap) string {
	if len(h) == 0 {
		return "nobody"
	}
	ordered := append(partyHeap(nil), h...)
	sort.Sort(ordered)
	parts := make([]string, 0, len(ordered))
	for _, p := range ordered {
		parts = append(parts, fmt.Sprintf("%s (%s)", n.name(p.id), n.money(p.remaining)))
	}
	return strings.Join(parts, ", ")
}
