// Command settle-plan prints the balances, minimal payment plan and its
// explanation for a ledger described in a YAML file.
//
//	settle-plan -file trip.yaml
//	settle-plan -file trip.yaml -format json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/NomadCrew/nomad-crew-ledger/models/balance"
	"github.com/NomadCrew/nomad-crew-ledger/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-ledger/types"
)

func main() {
	file := flag.String("file", "", "ledger YAML file (default: stdin)")
	format := flag.String("format", "text", "output format: text or json")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := run(in, os.Stdout, *format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type planOutput struct {
	Currency    string                     `json:"currency"`
	Balances    types.Balances             `json:"balances"`
	Debts       []types.SimplifiedDebt     `json:"debts"`
	Explanation []types.SimplificationStep `json:"explanation"`
}

func run(in io.Reader, out io.Writer, format string) error {
	l, err := parseLedger(in)
	if err != nil {
		return err
	}

	balances := balance.ComputeBalances(l.expenses, l.settlements)
	if sum := balances.Sum(); sum != 0 {
		return fmt.Errorf("ledger does not balance: entries sum to %d", sum)
	}
	plan := planOutput{
		Currency:    l.currency,
		Balances:    balances,
		Debts:       balance.Simplify(balances),
		Explanation: balance.GenerateExplanationWithNames(balances, l.currency, l.names),
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	case "text":
		return writeText(out, plan, l.names)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeText(w io.Writer, plan planOutput, names map[string]string) error {
	name := func(id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return id
	}

	var b strings.Builder
	b.WriteString("Balances\n")
	for _, id := range plan.Balances.SortedIDs() {
		fmt.Fprintf(&b, "  %-12s %s\n", name(id), valueobjects.FormatMinor(plan.Balances[id], plan.Currency))
	}

	b.WriteString("\nPayments\n")
	if len(plan.Debts) == 0 {
		b.WriteString("  none, everyone is settled up\n")
	}
	for i, d := range plan.Debts {
		fmt.Fprintf(&b, "  %d. %s -> %s %s\n", i+1, name(d.FromParticipantID), name(d.ToParticipantID),
			valueobjects.FormatMinor(d.Amount, plan.Currency))
	}

	b.WriteString("\nHow the plan was found\n")
	for _, step := range plan.Explanation {
		fmt.Fprintf(&b, "  %s\n", step.Title)
		for _, line := range step.NarrativeBalances {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
