package main

import (
	"fmt"
	"io"

	"github.com/NomadCrew/nomad-crew-ledger/models/split"
	"github.com/NomadCrew/nomad-crew-ledger/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"gopkg.in/yaml.v3"
)

// ledgerFile is the YAML layout read by settle-plan.
//
//	currency: INR
//	participants:
//	  - {id: A, displayName: Asha}
//	expenses:
//	  - id: dinner
//	    total: "30.00"
//	    payers: [{participantId: A, amount: 3000}]
//	    strategy: equal
//	    participants: [A, B, C]
//	settlements:
//	  - {fromParticipantId: B, toParticipantId: A, amount: 1000}
//
// An expense total is given either as totalAmount in minor units or as total,
// a major-unit string in the ledger currency. Payer, split and settlement
// amounts are always minor units. An expense either names a strategy (with
// weights when it needs them) or lists its splits directly. Settlements
// without a status count as confirmed.
type ledgerFile struct {
	Currency     string              `yaml:"currency"`
	Participants []types.Participant `yaml:"participants"`
	Expenses     []expenseEntry      `yaml:"expenses"`
	Settlements  []types.Settlement  `yaml:"settlements"`
}

type expenseEntry struct {
	ID           string             `yaml:"id"`
	Description  string             `yaml:"description"`
	Total        string             `yaml:"total"`
	TotalAmount  int64              `yaml:"totalAmount"`
	Payers       []types.PayerShare `yaml:"payers"`
	Strategy     string             `yaml:"strategy"`
	Participants []string           `yaml:"participants"`
	Weights      types.SplitWeights `yaml:"weights"`
	Splits       []types.SplitShare `yaml:"splits"`
}

type ledger struct {
	currency    string
	names       map[string]string
	expenses    []types.Expense
	settlements []types.Settlement
}

func parseLedger(r io.Reader) (*ledger, error) {
	var f ledgerFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}

	l := &ledger{
		currency: string(valueobjects.INR),
		names:    make(map[string]string, len(f.Participants)),
	}
	if f.Currency != "" {
		c, err := valueobjects.ParseCurrency(f.Currency)
		if err != nil {
			return nil, err
		}
		l.currency = string(c)
	}
	for _, p := range f.Participants {
		l.names[p.ID] = p.DisplayName
	}

	for i, entry := range f.Expenses {
		e, err := entry.toExpense(i, l.currency)
		if err != nil {
			return nil, err
		}
		l.expenses = append(l.expenses, e)
	}

	for i, s := range f.Settlements {
		if s.Status == "" {
			s.Status = types.SettlementStatusConfirmed
		}
		if !s.Status.IsValid() {
			return nil, fmt.Errorf("settlement %d: unknown status %q", i+1, s.Status)
		}
		if s.Amount <= 0 || s.FromParticipantID == "" || s.ToParticipantID == "" {
			return nil, fmt.Errorf("settlement %d: needs fromParticipantId, toParticipantId and a positive amount", i+1)
		}
		l.settlements = append(l.settlements, s)
	}
	return l, nil
}

func (e expenseEntry) toExpense(index int, currency string) (types.Expense, error) {
	id := e.ID
	if id == "" {
		id = fmt.Sprintf("expense-%d", index+1)
	}
	if e.Total != "" {
		if e.TotalAmount != 0 {
			return types.Expense{}, fmt.Errorf("expense %s: set either total or totalAmount", id)
		}
		m, err := valueobjects.NewMoneyFromString(e.Total, currency)
		if err != nil {
			return types.Expense{}, fmt.Errorf("expense %s: %w", id, err)
		}
		e.TotalAmount = m.Minor()
	}

	if len(e.Splits) > 0 {
		if e.Strategy != "" {
			return types.Expense{}, fmt.Errorf("expense %s: set either strategy or splits", id)
		}
		if !split.ValidateSplits(e.TotalAmount, e.Splits) {
			return types.Expense{}, fmt.Errorf("expense %s: splits do not add up to %d", id, e.TotalAmount)
		}
		return types.Expense{
			ID:          id,
			Description: e.Description,
			Currency:    currency,
			TotalAmount: e.TotalAmount,
			Payers:      e.Payers,
			Splits:      e.Splits,
		}, nil
	}

	strategy, err := split.ParseStrategy(e.Strategy)
	if err != nil {
		return types.Expense{}, fmt.Errorf("expense %s: %w", id, err)
	}
	expense, err := split.BuildExpense(split.ExpenseInput{
		ID:           id,
		Description:  e.Description,
		Currency:     currency,
		TotalAmount:  e.TotalAmount,
		Payers:       e.Payers,
		Strategy:     strategy,
		Participants: e.Participants,
		Weights: split.Weights{
			Amounts:     e.Weights.Amounts,
			Percentages: e.Weights.Percentages,
			Units:       e.Weights.Units,
		},
	})
	if err != nil {
		return types.Expense{}, fmt.Errorf("expense %s: %w", id, err)
	}
	return expense, nil
}
