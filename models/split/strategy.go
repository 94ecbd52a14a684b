package split

import (
	"fmt"
	"strings"

	apperrors "github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/shopspring/decimal"
)

// Strategy determines how an expense total is divided among participants.
type Strategy string

const (
	StrategyEqual      Strategy = "equal"
	StrategyExact      Strategy = "exact"
	StrategyPercentage Strategy = "percentage"
	StrategyShares     Strategy = "shares"
)

// ParseStrategy accepts a strategy name in any case.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyEqual, StrategyExact, StrategyPercentage, StrategyShares:
		return st, nil
	default:
		return "", apperrors.InvalidSplit("unknown split strategy", fmt.Sprintf("strategy %q is not supported", s))
	}
}

// Weights carries the strategy-specific inputs. Only the field matching the
// chosen strategy is read: Amounts for exact, Percentages for percentage and
// Units for shares. Equal ignores all of them.
type Weights struct {
	Amounts     map[string]int64           `json:"amounts,omitempty" yaml:"amounts,omitempty"`
	Percentages map[string]decimal.Decimal `json:"percentages,omitempty" yaml:"percentages,omitempty"`
	Units       map[string]int64           `json:"units,omitempty" yaml:"units,omitempty"`
}

// size returns the number of entries relevant to strategy.
func (w Weights) size(strategy Strategy) int {
	switch strategy {
	case StrategyExact:
		return len(w.Amounts)
	case StrategyPercentage:
		return len(w.Percentages)
	case StrategyShares:
		return len(w.Units)
	}
	return 0
}

// has reports whether strategy's weight map contains id.
func (w Weights) has(strategy Strategy, id string) bool {
	var ok bool
	switch strategy {
	case StrategyExact:
		_, ok = w.Amounts[id]
	case StrategyPercentage:
		_, ok = w.Percentages[id]
	case StrategyShares:
		_, ok = w.Units[id]
	}
	return ok
}
