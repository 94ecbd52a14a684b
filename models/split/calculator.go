// Package split turns an expense total and a splitting strategy into exact
// per-participant integer amounts. Amounts are minor currency units and every
// successful result sums to the total.
package split

import (
	"fmt"
	"math/big"

	apperrors "github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/shopspring/decimal"
)

var (
	hundred             = decimal.NewFromInt(100)
	percentageTolerance = decimal.New(1, -2)
)

// ComputeSplit divides total among participants using strategy. The order of
// participants is significant: for equal splits the first participants take
// the remainder units, and for percentage and share splits the last
// participant absorbs rounding.
//
// Every precondition failure is reported as an InvalidSplitInput AppError.
func ComputeSplit(total int64, strategy Strategy, participants []string, weights Weights) ([]types.SplitShare, error) {
	if total < 0 {
		return nil, apperrors.InvalidSplit("total must not be negative", fmt.Sprintf("total %d", total))
	}
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}

	switch strategy {
	case StrategyEqual:
		return equalSplit(total, participants), nil
	case StrategyExact, StrategyPercentage, StrategyShares:
		if err := validateWeightKeys(strategy, participants, weights); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.InvalidSplit("unknown split strategy", fmt.Sprintf("strategy %q is not supported", strategy))
	}

	switch strategy {
	case StrategyExact:
		return exactSplit(total, participants, weights.Amounts)
	case StrategyPercentage:
		return percentageSplit(total, participants, weights.Percentages)
	default:
		return sharesSplit(total, participants, weights.Units)
	}
}

// ValidateSplits reports whether the split amounts add up to total exactly.
func ValidateSplits(total int64, splits []types.SplitShare) bool {
	var sum int64
	for _, s := range splits {
		sum += s.Amount
	}
	return sum == total
}

func validateParticipants(participants []string) error {
	seen := make(map[string]struct{}, len(participants))
	for _, id := range participants {
		if id == "" {
			return apperrors.InvalidSplit("participant id is required", "empty participant id")
		}
		if _, dup := seen[id]; dup {
			return apperrors.InvalidSplit("duplicate participant", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// validateWeightKeys requires a one-to-one match between participants and the
// strategy's weight entries.
func validateWeightKeys(strategy Strategy, participants []string, weights Weights) error {
	for _, id := range participants {
		if !weights.has(strategy, id) {
			return apperrors.InvalidSplit("missing split weight", fmt.Sprintf("no %s weight for participant %s", strategy, id))
		}
	}
	if weights.size(strategy) != len(participants) {
		return apperrors.InvalidSplit("unknown participant in split weights", fmt.Sprintf("%d %s weights for %d participants", weights.size(strategy), strategy, len(participants)))
	}
	return nil
}

func equalSplit(total int64, participants []string) []types.SplitShare {
	n := int64(len(participants))
	out := make([]types.SplitShare, 0, n)
	if n == 0 {
		return out
	}

	base := total / n
	remainder := total % n
	for i, id := range participants {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		out = append(out, types.SplitShare{ParticipantID: id, Amount: amount})
	}
	return out
}

func exactSplit(total int64, participants []string, amounts map[string]int64) ([]types.SplitShare, error) {
	out := make([]types.SplitShare, 0, len(participants))
	var sum int64
	for _, id := range participants {
		amount := amounts[id]
		if amount < 0 {
			return nil, apperrors.InvalidSplit("exact amount must not be negative", fmt.Sprintf("participant %s: %d", id, amount))
		}
		sum += amount
		out = append(out, types.SplitShare{ParticipantID: id, Amount: amount})
	}
	if sum != total {
		return nil, apperrors.InvalidSplit("exact amounts do not add up to the total", fmt.Sprintf("sum %d, total %d", sum, total))
	}
	return out, nil
}

func percentageSplit(total int64, participants []string, percentages map[string]decimal.Decimal) ([]types.SplitShare, error) {
	sum := decimal.Zero
	for _, id := range participants {
		pct := percentages[id]
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return nil, apperrors.InvalidSplit("percentage out of range", fmt.Sprintf("participant %s: %s", id, pct))
		}
		sum = sum.Add(pct)
	}
	if sum.Sub(hundred).Abs().GreaterThan(percentageTolerance) {
		return nil, apperrors.InvalidSplit("percentages must add up to 100", fmt.Sprintf("sum %s", sum))
	}

	out := make([]types.SplitShare, 0, len(participants))
	var allocated int64
	for i, id := range participants {
		pct := percentages[id]
		var amount int64
		if i == len(participants)-1 {
			amount = total - allocated
			if amount < 0 {
				return nil, negativeResidual(id, amount)
			}
		} else {
			r := pct.Rat()
			amount = proportion(total, r.Num(), new(big.Int).Mul(r.Denom(), big.NewInt(100)))
		}
		allocated += amount
		out = append(out, types.SplitShare{ParticipantID: id, Amount: amount, Percentage: &pct})
	}
	return out, nil
}

func sharesSplit(total int64, participants []string, units map[string]int64) ([]types.SplitShare, error) {
	out := make([]types.SplitShare, 0, len(participants))
	if len(participants) == 0 {
		return out, nil
	}

	var totalUnits int64
	for _, id := range participants {
		u := units[id]
		if u <= 0 {
			return nil, apperrors.InvalidSplit("share units must be positive", fmt.Sprintf("participant %s: %d", id, u))
		}
		totalUnits += u
	}

	den := big.NewInt(totalUnits)
	var allocated int64
	for i, id := range participants {
		u := units[id]
		var amount int64
		if i == len(participants)-1 {
			amount = total - allocated
			if amount < 0 {
				return nil, negativeResidual(id, amount)
			}
		} else {
			amount = proportion(total, big.NewInt(u), den)
		}
		allocated += amount
		out = append(out, types.SplitShare{ParticipantID: id, Amount: amount, ShareUnits: &u})
	}
	return out, nil
}

// negativeResidual reports a total too small for its weights: rounding the
// earlier shares up already allocated more than the total.
func negativeResidual(id string, amount int64) error {
	return apperrors.InvalidSplit("total is too small to split with these weights",
		fmt.Sprintf("participant %s would owe %d after rounding", id, amount))
}
