// pkg/valueobjects/money.go
package valueobjects

import (
	"fmt"
	"strings"

	"github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/shopspring/decimal"
)

// Currency represents an ISO 4217 currency code
type Currency string

// Supported currencies
const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
)

// minorUnitExponent is the number of decimal places of each supported
// currency's minor unit.
var minorUnitExponent = map[Currency]int32{
	INR: 2,
	USD: 2,
	EUR: 2,
	GBP: 2,
	JPY: 0,
}

// defaultExponent applies to labels that are not a supported currency code,
// e.g. a bare symbol such as "₹".
const defaultExponent int32 = 2

// ParseCurrency validates and normalizes a currency code.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !IsSupportedCurrency(c) {
		return "", errors.ValidationFailed(
			"invalid currency",
			fmt.Sprintf("currency %s is not supported", code),
		)
	}
	return c, nil
}

// IsSupportedCurrency reports whether c has a known minor unit.
func IsSupportedCurrency(c Currency) bool {
	_, ok := minorUnitExponent[c]
	return ok
}

// Exponent returns the number of minor-unit decimal places for c.
func (c Currency) Exponent() int32 {
	if exp, ok := minorUnitExponent[c]; ok {
		return exp
	}
	return defaultExponent
}

// Money is an integer amount of minor units in one currency.
type Money struct {
	minor    int64
	currency Currency
}

// NewMoneyFromString parses a major-unit amount such as "12.34" into minor
// units, rejecting more decimal places than the currency allows.
func NewMoneyFromString(amount string, currency string) (Money, error) {
	c, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}

	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, errors.ValidationFailed("invalid amount format", err.Error())
	}

	if d.Exponent() < -c.Exponent() {
		return Money{}, errors.ValidationFailed(
			"invalid amount",
			fmt.Sprintf("amount cannot have more than %d decimal places", c.Exponent()),
		)
	}

	return Money{minor: d.Shift(c.Exponent()).IntPart(), currency: c}, nil
}

// Minor returns the amount in minor units.
func (m Money) Minor() int64 {
	return m.minor
}

// FormatMinor renders minor units with a currency label. A supported currency
// code is separated by a space ("INR 12.34"); any other label is treated as a
// symbol and prefixed directly ("₹12.34"). Negative amounts keep their sign
// in front of the label.
func FormatMinor(minor int64, label string) string {
	c := Currency(strings.ToUpper(label))
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	amount := decimal.New(minor, -c.Exponent()).StringFixed(c.Exponent())

	switch {
	case label == "":
		return sign + amount
	case IsSupportedCurrency(c):
		return fmt.Sprintf("%s%s %s", sign, c, amount)
	default:
		return sign + label + amount
	}
}
