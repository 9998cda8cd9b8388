package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"receipt-diagnoser/internal/domain"
)

var currencyStripper = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "")

// Amount parses a money string into integer cents, rounding half away from zero.
// Leading minus signs and accounting parentheses yield a negative value;
// callers decide whether a negative amount is acceptable.
func Amount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("amount is empty: %w", domain.ErrValidation)
	}
	if missingMarkers[strings.ToLower(s)] {
		return 0, fmt.Errorf("amount %q marks a missing value: %w", raw, domain.ErrValidation)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = currencyStripper.Replace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("amount %q has no digits: %w", raw, domain.ErrValidation)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("could not parse amount %q: %w", raw, domain.ErrValidation)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q has a misplaced sign: %w", raw, domain.ErrValidation)
	}
	shifted := d.Round(2).Shift(2)
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %q is out of range: %w", raw, domain.ErrValidation)
	}
	cents := shifted.IntPart()
	if negative {
		cents = -cents
	}
	return cents, nil
}

// FormatCents renders cents as a dollar figure, e.g. 4750 -> "$47.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
