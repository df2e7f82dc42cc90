package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatMinorUnits renders cents as a decimal string with two places,
// e.g. 12345 -> "123.45". Gateways that take decimal amounts use this.
func FormatMinorUnits(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseMinorUnits is the inverse of FormatMinorUnits. It accepts up to
// two fractional digits.
func ParseMinorUnits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	total := w*100 + f
	if neg {
		total = -total
	}
	return total, nil
}

// ConvertMinorUnits applies rate to cents and rounds half away from zero.
func ConvertMinorUnits(cents int64, rate float64) int64 {
	return int64(math.Round(float64(cents) * rate))
}
