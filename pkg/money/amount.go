// Package money provides centavo-precision monetary amounts and parsing
// for the pt-BR formatted figures the Mercante portal and the value
// lookup API emit.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Centavos is a monetary amount in Brazilian centavos (1/100 BRL).
// Integer representation avoids float drift when amounts are hashed
// or compared for idempotency.
type Centavos int64

// ParseBRL parses a pt-BR formatted amount such as "894,60" or
// "1.234,56" into centavos. Dots are thousands separators, the comma
// is the decimal separator. A leading "R$" and surrounding whitespace
// are tolerated since portal screens include them inconsistently.
func ParseBRL(text string) (Centavos, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	intPart := s
	fracPart := "00"
	if idx := strings.LastIndex(s, ","); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	}

	intPart = strings.ReplaceAll(intPart, ".", "")
	if intPart == "" {
		intPart = "0"
	}

	switch len(fracPart) {
	case 0:
		fracPart = "00"
	case 1:
		fracPart += "0"
	case 2:
		// already centavo precision
	default:
		return 0, fmt.Errorf("invalid amount %q: more than two decimal places", text)
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	cents, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", text, err)
	}

	total := whole*100 + cents
	if negative {
		total = -total
	}
	return Centavos(total), nil
}

// String formats the amount back into pt-BR notation with thousands
// separators, e.g. 123456 -> "1.234,56".
func (c Centavos) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	whole := v / 100
	cents := v % 100

	digits := strconv.FormatInt(whole, 10)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	return fmt.Sprintf("%s%s,%02d", sign, strings.Join(groups, "."), cents)
}

// Float returns the amount in reais as a float64 for display-only use.
func (c Centavos) Float() float64 {
	return float64(c) / 100
}
