// Package money parses dirty monetary cell values into exact decimals.
//
// Spreadsheet exports mix currency symbols, thousands/decimal separator
// conventions and accounting negatives ("(1,234.50)", "1,234.50-"). A value
// that cannot be parsed is zero, never an error: a reconciliation run must
// still produce a usable report when a few cells are garbage, and the
// ingestion layer surfaces those cells as warnings.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse converts values like "₡1,234.50", "1.234,50", "$ 1200" or "(45.10)"
// to a decimal. Empty, "nan", "none" and unparsable input yield zero.
func Parse(value string) decimal.Decimal {
	s := strings.TrimSpace(value)
	if s == "" {
		return decimal.Zero
	}
	switch strings.ToLower(s) {
	case "nan", "none", "null":
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[:len(s)-1])
	}

	s = stripNonNumeric(s)
	if s == "" || s == "-" {
		return decimal.Zero
	}
	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// Diff returns Parse(a) - Parse(b).
func Diff(a, b string) decimal.Decimal {
	return Parse(a).Sub(Parse(b))
}

// stripNonNumeric drops everything but digits, separators and the minus sign.
func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeSeparators resolves thousands/decimal separator ambiguity:
// when both appear, the rightmost one is the decimal separator; a single
// comma is a decimal separator; repeated separators are thousands grouping.
func normalizeSeparators(s string) string {
	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas == 1:
		s = strings.ReplaceAll(s, ",", ".")
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return s
}
