package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1200", "1200"},
		{"$ 1200", "1200"},
		{"₡1,234.50", "1234.50"},
		{"1.234,50", "1234.50"},
		{"1,234.56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1.234.567", "1234567"},
		{"1,234,567", "1234567"},
		{"(1,234.50)", "-1234.50"},
		{"1,234.50-", "-1234.50"},
		{"-45.10", "-45.10"},
		{"USD 99.99", "99.99"},
		{"", "0"},
		{"   ", "0"},
		{"nan", "0"},
		{"None", "0"},
		{"-", "0"},
		{"n/a", "0"},
		{"abc", "0"},
		{"124797.0", "124797.0"},
	}

	for _, tc := range cases {
		want, err := decimal.NewFromString(tc.want)
		if err != nil {
			t.Fatalf("bad expectation %q: %v", tc.want, err)
		}
		got := Parse(tc.in)
		if !got.Equal(want) {
			t.Errorf("Parse(%q) = %s, want %s", tc.in, got, want)
		}
	}
}

func TestParseNeverPanicsOnGarbage(t *testing.T) {
	for _, in := range []string{"()", "--", "(-)", "...,,,", "€€€", "1-2-3"} {
		_ = Parse(in)
	}
}

func TestDiff(t *testing.T) {
	got := Diff("1,000.50", "999.60")
	if want := decimal.RequireFromString("0.90"); !got.Equal(want) {
		t.Fatalf("Diff = %s, want %s", got, want)
	}
}
