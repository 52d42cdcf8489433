package core

import "testing"

func TestNormalizeMerchant(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"STARBUCKS #4521 NYC", "starbucks"},
		{"Starbucks", "starbucks"},
		{"SHELL OIL 57442890011", "shell oil"},
		{"UBER *TRIP", "uber trip"},
		{"Trader Joe's", "trader joes"},
		{"  spaced    out  ", "spaced out"},
		{"#123", ""},
		{"", ""},
		{"99999", ""},
	}
	for _, tc := range cases {
		if got := NormalizeMerchant(tc.in); got != tc.want {
			t.Errorf("NormalizeMerchant(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeMerchantIdempotent(t *testing.T) {
	inputs := []string{
		"STARBUCKS #4521 NYC",
		"SHELL OIL 57442890011",
		"UBER *TRIP",
		"McDonald's #31 60601",
		"plain merchant",
	}
	for _, in := range inputs {
		once := NormalizeMerchant(in)
		twice := NormalizeMerchant(once)
		if once != twice {
			t.Errorf("normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
