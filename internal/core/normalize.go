package core

import (
	"regexp"
	"strings"
)

var (
	storeNumberRe = regexp.MustCompile(`\s*#\d+.*$`)
	zipSuffixRe   = regexp.MustCompile(`\s*\d{5,}.*$`)
	specialCharRe = regexp.MustCompile(`[^a-z0-9_\s]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// NormalizeMerchant reduces a raw merchant name to the canonical form used
// for learned-pattern keys and lookups: lowercased, store-number and
// zip-like suffixes removed, special characters stripped, whitespace
// collapsed. The function is idempotent. An empty result means the
// transaction has no usable merchant and disqualifies pattern lookup.
//
// "STARBUCKS #4521 NYC" normalizes to "starbucks".
func NormalizeMerchant(merchant string) string {
	s := strings.ToLower(merchant)
	s = storeNumberRe.ReplaceAllString(s, "")
	s = zipSuffixRe.ReplaceAllString(s, "")
	s = specialCharRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
