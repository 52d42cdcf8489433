package core

import (
	"strings"
	"time"
)

// MatchType selects which condition variant a rule evaluates.
type MatchType string

const (
	MatchMerchant    MatchType = "merchant"
	MatchDescription MatchType = "description"
	MatchAmountRange MatchType = "amount_range"
	MatchCombined    MatchType = "combined"
)

// Rule is a user-defined categorization rule. Rules are evaluated in
// descending priority order, ties broken by insertion order; the first rule
// whose condition matches wins.
type Rule struct {
	ID                 int64
	UserID             int64
	CategoryID         int64
	Name               string
	MatchType          MatchType
	MerchantPattern    *string
	DescriptionPattern *string // comma-separated keyword list
	AmountMin          *int64  // cents, magnitude
	AmountMax          *int64  // cents, magnitude
	IsExactMatch       bool
	Priority           int
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate rejects malformed rules before they reach persistence. The
// resolver never sees a rule that fails validation.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	switch r.MatchType {
	case MatchMerchant:
		if r.MerchantPattern == nil || strings.TrimSpace(*r.MerchantPattern) == "" {
			return ErrMissingPattern
		}
	case MatchDescription:
		if r.DescriptionPattern == nil || strings.TrimSpace(*r.DescriptionPattern) == "" {
			return ErrMissingPattern
		}
	case MatchAmountRange:
		if r.AmountMin == nil && r.AmountMax == nil {
			return ErrMissingAmountBound
		}
	case MatchCombined:
		// Any subset of conditions is allowed; omitted ones are vacuously true.
	default:
		return ErrInvalidMatchType
	}
	if r.AmountMin != nil && r.AmountMax != nil && *r.AmountMin > *r.AmountMax {
		return ErrInvalidAmountRange
	}
	return nil
}

// MatchInput is the slice of a transaction a rule condition looks at.
type MatchInput struct {
	Merchant    string
	Description string
	Amount      Money
}

// Condition is one rule predicate variant.
type Condition interface {
	Matches(in MatchInput) bool
}

// MerchantCondition matches the merchant name against a pattern, either by
// case-insensitive equality or by substring.
type MerchantCondition struct {
	Pattern string
	Exact   bool
}

func (c MerchantCondition) Matches(in MatchInput) bool {
	merchant := strings.ToLower(in.Merchant)
	pattern := strings.ToLower(c.Pattern)
	if c.Exact {
		return merchant == pattern
	}
	return strings.Contains(merchant, pattern)
}

// KeywordCondition matches if any keyword is a substring of the description
// or the merchant name.
type KeywordCondition struct {
	Keywords []string
}

func (c KeywordCondition) Matches(in MatchInput) bool {
	merchant := strings.ToLower(in.Merchant)
	description := strings.ToLower(in.Description)
	for _, kw := range c.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(description, kw) || strings.Contains(merchant, kw) {
			return true
		}
	}
	return false
}

// AmountRangeCondition matches if the amount magnitude falls within
// [Min, Max]; a nil bound is unbounded on that side.
type AmountRangeCondition struct {
	Min *int64
	Max *int64
}

func (c AmountRangeCondition) Matches(in MatchInput) bool {
	abs := in.Amount.Abs()
	if c.Min != nil && abs < *c.Min {
		return false
	}
	if c.Max != nil && abs > *c.Max {
		return false
	}
	return true
}

// CombinedCondition is the logical AND of its sub-conditions. An empty set is
// vacuously true.
type CombinedCondition struct {
	Conditions []Condition
}

func (c CombinedCondition) Matches(in MatchInput) bool {
	for _, sub := range c.Conditions {
		if !sub.Matches(in) {
			return false
		}
	}
	return true
}

// Condition builds the predicate for the rule's match type. Rules that fail
// Validate produce a condition that never matches.
func (r Rule) Condition() Condition {
	switch r.MatchType {
	case MatchMerchant:
		if r.MerchantPattern == nil {
			return neverMatch{}
		}
		return MerchantCondition{Pattern: *r.MerchantPattern, Exact: r.IsExactMatch}
	case MatchDescription:
		if r.DescriptionPattern == nil {
			return neverMatch{}
		}
		return KeywordCondition{Keywords: splitKeywords(*r.DescriptionPattern)}
	case MatchAmountRange:
		if r.AmountMin == nil && r.AmountMax == nil {
			return neverMatch{}
		}
		return AmountRangeCondition{Min: r.AmountMin, Max: r.AmountMax}
	case MatchCombined:
		var subs []Condition
		if r.MerchantPattern != nil {
			subs = append(subs, MerchantCondition{Pattern: *r.MerchantPattern, Exact: r.IsExactMatch})
		}
		if r.DescriptionPattern != nil {
			subs = append(subs, KeywordCondition{Keywords: splitKeywords(*r.DescriptionPattern)})
		}
		if r.AmountMin != nil || r.AmountMax != nil {
			subs = append(subs, AmountRangeCondition{Min: r.AmountMin, Max: r.AmountMax})
		}
		return CombinedCondition{Conditions: subs}
	default:
		return neverMatch{}
	}
}

// Matches evaluates the rule's condition against the input.
func (r Rule) Matches(in MatchInput) bool {
	return r.Condition().Matches(in)
}

type neverMatch struct{}

func (neverMatch) Matches(MatchInput) bool { return false }

func splitKeywords(pattern string) []string {
	parts := strings.Split(strings.ToLower(pattern), ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
