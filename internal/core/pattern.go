package core

import "time"

// PatternType distinguishes what a learned pattern was keyed on.
type PatternType string

const (
	PatternMerchant    PatternType = "merchant"
	PatternDescription PatternType = "description"
)

// Confidence constants for pattern learning. A correction of an unknown
// merchant starts at 0.8; every repeat of the same category adds 0.1 up to
// 1.0. When the user changes their mind the pattern is overwritten and trust
// drops back to 0.7, which is still above the auto-apply threshold.
const (
	InitialConfidence   = 0.8
	ConfidenceStep      = 0.1
	MaxConfidence       = 1.0
	OverwriteConfidence = 0.7

	// AutoApplyConfidence is the minimum confidence at which the resolver
	// applies a learned pattern.
	AutoApplyConfidence = 0.7
)

// LearnedPattern is a confidence-weighted association from a normalized
// merchant or description value to a category, built from user corrections.
// (UserID, PatternType, PatternValue) is unique.
type LearnedPattern struct {
	ID           int64
	UserID       int64
	CategoryID   int64
	PatternType  PatternType
	PatternValue string // normalized, see NormalizeMerchant
	Confidence   float64
	MatchCount   int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewLearnedPattern creates the pattern recorded on the first correction for
// a normalized value.
func NewLearnedPattern(userID, categoryID int64, patternType PatternType, value string) LearnedPattern {
	return LearnedPattern{
		UserID:       userID,
		CategoryID:   categoryID,
		PatternType:  patternType,
		PatternValue: value,
		Confidence:   InitialConfidence,
		MatchCount:   1,
	}
}

// Reinforce applies one user correction. The same category strengthens the
// pattern monotonically; a different category overwrites it and resets trust.
func (p *LearnedPattern) Reinforce(categoryID int64) {
	if p.CategoryID == categoryID {
		p.MatchCount++
		p.Confidence = min(MaxConfidence, p.Confidence+ConfidenceStep)
		return
	}
	p.CategoryID = categoryID
	p.MatchCount = 1
	p.Confidence = OverwriteConfidence
}

// AutoApplies reports whether the pattern is trusted enough for the resolver
// to use without user confirmation.
func (p LearnedPattern) AutoApplies() bool {
	return p.Confidence >= AutoApplyConfidence
}
