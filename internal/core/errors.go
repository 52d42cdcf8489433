package core

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrEmptyName          = errors.New("empty name")
	ErrInvalidMatchType   = errors.New("invalid match type")
	ErrMissingPattern     = errors.New("match type requires a pattern")
	ErrMissingAmountBound = errors.New("amount range requires at least one bound")
	ErrInvalidAmountRange = errors.New("amount minimum exceeds maximum")
	ErrSystemCategory     = errors.New("system category cannot be deleted")
	ErrNotManual          = errors.New("only manually entered transactions can be deleted")
)
