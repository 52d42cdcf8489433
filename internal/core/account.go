package core

import "time"

// Account is one bank account (checking, savings, card) under a linked item.
// Accounts are upserted on every account sync keyed by the provider account
// id and are never deleted except when the whole item is removed.
type Account struct {
	ID                int64
	ItemID            int64
	ProviderAccountID string
	Name              string
	OfficialName      *string
	Type              string
	Subtype           *string
	Mask              *string
	CurrentBalance    *int64 // cents
	AvailableBalance  *int64 // cents
	CurrencyCode      *string
	IsHidden          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
