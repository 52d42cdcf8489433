package core

import "time"

// Transaction is one ledger entry, either provider-sourced or manually
// entered. Provider-sourced transactions carry a unique provider transaction
// id and are maintained by the sync pipeline; manual transactions have none
// and are the only ones the user can delete directly.
type Transaction struct {
	ID                    int64
	UserID                int64
	AccountID             *int64
	ProviderTransactionID *string
	CategoryID            *int64
	Amount                Money
	Date                  time.Time
	MerchantName          string
	Description           string
	ProviderCategory      *string
	Pending               bool
	IsManual              bool
	Notes                 *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// MatchInput projects the transaction into the fields rule conditions and
// the resolver look at.
func (t Transaction) MatchInput() MatchInput {
	return MatchInput{
		Merchant:    t.MerchantName,
		Description: t.Description,
		Amount:      t.Amount,
	}
}

// ProviderUpsert carries the provider-controlled fields of a transaction
// through an idempotent sync upsert. An upsert of an already-seen provider
// transaction id updates only these fields, preserving any user-assigned
// category and notes.
type ProviderUpsert struct {
	UserID                int64
	AccountID             int64
	ProviderTransactionID string
	Amount                Money // internal sign convention, already inverted
	Date                  time.Time
	MerchantName          string
	Description           string
	ProviderCategory      *string
	Pending               bool
}
