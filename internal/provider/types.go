// Package provider implements the client for the external bank-data
// provider: link-token issuance, token exchange, account and institution
// lookup, item removal, and the cursor-paged incremental transaction sync
// endpoint the orchestrator drives.
package provider

import "fmt"

// Transaction is one provider-side transaction record. The provider uses
// positive amounts for outflows; ingestion inverts the sign.
type Transaction struct {
	TransactionID string   `json:"transaction_id"`
	AccountID     string   `json:"account_id"`
	Amount        float64  `json:"amount"`
	Date          string   `json:"date"` // YYYY-MM-DD
	Name          string   `json:"name"`
	MerchantName  string   `json:"merchant_name"`
	Pending       bool     `json:"pending"`
	Category      Category `json:"personal_finance_category"`
}

// Category is the provider's coarse category label for a transaction.
type Category struct {
	Primary string `json:"primary"`
}

// RemovedTransaction identifies a transaction deleted upstream.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
}

// SyncPage is one page of the incremental sync feed. NextCursor checkpoints
// progress through the feed; HasMore signals another page is available.
type SyncPage struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	HasMore    bool                 `json:"has_more"`
	NextCursor string               `json:"next_cursor"`
}

// AccountInfo is the provider's view of one account under an item.
type AccountInfo struct {
	AccountID        string   `json:"account_id"`
	Name             string   `json:"name"`
	OfficialName     *string  `json:"official_name"`
	Type             string   `json:"type"`
	Subtype          *string  `json:"subtype"`
	Mask             *string  `json:"mask"`
	CurrentBalance   *float64 `json:"current_balance"`
	AvailableBalance *float64 `json:"available_balance"`
	CurrencyCode     *string  `json:"currency_code"`
}

// Institution names the bank behind an item.
type Institution struct {
	ID   string `json:"institution_id"`
	Name string `json:"name"`
}

// LinkToken is a short-lived token the frontend uses to start account
// linking.
type LinkToken struct {
	Token      string `json:"link_token"`
	Expiration string `json:"expiration"`
}

// ExchangeResult is the durable credential obtained for a newly linked item.
type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// Error is a provider-reported failure. Code and Message feed the item's
// degraded status on connection-level errors.
type Error struct {
	Code       string `json:"error_code"`
	Message    string `json:"error_message"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %s: %s", e.Code, e.Message)
}
