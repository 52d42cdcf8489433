package core

import "time"

// ItemStatus is the sync health of a linked bank connection.
type ItemStatus string

const (
	// ItemActive items are synced by the scheduler.
	ItemActive ItemStatus = "active"
	// ItemError items failed their last sync at the connection or credential
	// level; they are skipped by the scheduler but remain eligible for manual
	// resync.
	ItemError ItemStatus = "error"
	// ItemPendingExpiration marks consent nearing expiry. Informational; sync
	// is still attempted.
	ItemPendingExpiration ItemStatus = "pending_expiration"
)

// Item is one linked external bank connection: one credential, one provider
// item id. The cursor is the durable checkpoint for incremental sync; it is
// persisted only after a page loop has been fully and successfully applied.
type Item struct {
	ID                   int64
	UserID               int64
	ProviderItemID       string
	AccessTokenEncrypted string
	InstitutionID        *string
	InstitutionName      *string
	Status               ItemStatus
	ConsentExpiration    *time.Time
	LastSyncAt           *time.Time
	Cursor               *string
	ErrorCode            *string
	ErrorMessage         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Syncable reports whether the scheduler should pick up this item. Error
// items require a manual resync.
func (i Item) Syncable() bool {
	return i.Status == ItemActive || i.Status == ItemPendingExpiration
}
