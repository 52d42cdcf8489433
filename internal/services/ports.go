// Package services holds the application logic: category resolution with
// pattern learning, and the incremental sync pipeline against the ledger
// provider.
package services

import (
	"context"
	"time"

	"github.com/rdipippo/BudgetManager/internal/core"
	"github.com/rdipippo/BudgetManager/internal/provider"
)

// CategoryStore is what the resolver needs from category persistence.
type CategoryStore interface {
	CategoriesByUser(ctx context.Context, userID int64) ([]core.Category, error)
	CategoryByIDAndUser(ctx context.Context, id, userID int64) (core.Category, error)
}

// RuleStore is what the resolver needs from rule persistence.
type RuleStore interface {
	ActiveRulesByUser(ctx context.Context, userID int64) ([]core.Rule, error)
}

// PatternStore persists learned patterns. PatternByKey returns (nil, nil)
// when no pattern exists for the key.
type PatternStore interface {
	PatternByKey(ctx context.Context, userID int64, patternType core.PatternType, value string) (*core.LearnedPattern, error)
	InsertPattern(ctx context.Context, p core.LearnedPattern) error
	UpdatePattern(ctx context.Context, p core.LearnedPattern) error
}

// TransactionStore is the transaction persistence surface used by both the
// resolver and the sync pipeline.
type TransactionStore interface {
	UpsertFromProvider(ctx context.Context, up core.ProviderUpsert) error
	DeleteByProviderTransactionID(ctx context.Context, providerTxID string) error
	TransactionByIDAndUser(ctx context.Context, id, userID int64) (core.Transaction, error)
	UncategorizedByUser(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, userID int64, categoryID *int64) error
}

// ItemStore persists linked bank connections and their sync checkpoints.
type ItemStore interface {
	CreateItem(ctx context.Context, item core.Item) (int64, error)
	ItemByID(ctx context.Context, id int64) (core.Item, error)
	ItemByIDAndUser(ctx context.Context, id, userID int64) (core.Item, error)
	ItemsByUser(ctx context.Context, userID int64) ([]core.Item, error)
	SyncableItems(ctx context.Context) ([]core.Item, error)
	UpdateItemCursor(ctx context.Context, id int64, cursor string, syncedAt time.Time) error
	UpdateItemStatus(ctx context.Context, id int64, status core.ItemStatus, errorCode, errorMessage *string) error
	DeleteItem(ctx context.Context, id, userID int64) error
}

// AccountStore persists accounts under an item.
type AccountStore interface {
	UpsertAccount(ctx context.Context, acc core.Account) error
	AccountsByItem(ctx context.Context, itemID int64) ([]core.Account, error)
}

// SecretStore seals and opens provider access tokens at rest.
type SecretStore interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// LedgerClient is the provider API surface the sync pipeline talks to.
type LedgerClient interface {
	CreateLinkToken(ctx context.Context, userID int64) (provider.LinkToken, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (provider.ExchangeResult, error)
	Accounts(ctx context.Context, accessToken string) ([]provider.AccountInfo, error)
	Institution(ctx context.Context, institutionID string) (provider.Institution, error)
	SyncTransactions(ctx context.Context, accessToken, cursor string) (provider.SyncPage, error)
	RemoveItem(ctx context.Context, accessToken string) error
}

// SyncPublisher enqueues an item for background sync.
type SyncPublisher interface {
	PublishItemSync(ctx context.Context, itemID, userID int64, reason string) error
}
