package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rdipippo/BudgetManager/internal/core"
	"github.com/rdipippo/BudgetManager/internal/log"
	"github.com/rdipippo/BudgetManager/internal/metrics"
	"github.com/rdipippo/BudgetManager/internal/provider"
)

// SyncResult summarizes one item sync run. Per-record failures are collected
// in Errors and do not abort the run; Skipped counts records whose account
// is not mapped locally yet.
type SyncResult struct {
	Added    int
	Modified int
	Removed  int
	Skipped  int
	Errors   []string
}

// SyncService drives the incremental sync pipeline: it walks the provider's
// cursor-paged feed, applies each page idempotently, and checkpoints the
// cursor only after the whole loop has completed.
type SyncService struct {
	items        ItemStore
	accounts     AccountStore
	transactions TransactionStore
	secrets      SecretStore
	client       LedgerClient
	logger       *log.Logger
}

func NewSyncService(
	items ItemStore,
	accounts AccountStore,
	transactions TransactionStore,
	secrets SecretStore,
	client LedgerClient,
	logger *log.Logger,
) *SyncService {
	return &SyncService{
		items:        items,
		accounts:     accounts,
		transactions: transactions,
		secrets:      secrets,
		client:       client,
		logger:       logger.WithComponent(log.ComponentSync),
	}
}

// SyncItem pulls all pending pages for one item. The returned error is set
// only for run-level failures (unknown item, credential failure, provider
// connection error); per-record failures land in the result. A replay of
// already-seen pages converges to the same state.
func (s *SyncService) SyncItem(ctx context.Context, itemID, userID int64) (SyncResult, error) {
	var result SyncResult

	item, err := s.items.ItemByIDAndUser(ctx, itemID, userID)
	if err != nil {
		return result, err
	}

	accessToken, err := s.secrets.Decrypt(item.AccessTokenEncrypted)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return result, fmt.Errorf("decrypt access token: %w", err)
	}

	accounts, err := s.accounts.AccountsByItem(ctx, itemID)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("error").Inc()
		return result, err
	}
	accountMap := make(map[string]int64, len(accounts))
	for _, acc := range accounts {
		accountMap[acc.ProviderAccountID] = acc.ID
	}

	cursor := ""
	if item.Cursor != nil {
		cursor = *item.Cursor
	}

	hasMore := true
	for hasMore {
		page, err := s.client.SyncTransactions(ctx, accessToken, cursor)
		if err != nil {
			s.markSyncError(ctx, itemID, err)
			metrics.SyncRuns.WithLabelValues("error").Inc()
			return result, fmt.Errorf("sync page: %w", err)
		}

		for _, tx := range page.Added {
			s.applyUpsert(ctx, userID, accountMap, tx, &result, "added")
		}
		for _, tx := range page.Modified {
			s.applyUpsert(ctx, userID, accountMap, tx, &result, "modified")
		}
		for _, removed := range page.Removed {
			if err := s.transactions.DeleteByProviderTransactionID(ctx, removed.TransactionID); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("remove transaction %s: %v", removed.TransactionID, err))
				metrics.SyncTransactions.WithLabelValues("failed").Inc()
				continue
			}
			result.Removed++
			metrics.SyncTransactions.WithLabelValues("removed").Inc()
		}

		cursor = page.NextCursor
		hasMore = page.HasMore
	}

	// The checkpoint moves only now that every page has been applied; a
	// failure above replays the same pages on the next run.
	if cursor != "" {
		if err := s.items.UpdateItemCursor(ctx, itemID, cursor, time.Now()); err != nil {
			metrics.SyncRuns.WithLabelValues("error").Inc()
			return result, fmt.Errorf("persist cursor: %w", err)
		}
	}
	if err := s.items.UpdateItemStatus(ctx, itemID, core.ItemActive, nil, nil); err != nil {
		return result, fmt.Errorf("mark item active: %w", err)
	}

	metrics.SyncRuns.WithLabelValues("ok").Inc()
	s.logger.InfoContext(ctx, "item sync complete",
		log.FieldItemID, itemID,
		log.FieldUserID, userID,
		log.FieldAdded, result.Added,
		log.FieldModified, result.Modified,
		log.FieldRemoved, result.Removed,
		log.FieldSkipped, result.Skipped,
		log.FieldErrors, len(result.Errors))
	return result, nil
}

// applyUpsert maps and stores one provider transaction. A transaction whose
// account is not mapped yet is skipped without mutating anything; the next
// run after an account sync will pick it up via cursor replay.
func (s *SyncService) applyUpsert(ctx context.Context, userID int64, accountMap map[string]int64, tx provider.Transaction, result *SyncResult, outcome string) {
	accountID, ok := accountMap[tx.AccountID]
	if !ok {
		result.Skipped++
		metrics.SyncTransactions.WithLabelValues("skipped").Inc()
		return
	}

	date, err := time.Parse("2006-01-02", tx.Date)
	if err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("transaction %s: bad date %q", tx.TransactionID, tx.Date))
		metrics.SyncTransactions.WithLabelValues("failed").Inc()
		return
	}

	merchant := tx.MerchantName
	if merchant == "" {
		merchant = tx.Name
	}
	var providerCategory *string
	if tx.Category.Primary != "" {
		providerCategory = &tx.Category.Primary
	}

	up := core.ProviderUpsert{
		UserID:                userID,
		AccountID:             accountID,
		ProviderTransactionID: tx.TransactionID,
		// The provider reports outflows as positive; internally spending
		// is negative.
		Amount:           core.Money{Cents: core.CentsFromFloat(-tx.Amount)},
		Date:             date,
		MerchantName:     merchant,
		Description:      tx.Name,
		ProviderCategory: providerCategory,
		Pending:          tx.Pending,
	}
	if err := s.transactions.UpsertFromProvider(ctx, up); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("upsert transaction %s: %v", tx.TransactionID, err))
		metrics.SyncTransactions.WithLabelValues("failed").Inc()
		return
	}
	if outcome == "added" {
		result.Added++
	} else {
		result.Modified++
	}
	metrics.SyncTransactions.WithLabelValues(outcome).Inc()
}

// markSyncError degrades the item when the provider reports a structured
// error. Transport-level failures leave the status alone so the scheduler
// retries.
func (s *SyncService) markSyncError(ctx context.Context, itemID int64, err error) {
	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		return
	}
	if uerr := s.items.UpdateItemStatus(ctx, itemID, core.ItemError, &provErr.Code, &provErr.Message); uerr != nil {
		s.logger.ErrorContext(ctx, "failed to record item error",
			log.FieldItemID, itemID, log.FieldError, uerr)
	}
}

// SyncAccounts refreshes the local account list for an item from the
// provider. New accounts become visible to transaction mapping on the next
// transaction sync.
func (s *SyncService) SyncAccounts(ctx context.Context, itemID int64) error {
	item, err := s.items.ItemByID(ctx, itemID)
	if err != nil {
		return err
	}
	accessToken, err := s.secrets.Decrypt(item.AccessTokenEncrypted)
	if err != nil {
		return fmt.Errorf("decrypt access token: %w", err)
	}
	infos, err := s.client.Accounts(ctx, accessToken)
	if err != nil {
		return fmt.Errorf("fetch accounts: %w", err)
	}
	for _, info := range infos {
		acc := core.Account{
			ItemID:            itemID,
			ProviderAccountID: info.AccountID,
			Name:              info.Name,
			OfficialName:      info.OfficialName,
			Type:              info.Type,
			Subtype:           info.Subtype,
			Mask:              info.Mask,
			CurrentBalance:    centsOrNil(info.CurrentBalance),
			AvailableBalance:  centsOrNil(info.AvailableBalance),
			CurrencyCode:      info.CurrencyCode,
		}
		if err := s.accounts.UpsertAccount(ctx, acc); err != nil {
			return fmt.Errorf("upsert account %s: %w", info.AccountID, err)
		}
	}
	return nil
}

// SyncAllForUser syncs every syncable item the user has linked. Items in
// error status are skipped until a manual resync clears them.
func (s *SyncService) SyncAllForUser(ctx context.Context, userID int64) (map[int64]SyncResult, error) {
	items, err := s.items.ItemsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make(map[int64]SyncResult, len(items))
	for _, item := range items {
		if !item.Syncable() {
			continue
		}
		result, err := s.SyncItem(ctx, item.ID, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "item sync failed",
				log.FieldItemID, item.ID, log.FieldError, err)
		}
		results[item.ID] = result
	}
	return results, nil
}

// RemoveItem revokes the provider-side credential and deletes the local
// item. Provider revocation is best effort; the local delete always runs.
func (s *SyncService) RemoveItem(ctx context.Context, itemID, userID int64) error {
	item, err := s.items.ItemByIDAndUser(ctx, itemID, userID)
	if err != nil {
		return err
	}
	if accessToken, derr := s.secrets.Decrypt(item.AccessTokenEncrypted); derr == nil {
		if rerr := s.client.RemoveItem(ctx, accessToken); rerr != nil {
			s.logger.WarnContext(ctx, "provider item removal failed",
				log.FieldItemID, itemID, log.FieldError, rerr)
		}
	}
	return s.items.DeleteItem(ctx, itemID, userID)
}

func centsOrNil(dollars *float64) *int64 {
	if dollars == nil {
		return nil
	}
	c := core.CentsFromFloat(*dollars)
	return &c
}
