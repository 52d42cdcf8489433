package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rdipippo/BudgetManager/internal/core"
	"github.com/rdipippo/BudgetManager/internal/provider"
)

func newTestSyncService(items *fakeItemStore, accounts *fakeAccountStore, txs *fakeTransactionStore, client *fakeClient) *SyncService {
	return NewSyncService(items, accounts, txs, &fakeSecrets{}, client, newTestLogger())
}

func activeItem(id, userID int64, cursor *string) core.Item {
	return core.Item{
		ID:                   id,
		UserID:               userID,
		ProviderItemID:       "prov-item",
		AccessTokenEncrypted: "sealed:access-token",
		Status:               core.ItemActive,
		Cursor:               cursor,
	}
}

func linkedAccounts() *fakeAccountStore {
	return &fakeAccountStore{accounts: []core.Account{
		{ID: 7, ItemID: 1, ProviderAccountID: "acc-1", Name: "Checking"},
	}}
}

func TestSyncItemAppliesPagesAndInvertsSign(t *testing.T) {
	items := newFakeItemStore(activeItem(1, 1, nil))
	txs := newFakeTransactionStore()
	client := &fakeClient{pages: []provider.SyncPage{
		{
			Added: []provider.Transaction{
				{TransactionID: "t1", AccountID: "acc-1", Amount: 15.32, Date: "2026-03-14", Name: "STARBUCKS #4521", MerchantName: "Starbucks"},
			},
			HasMore:    true,
			NextCursor: "c1",
		},
		{
			Modified: []provider.Transaction{
				{TransactionID: "t1", AccountID: "acc-1", Amount: 16.00, Date: "2026-03-14", Name: "STARBUCKS #4521", Pending: true},
			},
			Removed:    []provider.RemovedTransaction{{TransactionID: "t0"}},
			HasMore:    false,
			NextCursor: "c2",
		},
	}}

	s := newTestSyncService(items, linkedAccounts(), txs, client)
	result, err := s.SyncItem(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Added != 1 || result.Modified != 1 || result.Removed != 1 {
		t.Errorf("result = %+v, want 1 added, 1 modified, 1 removed", result)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}

	if txs.upserts[0].Amount.Cents != -1532 {
		t.Errorf("amount = %d, want -1532 (provider outflow inverted)", txs.upserts[0].Amount.Cents)
	}
	// Merchant falls back to the description when the provider omits it.
	if txs.upserts[1].MerchantName != "STARBUCKS #4521" {
		t.Errorf("merchant fallback = %q", txs.upserts[1].MerchantName)
	}
	if len(txs.removed) != 1 || txs.removed[0] != "t0" {
		t.Errorf("removed = %v, want [t0]", txs.removed)
	}

	// Cursor is persisted exactly once, after the whole loop.
	if len(items.cursorUpdates) != 1 || items.cursorUpdates[0].cursor != "c2" {
		t.Errorf("cursor updates = %+v, want single update to c2", items.cursorUpdates)
	}
	// The second page request carried the first page's cursor.
	if client.cursors[0] != "" || client.cursors[1] != "c1" {
		t.Errorf("cursors sent = %v, want [\"\", c1]", client.cursors)
	}

	item, _ := items.ItemByID(context.Background(), 1)
	if item.Status != core.ItemActive {
		t.Errorf("status = %s, want active", item.Status)
	}
}

func TestSyncItemResumesFromStoredCursor(t *testing.T) {
	cursor := "c-stored"
	items := newFakeItemStore(activeItem(1, 1, &cursor))
	client := &fakeClient{pages: []provider.SyncPage{{NextCursor: "c-next"}}}

	s := newTestSyncService(items, linkedAccounts(), newFakeTransactionStore(), client)
	if _, err := s.SyncItem(context.Background(), 1, 1); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if client.cursors[0] != "c-stored" {
		t.Errorf("first request cursor = %q, want c-stored", client.cursors[0])
	}
}

func TestSyncItemSkipsUnmappedAccounts(t *testing.T) {
	items := newFakeItemStore(activeItem(1, 1, nil))
	txs := newFakeTransactionStore()
	client := &fakeClient{pages: []provider.SyncPage{{
		Added: []provider.Transaction{
			{TransactionID: "t1", AccountID: "acc-unknown", Amount: 5, Date: "2026-03-14", Name: "x"},
			{TransactionID: "t2", AccountID: "acc-1", Amount: 5, Date: "2026-03-14", Name: "y"},
		},
		NextCursor: "c1",
	}}}

	s := newTestSyncService(items, linkedAccounts(), txs, client)
	result, err := s.SyncItem(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Added != 1 || result.Skipped != 1 {
		t.Errorf("result = %+v, want 1 added, 1 skipped", result)
	}
	// A skipped record is not a failure.
	if len(result.Errors) != 0 {
		t.Errorf("skip must not be counted as an error: %v", result.Errors)
	}
	if len(txs.upserts) != 1 || txs.upserts[0].ProviderTransactionID != "t2" {
		t.Errorf("upserts = %+v, want only t2", txs.upserts)
	}
}

func TestSyncItemCountsRecordFailuresAndContinues(t *testing.T) {
	items := newFakeItemStore(activeItem(1, 1, nil))
	txs := newFakeTransactionStore()
	txs.failUpserts = map[string]error{"t1": errors.New("disk full")}
	client := &fakeClient{pages: []provider.SyncPage{{
		Added: []provider.Transaction{
			{TransactionID: "t1", AccountID: "acc-1", Amount: 5, Date: "2026-03-14", Name: "x"},
			{TransactionID: "t2", AccountID: "acc-1", Amount: 5, Date: "2026-03-14", Name: "y"},
		},
		NextCursor: "c1",
	}}}

	s := newTestSyncService(items, linkedAccounts(), txs, client)
	result, err := s.SyncItem(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("record failures must not fail the run: %v", err)
	}
	if result.Added != 1 || len(result.Errors) != 1 {
		t.Errorf("result = %+v, want 1 added, 1 error", result)
	}
	// The run still completed, so the cursor advances.
	if len(items.cursorUpdates) != 1 {
		t.Errorf("cursor should be persisted after a run with record errors")
	}
}

func TestSyncItemProviderErrorDegradesItem(t *testing.T) {
	items := newFakeItemStore(activeItem(1, 1, nil))
	client := &fakeClient{
		errOnCall: 1,
		pageErr:   &provider.Error{Code: "ITEM_LOGIN_REQUIRED", Message: "credentials expired"},
	}

	s := newTestSyncService(items, linkedAccounts(), newFakeTransactionStore(), client)
	_, err := s.SyncItem(context.Background(), 1, 1)
	if err == nil {
		t.Fatal("connection-level failure must return an error")
	}
	if len(items.cursorUpdates) != 0 {
		t.Error("cursor must not advance on a failed run")
	}
	item, _ := items.ItemByID(context.Background(), 1)
	if item.Status != core.ItemError {
		t.Errorf("status = %s, want error", item.Status)
	}
	if item.ErrorCode == nil || *item.ErrorCode != "ITEM_LOGIN_REQUIRED" {
		t.Error("provider error code not recorded on item")
	}
}

func TestSyncItemMidRunFailureLeavesCursorForReplay(t *testing.T) {
	items := newFakeItemStore(activeItem(1, 1, nil))
	txs := newFakeTransactionStore()
	client := &fakeClient{
		pages: []provider.SyncPage{{
			Added:      []provider.Transaction{{TransactionID: "t1", AccountID: "acc-1", Amount: 5, Date: "2026-03-14", Name: "x"}},
			HasMore:    true,
			NextCursor: "c1",
		}},
		errOnCall: 2,
		pageErr:   errors.New("connection reset"),
	}

	s := newTestSyncService(items, linkedAccounts(), txs, client)
	if _, err := s.SyncItem(context.Background(), 1, 1); err == nil {
		t.Fatal("expected run failure")
	}
	// First page was applied but not checkpointed; the next run replays it
	// and the upsert converges.
	if len(txs.upserts) != 1 {
		t.Errorf("first page should have been applied")
	}
	if len(items.cursorUpdates) != 0 {
		t.Error("cursor must not be persisted after a mid-run failure")
	}
	// Transport errors leave the status alone so the scheduler retries.
	item, _ := items.ItemByID(context.Background(), 1)
	if item.Status != core.ItemActive {
		t.Errorf("status = %s, want active after transport failure", item.Status)
	}
}

func TestSyncItemUnknownItem(t *testing.T) {
	s := newTestSyncService(newFakeItemStore(), linkedAccounts(), newFakeTransactionStore(), &fakeClient{})
	_, err := s.SyncItem(context.Background(), 99, 1)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSyncItemWrongUser(t *testing.T) {
	items := newFakeItemStore(activeItem(1, 1, nil))
	s := newTestSyncService(items, linkedAccounts(), newFakeTransactionStore(), &fakeClient{})
	_, err := s.SyncItem(context.Background(), 1, 2)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSyncAccountsConvertsBalances(t *testing.T) {
	items := newFakeItemStore(activeItem(1, 1, nil))
	accounts := &fakeAccountStore{}
	balance := 1234.56
	client := &fakeClient{accounts: []provider.AccountInfo{{
		AccountID:      "acc-1",
		Name:           "Checking",
		Type:           "depository",
		CurrentBalance: &balance,
	}}}

	s := newTestSyncService(items, accounts, newFakeTransactionStore(), client)
	if err := s.SyncAccounts(context.Background(), 1); err != nil {
		t.Fatalf("sync accounts: %v", err)
	}
	if len(accounts.upserts) != 1 {
		t.Fatalf("got %d upserts, want 1", len(accounts.upserts))
	}
	got := accounts.upserts[0]
	if got.CurrentBalance == nil || *got.CurrentBalance != 123456 {
		t.Errorf("balance not converted to cents: %+v", got.CurrentBalance)
	}
}

func TestSyncAllForUserSkipsErrorItems(t *testing.T) {
	broken := activeItem(2, 1, nil)
	broken.Status = core.ItemError
	items := newFakeItemStore(activeItem(1, 1, nil), broken)
	client := &fakeClient{pages: []provider.SyncPage{{NextCursor: "c1"}}}

	s := newTestSyncService(items, linkedAccounts(), newFakeTransactionStore(), client)
	results, err := s.SyncAllForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("sync all: %v", err)
	}
	if _, ok := results[2]; ok {
		t.Error("error item must not be synced")
	}
	if _, ok := results[1]; !ok {
		t.Error("active item missing from results")
	}
}

func TestRemoveItemBestEffortRevocation(t *testing.T) {
	items := newFakeItemStore(activeItem(1, 1, nil))
	client := &fakeClient{removeErr: errors.New("provider down")}

	s := newTestSyncService(items, linkedAccounts(), newFakeTransactionStore(), client)
	if err := s.RemoveItem(context.Background(), 1, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if client.removed != 1 {
		t.Error("provider revocation not attempted")
	}
	if len(items.deleted) != 1 {
		t.Error("local item not deleted despite provider failure")
	}
}
