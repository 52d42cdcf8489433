package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rdipippo/BudgetManager/internal/core"
	"github.com/rdipippo/BudgetManager/internal/log"
	"github.com/rdipippo/BudgetManager/internal/provider"
)

func newTestLogger() *log.Logger {
	return log.New(log.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})
}

type fakeRuleStore struct {
	rules []core.Rule
	calls int
}

func (f *fakeRuleStore) ActiveRulesByUser(_ context.Context, _ int64) ([]core.Rule, error) {
	f.calls++
	return f.rules, nil
}

type fakeCategoryStore struct {
	cats []core.Category
}

func (f *fakeCategoryStore) CategoriesByUser(_ context.Context, _ int64) ([]core.Category, error) {
	return f.cats, nil
}

func (f *fakeCategoryStore) CategoryByIDAndUser(_ context.Context, id, _ int64) (core.Category, error) {
	for _, c := range f.cats {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

type fakePatternStore struct {
	patterns map[string]*core.LearnedPattern
	inserts  []core.LearnedPattern
	updates  []core.LearnedPattern
}

func newFakePatternStore() *fakePatternStore {
	return &fakePatternStore{patterns: make(map[string]*core.LearnedPattern)}
}

func patternKey(userID int64, pt core.PatternType, value string) string {
	return fmt.Sprintf("%d/%s/%s", userID, pt, value)
}

func (f *fakePatternStore) PatternByKey(_ context.Context, userID int64, pt core.PatternType, value string) (*core.LearnedPattern, error) {
	p, ok := f.patterns[patternKey(userID, pt, value)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePatternStore) InsertPattern(_ context.Context, p core.LearnedPattern) error {
	f.inserts = append(f.inserts, p)
	cp := p
	f.patterns[patternKey(p.UserID, p.PatternType, p.PatternValue)] = &cp
	return nil
}

func (f *fakePatternStore) UpdatePattern(_ context.Context, p core.LearnedPattern) error {
	f.updates = append(f.updates, p)
	cp := p
	f.patterns[patternKey(p.UserID, p.PatternType, p.PatternValue)] = &cp
	return nil
}

type categoryUpdate struct {
	transactionID int64
	categoryID    *int64
}

type fakeTransactionStore struct {
	txs           map[int64]core.Transaction
	uncategorized []core.Transaction
	upserts       []core.ProviderUpsert
	removed       []string
	catUpdates    []categoryUpdate
	failUpserts   map[string]error
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{txs: make(map[int64]core.Transaction)}
}

func (f *fakeTransactionStore) UpsertFromProvider(_ context.Context, up core.ProviderUpsert) error {
	if err, ok := f.failUpserts[up.ProviderTransactionID]; ok {
		return err
	}
	f.upserts = append(f.upserts, up)
	return nil
}

func (f *fakeTransactionStore) DeleteByProviderTransactionID(_ context.Context, providerTxID string) error {
	f.removed = append(f.removed, providerTxID)
	return nil
}

func (f *fakeTransactionStore) TransactionByIDAndUser(_ context.Context, id, _ int64) (core.Transaction, error) {
	tx, ok := f.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (f *fakeTransactionStore) UncategorizedByUser(_ context.Context, _ int64, limit int) ([]core.Transaction, error) {
	if len(f.uncategorized) > limit {
		return f.uncategorized[:limit], nil
	}
	return f.uncategorized, nil
}

func (f *fakeTransactionStore) UpdateTransactionCategory(_ context.Context, id, _ int64, categoryID *int64) error {
	f.catUpdates = append(f.catUpdates, categoryUpdate{transactionID: id, categoryID: categoryID})
	if tx, ok := f.txs[id]; ok {
		tx.CategoryID = categoryID
		f.txs[id] = tx
	}
	return nil
}

type cursorUpdate struct {
	itemID int64
	cursor string
}

type statusUpdate struct {
	itemID    int64
	status    core.ItemStatus
	errorCode *string
}

type fakeItemStore struct {
	items         map[int64]core.Item
	cursorUpdates []cursorUpdate
	statusUpdates []statusUpdate
	deleted       []int64
}

func newFakeItemStore(items ...core.Item) *fakeItemStore {
	f := &fakeItemStore{items: make(map[int64]core.Item)}
	for _, item := range items {
		f.items[item.ID] = item
	}
	return f
}

func (f *fakeItemStore) CreateItem(_ context.Context, item core.Item) (int64, error) {
	item.ID = int64(len(f.items) + 1)
	item.Status = core.ItemActive
	f.items[item.ID] = item
	return item.ID, nil
}

func (f *fakeItemStore) ItemByID(_ context.Context, id int64) (core.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return core.Item{}, core.ErrNotFound
	}
	return item, nil
}

func (f *fakeItemStore) ItemByIDAndUser(_ context.Context, id, userID int64) (core.Item, error) {
	item, ok := f.items[id]
	if !ok || item.UserID != userID {
		return core.Item{}, core.ErrNotFound
	}
	return item, nil
}

func (f *fakeItemStore) ItemsByUser(_ context.Context, userID int64) ([]core.Item, error) {
	var out []core.Item
	for _, item := range f.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemStore) SyncableItems(_ context.Context) ([]core.Item, error) {
	var out []core.Item
	for _, item := range f.items {
		if item.Syncable() {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeItemStore) UpdateItemCursor(_ context.Context, id int64, cursor string, _ time.Time) error {
	f.cursorUpdates = append(f.cursorUpdates, cursorUpdate{itemID: id, cursor: cursor})
	item := f.items[id]
	item.Cursor = &cursor
	f.items[id] = item
	return nil
}

func (f *fakeItemStore) UpdateItemStatus(_ context.Context, id int64, status core.ItemStatus, errorCode, errorMessage *string) error {
	f.statusUpdates = append(f.statusUpdates, statusUpdate{itemID: id, status: status, errorCode: errorCode})
	item := f.items[id]
	item.Status = status
	item.ErrorCode = errorCode
	item.ErrorMessage = errorMessage
	f.items[id] = item
	return nil
}

func (f *fakeItemStore) DeleteItem(_ context.Context, id, _ int64) error {
	f.deleted = append(f.deleted, id)
	delete(f.items, id)
	return nil
}

type fakeAccountStore struct {
	accounts []core.Account
	upserts  []core.Account
}

func (f *fakeAccountStore) UpsertAccount(_ context.Context, acc core.Account) error {
	f.upserts = append(f.upserts, acc)
	return nil
}

func (f *fakeAccountStore) AccountsByItem(_ context.Context, _ int64) ([]core.Account, error) {
	return f.accounts, nil
}

// fakeSecrets prefixes instead of encrypting so tests can assert on values.
type fakeSecrets struct {
	failDecrypt bool
}

func (f *fakeSecrets) Encrypt(plaintext string) (string, error) {
	return "sealed:" + plaintext, nil
}

func (f *fakeSecrets) Decrypt(ciphertext string) (string, error) {
	if f.failDecrypt {
		return "", fmt.Errorf("cipher: message authentication failed")
	}
	if len(ciphertext) > 7 && ciphertext[:7] == "sealed:" {
		return ciphertext[7:], nil
	}
	return ciphertext, nil
}

// fakeClient serves a fixed sequence of sync pages and records the cursors
// it was called with.
type fakeClient struct {
	pages      []provider.SyncPage
	pageErr    error
	errOnCall  int // 1-based call number that fails; 0 means never
	calls      int
	cursors    []string
	accounts   []provider.AccountInfo
	exchange   provider.ExchangeResult
	linkToken  provider.LinkToken
	removed    int
	removeErr  error
	instName   string
	accountErr error
}

func (f *fakeClient) CreateLinkToken(_ context.Context, _ int64) (provider.LinkToken, error) {
	return f.linkToken, nil
}

func (f *fakeClient) ExchangePublicToken(_ context.Context, _ string) (provider.ExchangeResult, error) {
	return f.exchange, nil
}

func (f *fakeClient) Accounts(_ context.Context, _ string) ([]provider.AccountInfo, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	return f.accounts, nil
}

func (f *fakeClient) Institution(_ context.Context, id string) (provider.Institution, error) {
	return provider.Institution{ID: id, Name: f.instName}, nil
}

func (f *fakeClient) SyncTransactions(_ context.Context, _, cursor string) (provider.SyncPage, error) {
	f.calls++
	f.cursors = append(f.cursors, cursor)
	if f.errOnCall > 0 && f.calls == f.errOnCall {
		return provider.SyncPage{}, f.pageErr
	}
	if f.calls > len(f.pages) {
		return provider.SyncPage{}, nil
	}
	return f.pages[f.calls-1], nil
}

func (f *fakeClient) RemoveItem(_ context.Context, _ string) error {
	f.removed++
	return f.removeErr
}

type publishedSync struct {
	itemID int64
	userID int64
	reason string
}

type fakePublisher struct {
	published []publishedSync
}

func (f *fakePublisher) PublishItemSync(_ context.Context, itemID, userID int64, reason string) error {
	f.published = append(f.published, publishedSync{itemID: itemID, userID: userID, reason: reason})
	return nil
}
