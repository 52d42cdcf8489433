package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rdipippo/BudgetManager/internal/core"
)

const itemColumns = `id, user_id, provider_item_id, access_token_encrypted,
	institution_id, institution_name, status, consent_expiration, last_sync_at,
	cursor, error_code, error_message`

func scanItem(row interface{ Scan(...any) error }) (core.Item, error) {
	var (
		item       core.Item
		status     string
		instID     sql.NullString
		instName   sql.NullString
		consentExp sql.NullString
		lastSync   sql.NullString
		cursor     sql.NullString
		errCode    sql.NullString
		errMsg     sql.NullString
	)
	err := row.Scan(&item.ID, &item.UserID, &item.ProviderItemID, &item.AccessTokenEncrypted,
		&instID, &instName, &status, &consentExp, &lastSync, &cursor, &errCode, &errMsg)
	if err != nil {
		return core.Item{}, err
	}
	item.Status = core.ItemStatus(status)
	item.InstitutionID = strOrNil(instID)
	item.InstitutionName = strOrNil(instName)
	item.ConsentExpiration = timeOrNil(consentExp)
	item.LastSyncAt = timeOrNil(lastSync)
	item.Cursor = strOrNil(cursor)
	item.ErrorCode = strOrNil(errCode)
	item.ErrorMessage = strOrNil(errMsg)
	return item, nil
}

// CreateItem registers a newly linked bank connection.
func (r *SQLiteRepository) CreateItem(ctx context.Context, item core.Item) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_items
		(user_id, provider_item_id, access_token_encrypted, institution_id, institution_name, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.UserID, item.ProviderItemID, item.AccessTokenEncrypted,
		nullStr(item.InstitutionID), nullStr(item.InstitutionName), string(core.ItemActive))
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("item id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ItemByID(ctx context.Context, id int64) (core.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM ledger_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Item{}, fmt.Errorf("item %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) ItemByIDAndUser(ctx context.Context, id, userID int64) (core.Item, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM ledger_items WHERE id = ? AND user_id = ?`, id, userID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Item{}, fmt.Errorf("item %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Item{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) ItemsByUser(ctx context.Context, userID int64) ([]core.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM ledger_items
		WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// SyncableItems returns every item the background scheduler should pull:
// active and pending_expiration across all users. Error items wait for a
// manual resync.
func (r *SQLiteRepository) SyncableItems(ctx context.Context) ([]core.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM ledger_items
		WHERE status IN (?, ?) ORDER BY id`,
		string(core.ItemActive), string(core.ItemPendingExpiration))
	if err != nil {
		return nil, fmt.Errorf("query syncable items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]core.Item, error) {
	var items []core.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItemCursor persists the sync checkpoint. Called only after a page
// loop has been fully and successfully applied; never before.
func (r *SQLiteRepository) UpdateItemCursor(ctx context.Context, id int64, cursor string, syncedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ledger_items SET cursor = ?, last_sync_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		cursor, syncedAt.UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("update item cursor: %w", err)
	}
	return nil
}

// UpdateItemStatus records the item's sync health along with the provider's
// error code/message when present.
func (r *SQLiteRepository) UpdateItemStatus(ctx context.Context, id int64, status core.ItemStatus, errorCode, errorMessage *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ledger_items SET status = ?, error_code = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		string(status), nullStr(errorCode), nullStr(errorMessage), id)
	if err != nil {
		return fmt.Errorf("update item status: %w", err)
	}
	return nil
}

// DeleteItem removes the item and, via FK cascade, its accounts.
// Transactions keep existing with a nulled account reference.
func (r *SQLiteRepository) DeleteItem(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM ledger_items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, core.ErrNotFound)
	}
	return nil
}
