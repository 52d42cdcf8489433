package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rdipippo/BudgetManager/internal/core"
)

const accountColumns = `id, item_id, provider_account_id, name, official_name,
	type, subtype, mask, current_balance, available_balance, currency_code, is_hidden`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var (
		acc       core.Account
		official  sql.NullString
		subtype   sql.NullString
		mask      sql.NullString
		current   sql.NullInt64
		available sql.NullInt64
		currency  sql.NullString
	)
	err := row.Scan(&acc.ID, &acc.ItemID, &acc.ProviderAccountID, &acc.Name,
		&official, &acc.Type, &subtype, &mask, &current, &available, &currency, &acc.IsHidden)
	if err != nil {
		return core.Account{}, err
	}
	acc.OfficialName = strOrNil(official)
	acc.Subtype = strOrNil(subtype)
	acc.Mask = strOrNil(mask)
	acc.CurrentBalance = i64OrNil(current)
	acc.AvailableBalance = i64OrNil(available)
	acc.CurrencyCode = strOrNil(currency)
	return acc, nil
}

// UpsertAccount inserts the account or refreshes its provider-owned fields.
// The is_hidden flag is user state and survives the upsert.
func (r *SQLiteRepository) UpsertAccount(ctx context.Context, acc core.Account) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_accounts
		(item_id, provider_account_id, name, official_name, type, subtype,
		 mask, current_balance, available_balance, currency_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_account_id) DO UPDATE SET
			name = excluded.name,
			official_name = excluded.official_name,
			type = excluded.type,
			subtype = excluded.subtype,
			mask = excluded.mask,
			current_balance = excluded.current_balance,
			available_balance = excluded.available_balance,
			currency_code = excluded.currency_code,
			updated_at = CURRENT_TIMESTAMP`,
		acc.ItemID, acc.ProviderAccountID, acc.Name, nullStr(acc.OfficialName),
		acc.Type, nullStr(acc.Subtype), nullStr(acc.Mask),
		nullI64(acc.CurrentBalance), nullI64(acc.AvailableBalance), nullStr(acc.CurrencyCode))
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AccountsByItem(ctx context.Context, itemID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM ledger_accounts
		WHERE item_id = ? ORDER BY name`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *SQLiteRepository) AccountsByUser(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.item_id, a.provider_account_id, a.name, a.official_name,
		       a.type, a.subtype, a.mask, a.current_balance, a.available_balance,
		       a.currency_code, a.is_hidden
		FROM ledger_accounts a
		JOIN ledger_items i ON i.id = a.item_id
		WHERE i.user_id = ? ORDER BY a.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]core.Account, error) {
	var accounts []core.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) SetAccountHidden(ctx context.Context, id int64, hidden bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ledger_accounts SET is_hidden = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, hidden, id)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}
