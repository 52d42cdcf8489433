package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rdipippo/BudgetManager/internal/core"
)

const transactionColumns = `id, user_id, account_id, provider_transaction_id, category_id,
	amount, date, merchant_name, description, provider_category, pending, is_manual, notes`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx         core.Transaction
		accountID  sql.NullInt64
		providerID sql.NullString
		categoryID sql.NullInt64
		amount     int64
		date       string
		provCat    sql.NullString
		notes      sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.UserID, &accountID, &providerID, &categoryID,
		&amount, &date, &tx.MerchantName, &tx.Description, &provCat,
		&tx.Pending, &tx.IsManual, &notes)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.AccountID = i64OrNil(accountID)
	tx.ProviderTransactionID = strOrNil(providerID)
	tx.CategoryID = i64OrNil(categoryID)
	tx.Amount = core.Money{Cents: amount}
	tx.ProviderCategory = strOrNil(provCat)
	tx.Notes = strOrNil(notes)
	if parsed, perr := time.Parse(dateFormat, date); perr == nil {
		tx.Date = parsed
	}
	return tx, nil
}

// UpsertFromProvider inserts a provider transaction or, when the provider
// transaction id is already known, refreshes the provider-owned fields.
// category_id and notes are user state and are never touched on conflict;
// replaying the same page is a no-op for them.
func (r *SQLiteRepository) UpsertFromProvider(ctx context.Context, up core.ProviderUpsert) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
		(user_id, account_id, provider_transaction_id, amount, date,
		 merchant_name, description, provider_category, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_transaction_id) DO UPDATE SET
			account_id = excluded.account_id,
			amount = excluded.amount,
			date = excluded.date,
			merchant_name = excluded.merchant_name,
			description = excluded.description,
			provider_category = excluded.provider_category,
			pending = excluded.pending,
			updated_at = CURRENT_TIMESTAMP`,
		up.UserID, up.AccountID, up.ProviderTransactionID, up.Amount.Cents,
		up.Date.Format(dateFormat), up.MerchantName, up.Description,
		nullStr(up.ProviderCategory), up.Pending)
	if err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

// DeleteByProviderTransactionID handles a provider-side removal. Deleting an
// id that was never stored is not an error.
func (r *SQLiteRepository) DeleteByProviderTransactionID(ctx context.Context, providerTxID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE provider_transaction_id = ?`, providerTxID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) TransactionByIDAndUser(ctx context.Context, id, userID int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) TransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// UncategorizedByUser returns transactions with no category yet, oldest
// first so batch categorization processes them in ledger order.
func (r *SQLiteRepository) UncategorizedByUser(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? AND category_id IS NULL
		ORDER BY date ASC, id ASC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query uncategorized: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// UpdateTransactionCategory sets or clears the category. A nil categoryID
// returns the transaction to the uncategorized pool.
func (r *SQLiteRepository) UpdateTransactionCategory(ctx context.Context, id, userID int64, categoryID *int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET category_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`, nullI64(categoryID), id, userID)
	if err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) UpdateTransactionNotes(ctx context.Context, id, userID int64, notes *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`, nullStr(notes), id, userID)
	if err != nil {
		return fmt.Errorf("update transaction notes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction notes: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// CreateManualTransaction records a user-entered transaction outside the
// sync pipeline. It carries no provider transaction id.
func (r *SQLiteRepository) CreateManualTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
		(user_id, account_id, category_id, amount, date, merchant_name, description, is_manual, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		tx.UserID, nullI64(tx.AccountID), nullI64(tx.CategoryID), tx.Amount.Cents,
		tx.Date.Format(dateFormat), tx.MerchantName, tx.Description, nullStr(tx.Notes))
	if err != nil {
		return 0, fmt.Errorf("insert manual transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("manual transaction id: %w", err)
	}
	return id, nil
}

// DeleteManualTransaction deletes a user-entered transaction. Provider-sourced
// rows are owned by the sync pipeline and cannot be deleted this way.
func (r *SQLiteRepository) DeleteManualTransaction(ctx context.Context, id, userID int64) error {
	tx, err := r.TransactionByIDAndUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if !tx.IsManual {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotManual)
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete manual transaction: %w", err)
	}
	return nil
}

// CategorySpending is one row of the per-category spending aggregate.
type CategorySpending struct {
	CategoryID   *int64
	CategoryName string
	TotalCents   int64
	Count        int64
}

// SpendingByCategory sums expense amounts per category over a date range.
// Uncategorized spending appears as a single row with a nil category id.
func (r *SQLiteRepository) SpendingByCategory(ctx context.Context, userID int64, from, to time.Time) ([]CategorySpending, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.category_id, COALESCE(c.name, 'Uncategorized'), SUM(t.amount), COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.amount < 0 AND t.date >= ? AND t.date <= ?
		GROUP BY t.category_id
		ORDER BY SUM(t.amount) ASC`,
		userID, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("query spending: %w", err)
	}
	defer rows.Close()

	var out []CategorySpending
	for rows.Next() {
		var (
			row   CategorySpending
			catID sql.NullInt64
		)
		if err := rows.Scan(&catID, &row.CategoryName, &row.TotalCents, &row.Count); err != nil {
			return nil, fmt.Errorf("scan spending: %w", err)
		}
		row.CategoryID = i64OrNil(catID)
		out = append(out, row)
	}
	return out, rows.Err()
}
