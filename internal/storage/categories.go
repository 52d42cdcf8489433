package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rdipippo/BudgetManager/internal/core"
)

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c        core.Category
		parentID sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.UserID, &parentID, &c.Name, &c.Color, &c.Icon,
		&c.IsIncome, &c.IsSystem, &c.SortOrder)
	if err != nil {
		return core.Category{}, err
	}
	c.ParentID = i64OrNil(parentID)
	return c, nil
}

const categoryColumns = `id, user_id, parent_id, name, color, icon, is_income, is_system, sort_order`

// CreateCategory inserts a user category. The (user, parent, name)
// uniqueness constraint rejects duplicates.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, parent_id, name, color, icon, is_income, is_system, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, nullI64(c.ParentID), c.Name, c.Color, c.Icon, c.IsIncome, c.IsSystem, c.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category id: %w", err)
	}
	return id, nil
}

// CreateDefaultCategories seeds the system categories for a new user.
func (r *SQLiteRepository) CreateDefaultCategories(ctx context.Context, userID int64) error {
	for i, c := range core.DefaultCategories() {
		c.UserID = userID
		c.SortOrder = i
		if _, err := r.CreateCategory(ctx, c); err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}
	return nil
}

// CategoriesByUser lists all of a user's categories, income first, then by
// sort order and name.
func (r *SQLiteRepository) CategoriesByUser(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id = ?
		ORDER BY is_income DESC, sort_order, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) CategoryByIDAndUser(ctx context.Context, id, userID int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a user category. System categories are protected.
// Transactions referencing the category keep existing with a nulled
// reference (FK ON DELETE SET NULL); learned patterns pointing at it are
// dropped since they can no longer resolve.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id, userID int64) error {
	c, err := r.CategoryByIDAndUser(ctx, id, userID)
	if err != nil {
		return err
	}
	if c.IsSystem {
		return core.ErrSystemCategory
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM learned_patterns WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("delete patterns for category: %w", err)
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
