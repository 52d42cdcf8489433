package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rdipippo/BudgetManager/internal/core"
)

const ruleColumns = `id, user_id, category_id, name, match_type, merchant_pattern,
	description_pattern, amount_min, amount_max, is_exact_match, priority, is_active`

func scanRule(row interface{ Scan(...any) error }) (core.Rule, error) {
	var (
		rule         core.Rule
		matchType    string
		merchantPat  sql.NullString
		descPat      sql.NullString
		amountMin    sql.NullInt64
		amountMax    sql.NullInt64
	)
	err := row.Scan(&rule.ID, &rule.UserID, &rule.CategoryID, &rule.Name, &matchType,
		&merchantPat, &descPat, &amountMin, &amountMax,
		&rule.IsExactMatch, &rule.Priority, &rule.IsActive)
	if err != nil {
		return core.Rule{}, err
	}
	rule.MatchType = core.MatchType(matchType)
	rule.MerchantPattern = strOrNil(merchantPat)
	rule.DescriptionPattern = strOrNil(descPat)
	rule.AmountMin = i64OrNil(amountMin)
	rule.AmountMax = i64OrNil(amountMax)
	return rule, nil
}

// CreateRule persists a rule. Malformed rules are rejected here and never
// reach the resolver.
func (r *SQLiteRepository) CreateRule(ctx context.Context, rule core.Rule) (int64, error) {
	if err := rule.Validate(); err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categorization_rules
		(user_id, category_id, name, match_type, merchant_pattern, description_pattern,
		 amount_min, amount_max, is_exact_match, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.UserID, rule.CategoryID, rule.Name, string(rule.MatchType),
		nullStr(rule.MerchantPattern), nullStr(rule.DescriptionPattern),
		nullI64(rule.AmountMin), nullI64(rule.AmountMax),
		rule.IsExactMatch, rule.Priority, rule.IsActive)
	if err != nil {
		return 0, fmt.Errorf("insert rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("rule id: %w", err)
	}
	return id, nil
}

// UpdateRule replaces the mutable fields of an owned rule.
func (r *SQLiteRepository) UpdateRule(ctx context.Context, rule core.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE categorization_rules SET
			category_id = ?, name = ?, match_type = ?, merchant_pattern = ?,
			description_pattern = ?, amount_min = ?, amount_max = ?,
			is_exact_match = ?, priority = ?, is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		rule.CategoryID, rule.Name, string(rule.MatchType),
		nullStr(rule.MerchantPattern), nullStr(rule.DescriptionPattern),
		nullI64(rule.AmountMin), nullI64(rule.AmountMax),
		rule.IsExactMatch, rule.Priority, rule.IsActive,
		rule.ID, rule.UserID)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", rule.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteRule(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categorization_rules WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// ActiveRulesByUser returns the rules the resolver evaluates, ordered by
// descending priority with insertion order breaking ties.
func (r *SQLiteRepository) ActiveRulesByUser(ctx context.Context, userID int64) ([]core.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM categorization_rules
		WHERE user_id = ? AND is_active = 1
		ORDER BY priority DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query active rules: %w", err)
	}
	defer rows.Close()

	var rules []core.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// RulesByUser lists every rule the user owns, including inactive ones.
func (r *SQLiteRepository) RulesByUser(ctx context.Context, userID int64) ([]core.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ruleColumns+` FROM categorization_rules
		WHERE user_id = ?
		ORDER BY priority DESC, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []core.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *SQLiteRepository) RuleByIDAndUser(ctx context.Context, id, userID int64) (core.Rule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM categorization_rules WHERE id = ? AND user_id = ?`, id, userID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Rule{}, fmt.Errorf("rule %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Rule{}, fmt.Errorf("get rule: %w", err)
	}
	return rule, nil
}
