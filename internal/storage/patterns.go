package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rdipippo/BudgetManager/internal/core"
)

// PatternByKey looks up the learned pattern for (user, type, normalized
// value). A miss is a normal outcome and returns (nil, nil).
func (r *SQLiteRepository) PatternByKey(ctx context.Context, userID int64, patternType core.PatternType, value string) (*core.LearnedPattern, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, category_id, pattern_type, pattern_value, confidence_score, match_count
		FROM learned_patterns
		WHERE user_id = ? AND pattern_type = ? AND pattern_value = ?`,
		userID, string(patternType), value)

	var (
		p     core.LearnedPattern
		ptype string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.CategoryID, &ptype, &p.PatternValue, &p.Confidence, &p.MatchCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get learned pattern: %w", err)
	}
	p.PatternType = core.PatternType(ptype)
	return &p, nil
}

// InsertPattern records a brand-new learned pattern. The (user, type, value)
// uniqueness constraint makes a concurrent duplicate insert fail rather than
// fork the pattern.
func (r *SQLiteRepository) InsertPattern(ctx context.Context, p core.LearnedPattern) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO learned_patterns
		(user_id, category_id, pattern_type, pattern_value, confidence_score, match_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.UserID, p.CategoryID, string(p.PatternType), p.PatternValue, p.Confidence, p.MatchCount)
	if err != nil {
		return fmt.Errorf("insert learned pattern: %w", err)
	}
	return nil
}

// UpdatePattern writes back a reinforced or overwritten pattern.
func (r *SQLiteRepository) UpdatePattern(ctx context.Context, p core.LearnedPattern) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE learned_patterns SET
			category_id = ?, confidence_score = ?, match_count = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.CategoryID, p.Confidence, p.MatchCount, p.ID)
	if err != nil {
		return fmt.Errorf("update learned pattern: %w", err)
	}
	return nil
}

// PatternsByUser lists a user's learned patterns, strongest first.
func (r *SQLiteRepository) PatternsByUser(ctx context.Context, userID int64) ([]core.LearnedPattern, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, pattern_type, pattern_value, confidence_score, match_count
		FROM learned_patterns
		WHERE user_id = ?
		ORDER BY match_count DESC, confidence_score DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query learned patterns: %w", err)
	}
	defer rows.Close()

	var patterns []core.LearnedPattern
	for rows.Next() {
		var (
			p     core.LearnedPattern
			ptype string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.CategoryID, &ptype, &p.PatternValue, &p.Confidence, &p.MatchCount); err != nil {
			return nil, fmt.Errorf("scan learned pattern: %w", err)
		}
		p.PatternType = core.PatternType(ptype)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

func (r *SQLiteRepository) DeletePattern(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM learned_patterns WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete learned pattern: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete learned pattern: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pattern %d: %w", id, core.ErrNotFound)
	}
	return nil
}
