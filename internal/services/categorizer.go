package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rdipippo/BudgetManager/internal/cache"
	"github.com/rdipippo/BudgetManager/internal/core"
	"github.com/rdipippo/BudgetManager/internal/log"
	"github.com/rdipippo/BudgetManager/internal/metrics"
)

// ResolutionSource records which layer of the resolver produced a category.
type ResolutionSource string

const (
	SourceRule    ResolutionSource = "rule"
	SourcePattern ResolutionSource = "pattern"
	SourceKeyword ResolutionSource = "keyword"
	SourceNone    ResolutionSource = "none"
)

// applyBatchLimit caps how many uncategorized transactions one batch run
// processes.
const applyBatchLimit = 1000

// Categorizer resolves transactions to categories. Resolution is layered and
// short-circuits: user rules first, then learned patterns, then the built-in
// keyword table. An unresolved transaction stays uncategorized; the resolver
// never guesses.
type Categorizer struct {
	rules        RuleStore
	patterns     PatternStore
	categories   CategoryStore
	transactions TransactionStore
	logger       *log.Logger

	ruleCache     *cache.LRU[[]core.Rule]
	categoryCache *cache.LRU[[]core.Category]
}

func NewCategorizer(
	rules RuleStore,
	patterns PatternStore,
	categories CategoryStore,
	transactions TransactionStore,
	logger *log.Logger,
) *Categorizer {
	return &Categorizer{
		rules:         rules,
		patterns:      patterns,
		categories:    categories,
		transactions:  transactions,
		logger:        logger.WithComponent(log.ComponentCategorizer),
		ruleCache:     cache.NewLRU[[]core.Rule](256, 5*time.Minute),
		categoryCache: cache.NewLRU[[]core.Category](256, 5*time.Minute),
	}
}

// Resolve maps a transaction to a category id. The second return names the
// layer that decided; SourceNone with a zero id means no layer matched.
func (c *Categorizer) Resolve(ctx context.Context, userID int64, in core.MatchInput) (int64, ResolutionSource, error) {
	catID, matched, err := c.resolveRules(ctx, userID, in)
	if err != nil {
		return 0, SourceNone, err
	}
	if matched {
		metrics.Categorizations.WithLabelValues(string(SourceRule)).Inc()
		return catID, SourceRule, nil
	}

	catID, matched, err = c.resolvePattern(ctx, userID, in)
	if err != nil {
		return 0, SourceNone, err
	}
	if matched {
		metrics.Categorizations.WithLabelValues(string(SourcePattern)).Inc()
		return catID, SourcePattern, nil
	}

	catID, matched, err = c.resolveKeywords(ctx, userID, in)
	if err != nil {
		return 0, SourceNone, err
	}
	if matched {
		metrics.Categorizations.WithLabelValues(string(SourceKeyword)).Inc()
		return catID, SourceKeyword, nil
	}

	metrics.Categorizations.WithLabelValues(string(SourceNone)).Inc()
	return 0, SourceNone, nil
}

func (c *Categorizer) resolveRules(ctx context.Context, userID int64, in core.MatchInput) (int64, bool, error) {
	rules, err := c.activeRules(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	for _, rule := range rules {
		if rule.Matches(in) {
			return rule.CategoryID, true, nil
		}
	}
	return 0, false, nil
}

func (c *Categorizer) resolvePattern(ctx context.Context, userID int64, in core.MatchInput) (int64, bool, error) {
	normalized := core.NormalizeMerchant(in.Merchant)
	if normalized == "" {
		return 0, false, nil
	}
	pattern, err := c.patterns.PatternByKey(ctx, userID, core.PatternMerchant, normalized)
	if err != nil {
		return 0, false, fmt.Errorf("lookup pattern: %w", err)
	}
	if pattern == nil || !pattern.AutoApplies() {
		return 0, false, nil
	}
	return pattern.CategoryID, true, nil
}

func (c *Categorizer) resolveKeywords(ctx context.Context, userID int64, in core.MatchInput) (int64, bool, error) {
	name, ok := keywordCategory(in.Merchant, in.Description, in.Amount.IsInflow())
	if !ok {
		return 0, false, nil
	}
	cats, err := c.userCategories(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	for _, cat := range cats {
		if cat.Name == name {
			if name == incomeCategoryName && !cat.IsIncome {
				continue
			}
			return cat.ID, true, nil
		}
	}
	// Keyword hit but the user renamed or deleted the matching default
	// category; nothing to assign.
	return 0, false, nil
}

// AssignCategory records a user's manual categorization and learns from it.
// Passing a nil category clears the assignment without unlearning.
func (c *Categorizer) AssignCategory(ctx context.Context, userID, transactionID int64, categoryID *int64) error {
	if categoryID != nil {
		if _, err := c.categories.CategoryByIDAndUser(ctx, *categoryID, userID); err != nil {
			return fmt.Errorf("verify category: %w", err)
		}
	}
	if err := c.transactions.UpdateTransactionCategory(ctx, transactionID, userID, categoryID); err != nil {
		return err
	}
	if categoryID == nil {
		return nil
	}
	if err := c.Learn(ctx, userID, transactionID, *categoryID); err != nil {
		// Learning is best effort; the assignment itself already stuck.
		c.logger.WarnContext(ctx, "pattern learning failed",
			log.FieldTransactionID, transactionID, log.FieldError, err)
	}
	return nil
}

// Learn reinforces the learned pattern for the transaction's normalized
// merchant. Repeating the same category strengthens the pattern; switching
// categories overwrites it and resets its confidence.
func (c *Categorizer) Learn(ctx context.Context, userID, transactionID, categoryID int64) error {
	tx, err := c.transactions.TransactionByIDAndUser(ctx, transactionID, userID)
	if err != nil {
		return err
	}
	normalized := core.NormalizeMerchant(tx.MerchantName)
	if normalized == "" {
		return nil
	}

	existing, err := c.patterns.PatternByKey(ctx, userID, core.PatternMerchant, normalized)
	if err != nil {
		return fmt.Errorf("lookup pattern: %w", err)
	}
	if existing == nil {
		p := core.NewLearnedPattern(userID, categoryID, core.PatternMerchant, normalized)
		if err := c.patterns.InsertPattern(ctx, p); err != nil {
			return fmt.Errorf("insert pattern: %w", err)
		}
		metrics.Reinforcements.WithLabelValues("created").Inc()
		return nil
	}

	outcome := "strengthened"
	if existing.CategoryID != categoryID {
		outcome = "overwritten"
	}
	existing.Reinforce(categoryID)
	if err := c.patterns.UpdatePattern(ctx, *existing); err != nil {
		return fmt.Errorf("update pattern: %w", err)
	}
	metrics.Reinforcements.WithLabelValues(outcome).Inc()
	return nil
}

// ApplyToUncategorized runs the resolver over the user's uncategorized
// backlog and returns how many transactions it categorized. Unresolved
// transactions are left untouched.
func (c *Categorizer) ApplyToUncategorized(ctx context.Context, userID int64) (int, error) {
	uncategorized, err := c.transactions.UncategorizedByUser(ctx, userID, applyBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("list uncategorized: %w", err)
	}

	count := 0
	for _, tx := range uncategorized {
		catID, source, err := c.Resolve(ctx, userID, tx.MatchInput())
		if err != nil {
			return count, err
		}
		if source == SourceNone {
			continue
		}
		if err := c.transactions.UpdateTransactionCategory(ctx, tx.ID, userID, &catID); err != nil {
			return count, err
		}
		count++
	}

	c.logger.InfoContext(ctx, "batch categorization complete",
		log.FieldUserID, userID,
		"scanned", len(uncategorized),
		"categorized", count)
	return count, nil
}

// InvalidateUser drops cached rules and categories after a write to either.
func (c *Categorizer) InvalidateUser(userID int64) {
	key := strconv.FormatInt(userID, 10)
	c.ruleCache.Delete(key)
	c.categoryCache.Delete(key)
}

func (c *Categorizer) activeRules(ctx context.Context, userID int64) ([]core.Rule, error) {
	key := strconv.FormatInt(userID, 10)
	if rules, ok := c.ruleCache.Get(key); ok {
		return rules, nil
	}
	rules, err := c.rules.ActiveRulesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	// Highest priority first; ties break toward the older rule.
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
	c.ruleCache.Set(key, rules)
	return rules, nil
}

func (c *Categorizer) userCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	key := strconv.FormatInt(userID, 10)
	if cats, ok := c.categoryCache.Get(key); ok {
		return cats, nil
	}
	cats, err := c.categories.CategoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	c.categoryCache.Set(key, cats)
	return cats, nil
}
