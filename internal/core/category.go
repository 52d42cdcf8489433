package core

import (
	"strings"
	"time"
)

// Category is a spending category owned by one user. (UserID, ParentID, Name)
// is unique. Deleting a category nulls out references on transactions; it never
// cascades into them.
type Category struct {
	ID        int64
	UserID    int64
	ParentID  *int64
	Name      string
	Color     string
	Icon      string
	IsIncome  bool
	IsSystem  bool
	SortOrder int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// DefaultCategories returns the system categories created for every user at
// signup. Order doubles as sort order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Income", Color: "#10B981", Icon: "dollar-sign", IsIncome: true, IsSystem: true},
		{Name: "Housing", Color: "#4F46E5", Icon: "home", IsSystem: true},
		{Name: "Transportation", Color: "#F59E0B", Icon: "car", IsSystem: true},
		{Name: "Food & Dining", Color: "#EF4444", Icon: "utensils", IsSystem: true},
		{Name: "Utilities", Color: "#6366F1", Icon: "zap", IsSystem: true},
		{Name: "Healthcare", Color: "#EC4899", Icon: "heart", IsSystem: true},
		{Name: "Entertainment", Color: "#8B5CF6", Icon: "film", IsSystem: true},
		{Name: "Shopping", Color: "#14B8A6", Icon: "shopping-bag", IsSystem: true},
		{Name: "Personal Care", Color: "#F97316", Icon: "user", IsSystem: true},
		{Name: "Education", Color: "#0EA5E9", Icon: "book", IsSystem: true},
		{Name: "Subscriptions", Color: "#84CC16", Icon: "credit-card", IsSystem: true},
		{Name: "Other", Color: "#6B7280", Icon: "more-horizontal", IsSystem: true},
	}
}
