package models

import (
	"github.com/shopspring/decimal"
)

// Budget represents a monthly spending limit for a user.
// A nil CategoryID means the budget covers the user's whole month (the
// "overall" scope); a non-nil CategoryID limits one category. At most one
// budget row exists per (user, year, month, category) scope; the scope key
// is enforced by a unique index in the migrations.
type Budget struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;index:idx_budget_user_period" json:"user_id"`
	Year          int             `gorm:"not null;index:idx_budget_user_period" json:"year"`
	Month         int             `gorm:"not null;index:idx_budget_user_period" json:"month"`
	CategoryID    *string         `gorm:"type:uuid" json:"category_id,omitempty"`
	MonthlyLimit  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"monthly_limit"`
	AllowRollover bool            `gorm:"default:false" json:"allow_rollover"`
	PreventExceed bool            `gorm:"default:false" json:"prevent_exceed"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// IsOverall reports whether this budget covers the whole month rather than
// a single category.
func (b *Budget) IsOverall() bool {
	return b.CategoryID == nil
}
