package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/models"
)

// BudgetTier classifies how much of a budget's limit is used.
type BudgetTier string

const (
	TierSafe     BudgetTier = "SAFE"     // < 50% used
	TierWarning  BudgetTier = "WARNING"  // 50-90% used
	TierExceeded BudgetTier = "EXCEEDED" // >= 90% used
)

// AlertSeverity grades a threshold-crossing alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// ScopeStatus holds the evaluated state of one budget scope.
type ScopeStatus struct {
	Budget          decimal.Decimal `json:"budget"`
	Spent           decimal.Decimal `json:"spent"`
	Remaining       decimal.Decimal `json:"remaining"`
	UsagePercentage float64         `json:"usage_percentage"`
	Status          BudgetTier      `json:"status"`
}

// CategoryBudgetStatus is the evaluated state of a single category budget.
type CategoryBudgetStatus struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	ScopeStatus
}

// BudgetAlert reports a crossed spending threshold for one scope.
type BudgetAlert struct {
	Scope     string        `json:"scope"`
	Threshold float64       `json:"threshold"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
}

// BudgetStatusReport is the full evaluation of a user's month. It is derived
// from the current transaction history on every request and never persisted.
type BudgetStatusReport struct {
	Overall         ScopeStatus            `json:"overall"`
	CategoryBudgets []CategoryBudgetStatus `json:"category_budgets"`
	Alerts          []BudgetAlert          `json:"alerts"`
}

// CategoryExpense is one slice of the monthly expense breakdown.
type CategoryExpense struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Amount       decimal.Decimal `json:"amount"`
	Percentage   float64         `json:"percentage"`
}

// MonthlySummary combines totals, savings, the budget status report, and the
// category expense breakdown for one calendar month.
type MonthlySummary struct {
	Year              int                 `json:"year"`
	Month             int                 `json:"month"`
	TotalIncome       decimal.Decimal     `json:"total_income"`
	TotalExpenses     decimal.Decimal     `json:"total_expenses"`
	Savings           decimal.Decimal     `json:"savings"`
	SavingsPercentage float64             `json:"savings_percentage"`
	BudgetStatus      *BudgetStatusReport `json:"budget_status"`
	CategoryExpenses  []CategoryExpense   `json:"category_expenses"`
}

// BudgetValidation is the advisory outcome of checking a prospective expense
// against the month's budgets. The persistence layer decides what to do with
// a disallowed expense.
type BudgetValidation struct {
	Allowed bool       `json:"allowed"`
	Message string     `json:"message,omitempty"`
	Status  BudgetTier `json:"status,omitempty"`
}

// BudgetInput holds the fields of a budget upsert request. Year and month
// default to the current period; the flags default to false when unset.
type BudgetInput struct {
	Year          *int
	Month         *int
	CategoryID    *string
	MonthlyLimit  *decimal.Decimal
	AllowRollover *bool
	PreventExceed *bool
}

// TransactionInput holds the fields of a transaction create/update request.
type TransactionInput struct {
	Type       models.TransactionType
	Amount     decimal.Decimal
	Date       *time.Time
	CategoryID *string
	Note       string
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID, name string) (*models.Category, error)
	GetUserCategories(userID string) ([]models.Category, error)
	GetCategoryByID(userID, categoryID string) (*models.Category, error)
}

// TransactionServicer defines the contract for transaction-related business
// logic. Create and update return the budget validation outcome alongside the
// row so callers can surface over-budget warnings.
type TransactionServicer interface {
	CreateTransaction(userID string, input TransactionInput) (*models.Transaction, *BudgetValidation, error)
	GetUserTransactions(userID string) ([]models.Transaction, error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, input TransactionInput) (*models.Transaction, *BudgetValidation, error)
	DeleteTransaction(userID, transactionID string) error
}

// BudgetServicer defines the contract for the budget evaluation engine.
type BudgetServicer interface {
	UpsertBudget(userID string, input BudgetInput) (*models.Budget, error)
	GetUserBudgets(userID string) ([]models.Budget, error)
	GetBudgetsForMonth(userID string, year, month *int) ([]models.Budget, error)
	GetBudgetStatus(userID string, year, month *int) (*BudgetStatusReport, error)
	GetMonthlySummary(userID string, year, month *int) (*MonthlySummary, error)
	ValidateExpense(userID string, tx *models.Transaction) (*BudgetValidation, error)
	DeleteBudget(userID, budgetID string) error
}

// ExportServicer defines the contract for spreadsheet export.
type ExportServicer interface {
	TransactionsWorkbook(userID string) (*excelize.File, error)
}
