package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/budget"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/period"
)

// periodTransactions fetches a user's transactions inside a calendar month,
// narrowed to one category when the scope is a category budget. Rows without
// a date never match the closed date range.
func periodTransactions(db *gorm.DB, userID string, m period.Month, sc budget.Scope) ([]models.Transaction, error) {
	start, end := m.Range()
	q := db.Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end)
	if categoryID, ok := sc.CategoryID(); ok {
		q = q.Where("category_id = ?", categoryID)
	}

	var transactions []models.Transaction
	if err := q.Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// splitTotals reduces a transaction set to its income and expense sums.
func splitTotals(transactions []models.Transaction) (income, expenses decimal.Decimal) {
	for _, tx := range transactions {
		switch tx.Type {
		case models.TransactionTypeIncome:
			income = income.Add(tx.Amount)
		case models.TransactionTypeExpense:
			expenses = expenses.Add(tx.Amount)
		}
	}
	return income, expenses
}

// netSpend is expenses minus income, floored at zero. Income and refunds
// offset spending but spend is never reported negative.
func netSpend(transactions []models.Transaction) decimal.Decimal {
	income, expenses := splitTotals(transactions)
	spent := expenses.Sub(income)
	if spent.Sign() < 0 {
		return decimal.Zero
	}
	return spent
}

// currentSpending computes the net spend for one scope in one month.
func currentSpending(db *gorm.DB, userID string, m period.Month, sc budget.Scope) (decimal.Decimal, error) {
	transactions, err := periodTransactions(db, userID, m, sc)
	if err != nil {
		return decimal.Zero, err
	}
	return netSpend(transactions), nil
}
