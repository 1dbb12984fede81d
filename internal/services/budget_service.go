package services

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/budget"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/period"
)

// budgetService implements the budget evaluation engine: upserts keyed on the
// (user, year, month, category) scope, real-time status reports, expense
// validation, and the monthly summary.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// UpsertBudget creates or updates the budget for one scope. If a budget
// already exists for (user, year, month, category) its limit and flags are
// replaced; otherwise a new row is created with flags defaulting to false.
func (s *budgetService) UpsertBudget(userID string, input BudgetInput) (*models.Budget, error) {
	m, err := period.Resolve(input.Year, input.Month, time.Now())
	if err != nil {
		return nil, err
	}

	if input.MonthlyLimit == nil || input.MonthlyLimit.Sign() < 0 {
		return nil, apperrors.ErrInvalidLimit
	}

	var categoryID *string
	if input.CategoryID != nil && *input.CategoryID != "" {
		var category models.Category
		if err := s.db.First(&category, "id = ?", *input.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if category.UserID != userID {
			return nil, apperrors.ErrCategoryNotOwned
		}
		categoryID = &category.ID
	}

	allowRollover := input.AllowRollover != nil && *input.AllowRollover
	preventExceed := input.PreventExceed != nil && *input.PreventExceed

	existing, err := s.findByScope(userID, m, budget.ForBudgetRow(categoryID))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.MonthlyLimit = *input.MonthlyLimit
		existing.AllowRollover = allowRollover
		existing.PreventExceed = preventExceed
		if err := s.db.Save(existing).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return existing, nil
	}

	b := &models.Budget{
		UserID:        userID,
		Year:          m.Year,
		Month:         int(m.Month),
		CategoryID:    categoryID,
		MonthlyLimit:  *input.MonthlyLimit,
		AllowRollover: allowRollover,
		PreventExceed: preventExceed,
	}
	if err := s.db.Create(b).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return b, nil
}

// findByScope looks up the single budget row for one scope key. Returns nil
// without error when no budget exists for the scope.
func (s *budgetService) findByScope(userID string, m period.Month, sc budget.Scope) (*models.Budget, error) {
	q := s.db.Preload("Category").
		Where("user_id = ? AND year = ? AND month = ?", userID, m.Year, int(m.Month))
	if categoryID, ok := sc.CategoryID(); ok {
		q = q.Where("category_id = ?", categoryID)
	} else {
		q = q.Where("category_id IS NULL")
	}

	var b models.Budget
	if err := q.First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &b, nil
}

// categoryBudgetsForMonth returns all category-scoped budgets for the month.
func (s *budgetService) categoryBudgetsForMonth(userID string, m period.Month) ([]models.Budget, error) {
	var budgets []models.Budget
	err := s.db.Preload("Category").
		Where("user_id = ? AND year = ? AND month = ? AND category_id IS NOT NULL",
			userID, m.Year, int(m.Month)).
		Order("created_at").
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetUserBudgets returns every budget the user has, newest period first.
func (s *budgetService) GetUserBudgets(userID string) ([]models.Budget, error) {
	var budgets []models.Budget
	err := s.db.Preload("Category").
		Where("user_id = ?", userID).
		Order("year DESC, month DESC, created_at").
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetBudgetsForMonth returns all budget scopes for the resolved month.
func (s *budgetService) GetBudgetsForMonth(userID string, year, month *int) ([]models.Budget, error) {
	m, err := period.Resolve(year, month, time.Now())
	if err != nil {
		return nil, err
	}

	var budgets []models.Budget
	err = s.db.Preload("Category").
		Where("user_id = ? AND year = ? AND month = ?", userID, m.Year, int(m.Month)).
		Order("created_at").
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetBudgetStatus evaluates every budget scope for the resolved month against
// the current transaction history.
func (s *budgetService) GetBudgetStatus(userID string, year, month *int) (*BudgetStatusReport, error) {
	m, err := period.Resolve(year, month, time.Now())
	if err != nil {
		return nil, err
	}
	return s.statusForMonth(userID, m)
}

func (s *budgetService) statusForMonth(userID string, m period.Month) (*BudgetStatusReport, error) {
	report := &BudgetStatusReport{
		CategoryBudgets: []CategoryBudgetStatus{},
		Alerts:          []BudgetAlert{},
	}

	// Overall net spend is computed once from all of the month's transactions.
	totalSpent, err := currentSpending(s.db, userID, m, budget.Overall())
	if err != nil {
		return nil, err
	}

	overall, err := s.findByScope(userID, m, budget.Overall())
	if err != nil {
		return nil, err
	}
	if overall != nil {
		limit := overall.MonthlyLimit
		pct := usagePercentage(totalSpent, limit)
		report.Overall = ScopeStatus{
			Budget:          limit,
			Spent:           totalSpent,
			Remaining:       limit.Sub(totalSpent),
			UsagePercentage: pct,
			Status:          classify(pct),
		}
		report.Alerts = append(report.Alerts, scopeAlerts(budget.Overall(), pct, limit, totalSpent)...)
	} else {
		// No overall budget configured: report the actual spend against a
		// zero limit and stay SAFE. Absence of a budget is never a warning.
		report.Overall = ScopeStatus{
			Budget:    decimal.Zero,
			Spent:     totalSpent,
			Remaining: decimal.Zero,
			Status:    TierSafe,
		}
	}

	// Category budgets are independent scopes: each recomputes its own net
	// spend, and none of them subtracts from the overall figure.
	categoryBudgets, err := s.categoryBudgetsForMonth(userID, m)
	if err != nil {
		return nil, err
	}
	for _, cb := range categoryBudgets {
		sc := budget.ForCategory(*cb.CategoryID)
		spent, err := currentSpending(s.db, userID, m, sc)
		if err != nil {
			return nil, err
		}

		pct := usagePercentage(spent, cb.MonthlyLimit)
		name := ""
		if cb.Category != nil {
			name = cb.Category.Name
		}
		report.CategoryBudgets = append(report.CategoryBudgets, CategoryBudgetStatus{
			CategoryID:   *cb.CategoryID,
			CategoryName: name,
			ScopeStatus: ScopeStatus{
				Budget:          cb.MonthlyLimit,
				Spent:           spent,
				Remaining:       cb.MonthlyLimit.Sub(spent),
				UsagePercentage: pct,
				Status:          classify(pct),
			},
		})
		report.Alerts = append(report.Alerts, scopeAlerts(sc, pct, cb.MonthlyLimit, spent)...)
	}

	return report, nil
}

// ValidateExpense checks a prospective or updated expense against the month's
// budgets. Non-expense transactions are always allowed. The overall budget is
// checked first, then the expense's category budget; the first scope whose
// prevent-exceed flag trips rejects the expense, while scopes without the
// flag only produce a warning and never block later checks.
func (s *budgetService) ValidateExpense(userID string, tx *models.Transaction) (*BudgetValidation, error) {
	if tx == nil || !tx.IsExpense() {
		return &BudgetValidation{Allowed: true}, nil
	}

	date := time.Now()
	if tx.Date != nil {
		date = *tx.Date
	}
	m := period.Of(date)

	var warning *BudgetValidation

	overall, err := s.findByScope(userID, m, budget.Overall())
	if err != nil {
		return nil, err
	}
	if overall != nil {
		spent, err := currentSpending(s.db, userID, m, budget.Overall())
		if err != nil {
			return nil, err
		}
		if spent.Add(tx.Amount).GreaterThan(overall.MonthlyLimit) {
			if overall.PreventExceed {
				return &BudgetValidation{
					Allowed: false,
					Message: "Expense would exceed overall monthly budget",
					Status:  TierExceeded,
				}, nil
			}
			warning = &BudgetValidation{
				Allowed: true,
				Message: "Warning: Expense exceeds overall monthly budget",
				Status:  TierExceeded,
			}
		}
	}

	if tx.CategoryID != nil {
		sc := budget.ForCategory(*tx.CategoryID)
		categoryBudget, err := s.findByScope(userID, m, sc)
		if err != nil {
			return nil, err
		}
		if categoryBudget != nil {
			spent, err := currentSpending(s.db, userID, m, sc)
			if err != nil {
				return nil, err
			}
			if spent.Add(tx.Amount).GreaterThan(categoryBudget.MonthlyLimit) {
				name := sc.Label()
				if categoryBudget.Category != nil {
					name = categoryBudget.Category.Name
				}
				if categoryBudget.PreventExceed {
					return &BudgetValidation{
						Allowed: false,
						Message: "Expense would exceed category budget: " + name,
						Status:  TierExceeded,
					}, nil
				}
				if warning == nil {
					warning = &BudgetValidation{
						Allowed: true,
						Message: "Warning: Expense exceeds category budget: " + name,
						Status:  TierExceeded,
					}
				}
			}
		}
	}

	if warning != nil {
		return warning, nil
	}
	return &BudgetValidation{Allowed: true}, nil
}

// GetMonthlySummary combines the month's totals, savings, category expense
// breakdown, and the budget status report into one response. Totals and the
// breakdown come from a single transaction fetch.
func (s *budgetService) GetMonthlySummary(userID string, year, month *int) (*MonthlySummary, error) {
	m, err := period.Resolve(year, month, time.Now())
	if err != nil {
		return nil, err
	}

	start, end := m.Range()
	var transactions []models.Transaction
	err = s.db.Preload("Category").
		Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totalIncome, totalExpenses := splitTotals(transactions)
	savings := totalIncome.Sub(totalExpenses)

	savingsPercentage := 0.0
	if totalIncome.Sign() > 0 {
		savingsPercentage, _ = savings.Div(totalIncome).Mul(hundred).Float64()
	}

	status, err := s.statusForMonth(userID, m)
	if err != nil {
		return nil, err
	}

	return &MonthlySummary{
		Year:              m.Year,
		Month:             int(m.Month),
		TotalIncome:       totalIncome,
		TotalExpenses:     totalExpenses,
		Savings:           savings,
		SavingsPercentage: savingsPercentage,
		BudgetStatus:      status,
		CategoryExpenses:  expenseBreakdown(transactions, totalExpenses),
	}, nil
}

// expenseBreakdown groups categorised expense rows by category and reports
// each category's share of total expenses. Uncategorised expenses are
// excluded; percentages are zero when there are no expenses at all.
func expenseBreakdown(transactions []models.Transaction, totalExpenses decimal.Decimal) []CategoryExpense {
	type group struct {
		name   string
		amount decimal.Decimal
	}
	groups := make(map[string]*group)

	for _, tx := range transactions {
		if tx.Type != models.TransactionTypeExpense || tx.CategoryID == nil {
			continue
		}
		g, ok := groups[*tx.CategoryID]
		if !ok {
			g = &group{}
			if tx.Category != nil {
				g.name = tx.Category.Name
			}
			groups[*tx.CategoryID] = g
		}
		g.amount = g.amount.Add(tx.Amount)
	}

	breakdown := make([]CategoryExpense, 0, len(groups))
	for categoryID, g := range groups {
		pct := 0.0
		if totalExpenses.Sign() > 0 {
			pct, _ = g.amount.Div(totalExpenses).Mul(hundred).Float64()
		}
		breakdown = append(breakdown, CategoryExpense{
			CategoryID:   categoryID,
			CategoryName: g.name,
			Amount:       g.amount,
			Percentage:   pct,
		})
	}

	// Largest slices first; map iteration order is not stable.
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Amount.Equal(breakdown[j].Amount) {
			return breakdown[i].CategoryID < breakdown[j].CategoryID
		}
		return breakdown[i].Amount.GreaterThan(breakdown[j].Amount)
	})
	return breakdown
}

// DeleteBudget removes a budget owned by the user.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	var b models.Budget
	if err := s.db.First(&b, "id = ?", budgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrBudgetNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if b.UserID != userID {
		return apperrors.ErrForbidden
	}

	if err := s.db.Delete(&b).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
