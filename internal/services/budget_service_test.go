package services

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

// currentPeriod returns the current year and month, which the fixtures'
// now-dated transactions fall into.
func currentPeriod() (int, int) {
	now := time.Now()
	return now.Year(), int(now.Month())
}

func TestUpsertBudget(t *testing.T) {
	t.Run("creates_overall_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		b, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year:         intPtr(2026),
			Month:        intPtr(8),
			MonthlyLimit: decPtr(t, "500"),
		})
		testutil.AssertNoError(t, err)

		if b.ID == "" {
			t.Fatal("expected generated budget ID")
		}
		if !b.IsOverall() {
			t.Error("expected overall scope")
		}
		testutil.AssertDecimalEqual(t, "500", b.MonthlyLimit)
		if b.AllowRollover || b.PreventExceed {
			t.Error("flags should default to false")
		}
	})

	// The upsert is a find-then-write: two concurrent upserts to the same
	// scope race and the last writer's limit and flags win. This subtest
	// pins down the sequential form of that outcome.
	t.Run("replaces_existing_scope", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		first, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year:         intPtr(2026),
			Month:        intPtr(8),
			MonthlyLimit: decPtr(t, "500"),
		})
		testutil.AssertNoError(t, err)

		second, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year:          intPtr(2026),
			Month:         intPtr(8),
			MonthlyLimit:  decPtr(t, "750"),
			PreventExceed: boolPtr(true),
		})
		testutil.AssertNoError(t, err)

		if second.ID != first.ID {
			t.Errorf("upsert should reuse the scope's row, got %s and %s", first.ID, second.ID)
		}
		testutil.AssertDecimalEqual(t, "750", second.MonthlyLimit)
		if !second.PreventExceed {
			t.Error("expected prevent_exceed to be replaced")
		}

		var count int64
		db.Model(&models.Budget{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected a single budget row, got %d", count)
		}
	})

	t.Run("overall_and_category_are_distinct_scopes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		overall, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year:         intPtr(2026),
			Month:        intPtr(8),
			MonthlyLimit: decPtr(t, "500"),
		})
		testutil.AssertNoError(t, err)

		scoped, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year:         intPtr(2026),
			Month:        intPtr(8),
			CategoryID:   &cat.ID,
			MonthlyLimit: decPtr(t, "100"),
		})
		testutil.AssertNoError(t, err)

		if overall.ID == scoped.ID {
			t.Error("category budget must not replace the overall budget")
		}

		var count int64
		db.Model(&models.Budget{}).Where("user_id = ?", user.ID).Count(&count)
		if count != 2 {
			t.Errorf("expected 2 budget rows, got %d", count)
		}
	})

	t.Run("same_category_different_months", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID)

		aug, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year: intPtr(2026), Month: intPtr(8), CategoryID: &cat.ID, MonthlyLimit: decPtr(t, "100"),
		})
		testutil.AssertNoError(t, err)

		sep, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year: intPtr(2026), Month: intPtr(9), CategoryID: &cat.ID, MonthlyLimit: decPtr(t, "100"),
		})
		testutil.AssertNoError(t, err)

		if aug.ID == sep.ID {
			t.Error("different months are different scopes")
		}
	})

	t.Run("defaults_to_current_period", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		b, err := svc.UpsertBudget(user.ID, BudgetInput{MonthlyLimit: decPtr(t, "300")})
		testutil.AssertNoError(t, err)

		year, month := currentPeriod()
		if b.Year != year || b.Month != month {
			t.Errorf("expected period %d-%d, got %d-%d", year, month, b.Year, b.Month)
		}
	})

	t.Run("invalid_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		for _, month := range []int{0, 13, -1} {
			_, err := svc.UpsertBudget(user.ID, BudgetInput{
				Year: intPtr(2026), Month: intPtr(month), MonthlyLimit: decPtr(t, "100"),
			})
			testutil.AssertAppError(t, err, "INVALID_PERIOD")
		}
	})

	t.Run("missing_limit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpsertBudget(user.ID, BudgetInput{Year: intPtr(2026), Month: intPtr(8)})
		testutil.AssertAppError(t, err, "INVALID_LIMIT")
	})

	t.Run("negative_limit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year: intPtr(2026), Month: intPtr(8), MonthlyLimit: decPtr(t, "-50"),
		})
		testutil.AssertAppError(t, err, "INVALID_LIMIT")
	})

	t.Run("zero_limit_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		b, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year: intPtr(2026), Month: intPtr(8), MonthlyLimit: decPtr(t, "0"),
		})
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "0", b.MonthlyLimit)
	})

	t.Run("unknown_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpsertBudget(user.ID, BudgetInput{
			Year: intPtr(2026), Month: intPtr(8),
			CategoryID:   strPtr("0198c2f1-0000-7000-8000-000000000000"),
			MonthlyLimit: decPtr(t, "100"),
		})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("foreign_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, other.ID)

		_, err := svc.UpsertBudget(owner.ID, BudgetInput{
			Year: intPtr(2026), Month: intPtr(8), CategoryID: &cat.ID, MonthlyLimit: decPtr(t, "100"),
		})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_OWNED")
	})
}

func TestGetBudgetStatus(t *testing.T) {
	t.Run("income_offsets_spending", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()

		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "200")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "100")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeIncome, "20")

		report, err := svc.GetBudgetStatus(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, "80", report.Overall.Spent)
		testutil.AssertDecimalEqual(t, "120", report.Overall.Remaining)
		if report.Overall.UsagePercentage != 40 {
			t.Errorf("expected 40%% usage, got %v", report.Overall.UsagePercentage)
		}
		if report.Overall.Status != TierSafe {
			t.Errorf("expected SAFE, got %s", report.Overall.Status)
		}
		if len(report.Alerts) != 0 {
			t.Errorf("expected no alerts below 50%%, got %d", len(report.Alerts))
		}
	})

	t.Run("critical_threshold_alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()

		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "100")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "95")

		report, err := svc.GetBudgetStatus(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)

		if report.Overall.Status != TierExceeded {
			t.Errorf("expected EXCEEDED at 95%%, got %s", report.Overall.Status)
		}
		if len(report.Alerts) != 1 {
			t.Fatalf("expected 1 alert, got %d", len(report.Alerts))
		}
		a := report.Alerts[0]
		if a.Severity != SeverityCritical || a.Threshold != 90 {
			t.Errorf("expected CRITICAL/90, got %s/%v", a.Severity, a.Threshold)
		}
		if !strings.Contains(a.Message, "95.0%") {
			t.Errorf("expected 95.0%% in message, got %q", a.Message)
		}
	})

	t.Run("overage_alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()

		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "100")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "110")

		report, err := svc.GetBudgetStatus(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, "-10", report.Overall.Remaining)
		if len(report.Alerts) != 1 {
			t.Fatalf("expected exactly 1 overage alert, got %d", len(report.Alerts))
		}
		if report.Alerts[0].Threshold != 100 {
			t.Errorf("expected threshold 100, got %v", report.Alerts[0].Threshold)
		}
		if !strings.Contains(report.Alerts[0].Message, "by 10.00") {
			t.Errorf("expected overage of 10.00, got %q", report.Alerts[0].Message)
		}
	})

	t.Run("absent_budget_is_safe", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()

		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "30")

		report, err := svc.GetBudgetStatus(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, "0", report.Overall.Budget)
		testutil.AssertDecimalEqual(t, "30", report.Overall.Spent)
		if report.Overall.Status != TierSafe {
			t.Errorf("absence of a budget is never a warning, got %s", report.Overall.Status)
		}
		if len(report.Alerts) != 0 {
			t.Errorf("expected no alerts without budgets, got %d", len(report.Alerts))
		}
	})

	t.Run("category_budgets_are_independent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		groceries := testutil.CreateTestCategory(t, db, user.ID)
		travel := testutil.CreateTestCategory(t, db, user.ID)

		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "1000")
		testutil.CreateTestBudget(t, db, user.ID, year, month, &groceries.ID, "100")
		testutil.CreateTestBudget(t, db, user.ID, year, month, &travel.ID, "200")

		testutil.CreateTestTransaction(t, db, user.ID, &groceries.ID, models.TransactionTypeExpense, "95")
		testutil.CreateTestTransaction(t, db, user.ID, &travel.ID, models.TransactionTypeExpense, "40")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "10")

		report, err := svc.GetBudgetStatus(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)

		// Overall sees every expense of the month.
		testutil.AssertDecimalEqual(t, "145", report.Overall.Spent)

		if len(report.CategoryBudgets) != 2 {
			t.Fatalf("expected 2 category statuses, got %d", len(report.CategoryBudgets))
		}

		byID := map[string]CategoryBudgetStatus{}
		for _, cb := range report.CategoryBudgets {
			byID[cb.CategoryID] = cb
		}

		g := byID[groceries.ID]
		testutil.AssertDecimalEqual(t, "95", g.Spent)
		if g.Status != TierExceeded {
			t.Errorf("expected groceries EXCEEDED at 95%%, got %s", g.Status)
		}

		tr := byID[travel.ID]
		testutil.AssertDecimalEqual(t, "40", tr.Spent)
		if tr.Status != TierSafe {
			t.Errorf("expected travel SAFE at 20%%, got %s", tr.Status)
		}

		// One alert for the groceries scope, none for travel or overall (14.5%).
		if len(report.Alerts) != 1 {
			t.Fatalf("expected 1 alert, got %d", len(report.Alerts))
		}
		if report.Alerts[0].Scope != groceries.ID {
			t.Errorf("expected alert scoped to groceries, got %s", report.Alerts[0].Scope)
		}
	})

	t.Run("ignores_other_months", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()

		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "100")
		lastMonth := time.Now().AddDate(0, -1, 0)
		testutil.CreateTestTransactionAt(t, db, user.ID, nil, models.TransactionTypeExpense, "500", lastMonth)

		report, err := svc.GetBudgetStatus(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)
		testutil.AssertDecimalEqual(t, "0", report.Overall.Spent)
	})

	t.Run("repeated_reads_are_identical", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		groceries := testutil.CreateTestCategory(t, db, user.ID)

		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "200")
		testutil.CreateTestBudget(t, db, user.ID, year, month, &groceries.ID, "100")
		testutil.CreateTestTransaction(t, db, user.ID, &groceries.ID, models.TransactionTypeExpense, "95")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeIncome, "20")

		first, err := svc.GetBudgetStatus(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)
		second, err := svc.GetBudgetStatus(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)

		// The report is a view over the transaction history: with no writes
		// in between, both reads must agree on every field, including the
		// category slice and alert order.
		if !reflect.DeepEqual(first, second) {
			t.Errorf("reports differ between reads:\nfirst:  %+v\nsecond: %+v", first, second)
		}
	})

	t.Run("invalid_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.GetBudgetStatus(user.ID, intPtr(2026), intPtr(13))
		testutil.AssertAppError(t, err, "INVALID_PERIOD")
	})
}

func TestValidateExpense(t *testing.T) {
	expenseNow := func(t *testing.T, userID string, categoryID *string, amount string) *models.Transaction {
		t.Helper()
		now := time.Now()
		return &models.Transaction{
			UserID:     userID,
			CategoryID: categoryID,
			Type:       models.TransactionTypeExpense,
			Amount:     dec(t, amount),
			Date:       &now,
		}
	}

	t.Run("income_always_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		testutil.CreateTestBudgetPreventExceed(t, db, user.ID, year, month, nil, "10")

		v, err := svc.ValidateExpense(user.ID, &models.Transaction{
			UserID: user.ID,
			Type:   models.TransactionTypeIncome,
			Amount: dec(t, "99999"),
		})
		testutil.AssertNoError(t, err)
		if !v.Allowed {
			t.Error("income must never be blocked")
		}
	})

	t.Run("within_budget_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		testutil.CreateTestBudgetPreventExceed(t, db, user.ID, year, month, nil, "100")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "40")

		v, err := svc.ValidateExpense(user.ID, expenseNow(t, user.ID, nil, "60"))
		testutil.AssertNoError(t, err)
		if !v.Allowed {
			t.Errorf("expense up to the limit should pass: %s", v.Message)
		}
		if v.Message != "" {
			t.Errorf("expected no warning, got %q", v.Message)
		}
	})

	t.Run("prevent_exceed_rejects", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		testutil.CreateTestBudgetPreventExceed(t, db, user.ID, year, month, nil, "100")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "40")

		v, err := svc.ValidateExpense(user.ID, expenseNow(t, user.ID, nil, "61"))
		testutil.AssertNoError(t, err)
		if v.Allowed {
			t.Fatal("expected rejection")
		}
		if !strings.Contains(v.Message, "overall") {
			t.Errorf("expected overall budget cited, got %q", v.Message)
		}
	})

	t.Run("warning_without_prevent_exceed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "100")

		v, err := svc.ValidateExpense(user.ID, expenseNow(t, user.ID, nil, "150"))
		testutil.AssertNoError(t, err)
		if !v.Allowed {
			t.Fatal("over-limit expense without prevent-exceed must be allowed")
		}
		if !strings.Contains(v.Message, "Warning") {
			t.Errorf("expected a warning message, got %q", v.Message)
		}
	})

	t.Run("category_rejection_beats_overall_warning", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		cat := testutil.CreateTestCategory(t, db, user.ID)

		// Overall budget warns, category budget blocks. The expense exceeds
		// both; the rejection wins and cites the category.
		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "50")
		testutil.CreateTestBudgetPreventExceed(t, db, user.ID, year, month, &cat.ID, "30")

		v, err := svc.ValidateExpense(user.ID, expenseNow(t, user.ID, &cat.ID, "60"))
		testutil.AssertNoError(t, err)
		if v.Allowed {
			t.Fatal("expected rejection from the category budget")
		}
		if !strings.Contains(v.Message, cat.Name) {
			t.Errorf("expected category %q cited, got %q", cat.Name, v.Message)
		}
	})

	t.Run("overall_rejection_short_circuits", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		cat := testutil.CreateTestCategory(t, db, user.ID)

		testutil.CreateTestBudgetPreventExceed(t, db, user.ID, year, month, nil, "50")
		testutil.CreateTestBudget(t, db, user.ID, year, month, &cat.ID, "30")

		v, err := svc.ValidateExpense(user.ID, expenseNow(t, user.ID, &cat.ID, "60"))
		testutil.AssertNoError(t, err)
		if v.Allowed {
			t.Fatal("expected rejection from the overall budget")
		}
		if !strings.Contains(v.Message, "overall") {
			t.Errorf("expected overall budget cited, got %q", v.Message)
		}
	})

	t.Run("first_warning_wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		cat := testutil.CreateTestCategory(t, db, user.ID)

		// Both scopes exceeded, neither blocks. The overall warning is kept.
		testutil.CreateTestBudget(t, db, user.ID, year, month, nil, "50")
		testutil.CreateTestBudget(t, db, user.ID, year, month, &cat.ID, "30")

		v, err := svc.ValidateExpense(user.ID, expenseNow(t, user.ID, &cat.ID, "60"))
		testutil.AssertNoError(t, err)
		if !v.Allowed {
			t.Fatal("warnings must not block")
		}
		if !strings.Contains(v.Message, "overall") {
			t.Errorf("expected the overall warning, got %q", v.Message)
		}
	})

	t.Run("no_budgets_allows_everything", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		v, err := svc.ValidateExpense(user.ID, expenseNow(t, user.ID, nil, "1000000"))
		testutil.AssertNoError(t, err)
		if !v.Allowed || v.Message != "" {
			t.Errorf("expected clean pass, got allowed=%v message=%q", v.Allowed, v.Message)
		}
	})
}

func TestGetMonthlySummary(t *testing.T) {
	t.Run("totals_savings_and_breakdown", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()
		groceries := testutil.CreateTestCategory(t, db, user.ID)
		travel := testutil.CreateTestCategory(t, db, user.ID)

		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeIncome, "1000")
		testutil.CreateTestTransaction(t, db, user.ID, &groceries.ID, models.TransactionTypeExpense, "300")
		testutil.CreateTestTransaction(t, db, user.ID, &travel.ID, models.TransactionTypeExpense, "100")
		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "100")

		summary, err := svc.GetMonthlySummary(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, "1000", summary.TotalIncome)
		testutil.AssertDecimalEqual(t, "500", summary.TotalExpenses)
		testutil.AssertDecimalEqual(t, "500", summary.Savings)
		if summary.SavingsPercentage != 50 {
			t.Errorf("expected 50%% savings, got %v", summary.SavingsPercentage)
		}
		if summary.BudgetStatus == nil {
			t.Fatal("expected embedded budget status")
		}

		// Breakdown covers categorised expenses only, largest first.
		if len(summary.CategoryExpenses) != 2 {
			t.Fatalf("expected 2 breakdown entries, got %d", len(summary.CategoryExpenses))
		}
		first := summary.CategoryExpenses[0]
		if first.CategoryID != groceries.ID {
			t.Errorf("expected groceries first, got %s", first.CategoryID)
		}
		testutil.AssertDecimalEqual(t, "300", first.Amount)
		if first.Percentage != 60 {
			t.Errorf("expected 60%% share, got %v", first.Percentage)
		}
	})

	t.Run("zero_income", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		year, month := currentPeriod()

		testutil.CreateTestTransaction(t, db, user.ID, nil, models.TransactionTypeExpense, "50")

		summary, err := svc.GetMonthlySummary(user.ID, intPtr(year), intPtr(month))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, "-50", summary.Savings)
		if summary.SavingsPercentage != 0 {
			t.Errorf("savings percentage must be 0 with no income, got %v", summary.SavingsPercentage)
		}
	})

	t.Run("empty_month", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		summary, err := svc.GetMonthlySummary(user.ID, intPtr(2026), intPtr(8))
		testutil.AssertNoError(t, err)

		testutil.AssertDecimalEqual(t, "0", summary.TotalIncome)
		testutil.AssertDecimalEqual(t, "0", summary.TotalExpenses)
		if len(summary.CategoryExpenses) != 0 {
			t.Errorf("expected empty breakdown, got %d entries", len(summary.CategoryExpenses))
		}
	})
}

func TestGetUserBudgets(t *testing.T) {
	t.Run("newest_period_first", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.CreateTestBudget(t, db, user.ID, 2026, 7, nil, "100")
		testutil.CreateTestBudget(t, db, user.ID, 2026, 9, nil, "100")
		testutil.CreateTestBudget(t, db, user.ID, 2025, 12, nil, "100")

		budgets, err := svc.GetUserBudgets(user.ID)
		testutil.AssertNoError(t, err)

		if len(budgets) != 3 {
			t.Fatalf("expected 3 budgets, got %d", len(budgets))
		}
		if budgets[0].Year != 2026 || budgets[0].Month != 9 {
			t.Errorf("expected 2026-9 first, got %d-%d", budgets[0].Year, budgets[0].Month)
		}
		if budgets[2].Year != 2025 {
			t.Errorf("expected 2025 last, got %d", budgets[2].Year)
		}
	})

	t.Run("scoped_to_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)

		testutil.CreateTestBudget(t, db, user.ID, 2026, 8, nil, "100")
		testutil.CreateTestBudget(t, db, other.ID, 2026, 8, nil, "100")

		budgets, err := svc.GetUserBudgets(user.ID)
		testutil.AssertNoError(t, err)
		if len(budgets) != 1 {
			t.Errorf("expected only the user's budget, got %d", len(budgets))
		}
	})
}

func TestGetBudgetsForMonth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBudgetService(db)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID)

	testutil.CreateTestBudget(t, db, user.ID, 2026, 8, nil, "500")
	testutil.CreateTestBudget(t, db, user.ID, 2026, 8, &cat.ID, "100")
	testutil.CreateTestBudget(t, db, user.ID, 2026, 9, nil, "500")

	budgets, err := svc.GetBudgetsForMonth(user.ID, intPtr(2026), intPtr(8))
	testutil.AssertNoError(t, err)
	if len(budgets) != 2 {
		t.Errorf("expected 2 budgets in 2026-8, got %d", len(budgets))
	}
}

func TestDeleteBudget(t *testing.T) {
	t.Run("deletes_owned_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestBudget(t, db, user.ID, 2026, 8, nil, "100")

		testutil.AssertNoError(t, svc.DeleteBudget(user.ID, b.ID))

		budgets, err := svc.GetUserBudgets(user.ID)
		testutil.AssertNoError(t, err)
		if len(budgets) != 0 {
			t.Errorf("expected no budgets after delete, got %d", len(budgets))
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)

		err := svc.DeleteBudget(user.ID, "0198c2f1-0000-7000-8000-000000000000")
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})

	t.Run("foreign_budget", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBudgetService(db)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestBudget(t, db, other.ID, 2026, 8, nil, "100")

		err := svc.DeleteBudget(user.ID, b.ID)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}
