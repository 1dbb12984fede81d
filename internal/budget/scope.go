// Package budget holds the scope variant shared by the evaluation engine
// and the store queries: a budget constrains either the user's whole month
// or a single category's share of it.
package budget

// OverallLabel is the scope identifier used in alerts for the whole-month
// budget.
const OverallLabel = "OVERALL"

// Scope is a tagged variant: either the overall monthly budget or one
// category's budget. The zero value is the overall scope.
type Scope struct {
	categoryID string
	isCategory bool
}

// Overall returns the whole-month scope.
func Overall() Scope {
	return Scope{}
}

// ForCategory returns the scope of a single category's budget.
func ForCategory(categoryID string) Scope {
	return Scope{categoryID: categoryID, isCategory: true}
}

// ForBudgetRow maps a stored category reference to a scope.
func ForBudgetRow(categoryID *string) Scope {
	if categoryID == nil {
		return Overall()
	}
	return ForCategory(*categoryID)
}

// CategoryID returns the category id and true for category scopes.
func (s Scope) CategoryID() (string, bool) {
	return s.categoryID, s.isCategory
}

// IsOverall reports whether the scope covers the whole month.
func (s Scope) IsOverall() bool {
	return !s.isCategory
}

// Label is the scope identifier embedded in alert and validation messages:
// the literal "OVERALL" or the category id.
func (s Scope) Label() string {
	if s.isCategory {
		return s.categoryID
	}
	return OverallLabel
}
