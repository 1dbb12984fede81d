// Package period resolves optional (year, month) pairs to concrete calendar
// months and their date ranges. All transaction queries for a period use the
// inclusive first-day/last-day bounds computed here.
package period

import (
	"fmt"
	"time"

	apperrors "fintrack/internal/errors"
)

// Month is a concrete calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// Resolve normalizes an optional year/month pair to a calendar month.
// Absent values default from now. A month outside 1-12 is rejected.
func Resolve(year, month *int, now time.Time) (Month, error) {
	y := now.Year()
	m := int(now.Month())
	if year != nil {
		y = *year
	}
	if month != nil {
		m = *month
	}

	if m < 1 || m > 12 {
		return Month{}, apperrors.ErrInvalidPeriod
	}

	return Month{Year: y, Month: time.Month(m)}, nil
}

// Of returns the calendar month a date falls in.
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Range returns the month's first and last day as inclusive bounds. The end
// bound sits at the last nanosecond of the last day so that rows carrying a
// time of day still match a closed BETWEEN filter.
func (m Month) Range() (start, end time.Time) {
	start = time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
