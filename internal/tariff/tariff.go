// Package tariff holds time-bucketed rate tables (energy prices, grid
// carbon intensity) and accrues a constant hourly energy draw against them.
package tariff

import (
	"errors"
	"fmt"
	"time"
)

// HoursPerDay is the number of hour columns in every bucketed table.
const HoursPerDay = 24

// ErrShape is returned when a table does not have the expected dimensions.
var ErrShape = errors.New("tariff table has the wrong shape")

// Bucketing selects the category axis of a table.
type Bucketing int

const (
	// ByWeekday has two rows: 0 for weekdays, 1 for weekends.
	// Used for energy prices.
	ByWeekday Bucketing = iota + 1

	// ByMonth has twelve rows, January first.
	// Used for carbon intensity.
	ByMonth
)

// Rows returns the number of category rows the bucketing requires.
func (b Bucketing) Rows() int {
	switch b {
	case ByWeekday:
		return 2
	case ByMonth:
		return 12
	default:
		return 0
	}
}

// String returns the bucketing name.
func (b Bucketing) String() string {
	switch b {
	case ByWeekday:
		return "weekday"
	case ByMonth:
		return "month"
	default:
		return fmt.Sprintf("Bucketing(%d)", int(b))
	}
}

// category returns the row index of t.
func (b Bucketing) category(t time.Time) int {
	switch b {
	case ByWeekday:
		if IsWeekend(t) {
			return 1
		}
		return 0
	case ByMonth:
		return int(t.Month()) - 1
	default:
		return 0
	}
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Table is either a single scalar rate or a rate per (category, hour).
// The zero value is a scalar table with rate 0.
type Table struct {
	bucketing Bucketing
	scalar    float64
	rows      [][]float64
}

// Scalar returns a table with one fixed rate.
func Scalar(rate float64) Table {
	return Table{scalar: rate}
}

// NewTable returns a bucketed table. rows must have b.Rows() rows of
// HoursPerDay columns each. The rows are copied.
func NewTable(b Bucketing, rows [][]float64) (Table, error) {
	want := b.Rows()
	if want == 0 {
		return Table{}, fmt.Errorf("%w: unknown bucketing %s", ErrShape, b)
	}
	if len(rows) != want {
		return Table{}, fmt.Errorf("%w: %s table needs %d rows, got %d", ErrShape, b, want, len(rows))
	}

	cp := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != HoursPerDay {
			return Table{}, fmt.Errorf("%w: row %d has %d hour columns, want %d", ErrShape, i, len(row), HoursPerDay)
		}
		cp[i] = append([]float64(nil), row...)
	}
	return Table{bucketing: b, rows: cp}, nil
}

// IsScalar reports whether the table holds a single rate.
func (t Table) IsScalar() bool {
	return t.rows == nil
}

// Bucketing returns the category axis, or 0 for scalar tables.
func (t Table) Bucketing() Bucketing {
	return t.bucketing
}

// Rate returns the rate in effect at ts. Scalar tables ignore ts.
func (t Table) Rate(ts time.Time) float64 {
	if t.IsScalar() {
		return t.scalar
	}
	return t.rows[t.bucketing.category(ts)][ts.Hour()]
}

// Accrue charges a constant draw of perHour units per hour over
// [start, end] and returns the total.
//
// The interval is walked in one-hour steps from start. Each step is priced
// at the rate in effect at its beginning and weighted by the fraction of
// the hour it covers, clipped to end, so a step never overlaps the next.
func (t Table) Accrue(start, end time.Time, perHour float64) float64 {
	total := 0.0
	for cur := start; !cur.After(end); cur = cur.Add(time.Hour) {
		next := cur.Add(time.Hour)
		if next.After(end) {
			next = end
		}
		fraction := next.Sub(cur).Hours()
		total += t.Rate(cur) * perHour * fraction
	}
	return total
}
