package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period is a calendar-aligned averaging window.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodAnnual  Period = "annual"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodMonthly, PeriodAnnual:
		return p, nil
	default:
		return "", fmt.Errorf("unknown resampling period %q", s)
	}
}

// Start returns the first day of the window containing t.
func (p Period) Start(t time.Time) time.Time {
	t = t.UTC()
	if p == PeriodAnnual {
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Add shifts a window start by n periods.
func (p Period) Add(start time.Time, n int) time.Time {
	if p == PeriodAnnual {
		return start.AddDate(n, 0, 0)
	}
	return start.AddDate(0, n, 0)
}

// Middle returns the representative mid-window date: the 15th of the month,
// or 1 July of the year.
func (p Period) Middle(start time.Time) time.Time {
	if p == PeriodAnnual {
		return time.Date(start.Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(start.Year(), start.Month(), 15, 0, 0, 0, 0, time.UTC)
}

// PerYear is the number of windows in a year.
func (p Period) PerYear() int {
	if p == PeriodAnnual {
		return 1
	}
	return 12
}

// Resample averages a daily series over calendar windows. Each component is
// averaged over its own valid days; a component without any valid day in a
// window is missing for that row. A window where all three components are
// missing is omitted from the output altogether.
func Resample(series XYZSeries, period Period) ResampledSeries {
	out := ResampledSeries{
		Observatory: series.Observatory,
		Period:      period,
		Quantity:    QuantityField,
	}

	var (
		current time.Time
		x, y, z mean
		open    bool
	)
	flush := func() {
		if !open {
			return
		}
		row := ResampledRow{PeriodStart: current, X: x.value(), Y: y.value(), Z: z.value()}
		if row.X.Valid() || row.Y.Valid() || row.Z.Valid() {
			out.Rows = append(out.Rows, row)
		}
		x, y, z = mean{}, mean{}, mean{}
	}

	for _, row := range series.Rows {
		start := period.Start(row.Date)
		if !open || !start.Equal(current) {
			flush()
			current, open = start, true
		}
		x.add(row.X)
		y.add(row.Y)
		z.add(row.Z)
	}
	flush()

	return out
}
