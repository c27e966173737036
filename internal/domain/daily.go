package domain

import (
	"fmt"
	"time"
)

// AggregateOptions controls daily-mean computation.
type AggregateOptions struct {
	// MinValidHours is the fewest non-missing hours that still yield a mean.
	// The WDC convention, and the default, is 1.
	MinValidHours int
	// UseTabularMean takes the file's own daily-mean column instead of
	// averaging the hourly slots.
	UseTabularMean bool
}

// DefaultAggregateOptions mirrors the historical WDC convention.
func DefaultAggregateOptions() AggregateOptions {
	return AggregateOptions{MinValidHours: 1}
}

// DailyMeanOf computes base + mean(valid hourly values). The result is
// missing when the base is missing or too few hours are present, regardless
// of everything else.
func DailyMeanOf(rec DatedRecord, opts AggregateOptions) DailyMean {
	var m mean
	for _, v := range rec.Hourly {
		m.add(v)
	}

	out := DailyMean{
		Observatory: rec.Observatory,
		Date:        rec.Date,
		Component:   rec.Component,
		ValidHours:  m.count,
	}

	minValid := max(opts.MinValidHours, 1)
	if m.count < minValid {
		return out
	}

	if opts.UseTabularMean {
		out.Mean = rec.Base.Add(rec.TabularMean)
		return out
	}
	out.Mean = rec.Base.Add(m.value())
	return out
}

type dayKey struct {
	date      time.Time
	component Component
}

// Aggregate computes one DailyMean per record. Records from a second
// observatory yield ErrMixedObservatory; a second record for the same day and
// element is a *ParseError.
func Aggregate(records []DatedRecord, opts AggregateOptions) ([]DailyMean, error) {
	out := make([]DailyMean, 0, len(records))
	seen := make(map[dayKey]int, len(records))

	for _, rec := range records {
		if first := records[0].Observatory; rec.Observatory != first {
			return nil, fmt.Errorf("aggregate %s:%d: %w: %s and %s", rec.Source, rec.Line, ErrMixedObservatory, first, rec.Observatory)
		}
		key := dayKey{date: rec.Date, component: rec.Component}
		if first, dup := seen[key]; dup {
			return nil, &ParseError{
				Source: rec.Source,
				Line:   rec.Line,
				Start:  -1,
				Err:    fmt.Errorf("%w: %s %s already on line %d", ErrDuplicateRecord, rec.Component, rec.Date.Format(time.DateOnly), first),
			}
		}
		seen[key] = rec.Line
		out = append(out, DailyMeanOf(rec, opts))
	}
	return out, nil
}
