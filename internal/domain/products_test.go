package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProducts(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { SetClock(nil) })

	var daily XYZSeries
	daily.Observatory = "TST"
	for d := day(1999, 1, 1); d.Before(day(2001, 1, 1)); d = d.AddDate(0, 0, 1) {
		// X grows by 1 nT per month.
		months := (d.Year()-1999)*12 + int(d.Month()) - 1
		daily.Rows = append(daily.Rows, XYZRow{Date: d, X: Some(float64(months)), Y: Some(0), Z: Some(40000)})
	}

	products, err := BuildProducts(daily, ProductOptions{
		Periods:   []Period{PeriodMonthly, PeriodAnnual},
		SVSpacing: 12,
		Jumps: []BaselineJump{
			{Observatory: "TST", Year: 2000, Z: 100},
			{Observatory: "TST", Year: 1980},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "TST", products.Observatory)
	assert.Equal(t, fixed, products.ProcessedAt)
	require.Len(t, products.SkippedJumps, 1)

	require.Len(t, products.Resampled, 2)
	require.Len(t, products.SV, 2)

	monthly := products.Resampled[0]
	assert.Equal(t, PeriodMonthly, monthly.Period)
	require.Len(t, monthly.Rows, 24)
	assert.InDelta(t, 39900.0, valueOf(t, monthly.Rows[0].Z), 1e-9, "baseline jump applied before 2000")
	assert.InDelta(t, 40000.0, valueOf(t, monthly.Rows[12].Z), 1e-9)

	monthlySV := products.SV[0]
	assert.Equal(t, QuantitySV, monthlySV.Quantity)
	require.Len(t, monthlySV.Rows, 12)
	assert.InDelta(t, 12.0, valueOf(t, monthlySV.Rows[0].X), 1e-9)
	assert.InDelta(t, 100.0, valueOf(t, monthlySV.Rows[0].Z), 1e-9)

	annualSV := products.SV[1]
	assert.Equal(t, PeriodAnnual, annualSV.Period)
	require.Len(t, annualSV.Rows, 1)
	assert.Equal(t, day(2000, 1, 1), annualSV.Rows[0].PeriodStart)
	assert.InDelta(t, 100.0, valueOf(t, annualSV.Rows[0].Z), 1e-9)
}

func TestBuildProducts_InvalidSpacing(t *testing.T) {
	daily := XYZSeries{Observatory: "TST", Rows: []XYZRow{{Date: day(2000, 1, 1), X: Some(1)}}}
	_, err := BuildProducts(daily, ProductOptions{Periods: []Period{PeriodMonthly}, SVSpacing: 0})
	assert.Error(t, err)
}

func TestSpacingFor(t *testing.T) {
	assert.Equal(t, 12, spacingFor(PeriodMonthly, 12))
	assert.Equal(t, 1, spacingFor(PeriodAnnual, 12))
	assert.Equal(t, 1, spacingFor(PeriodAnnual, 1))
	assert.Equal(t, 2, spacingFor(PeriodAnnual, 24))
}

func TestBuildProducts_CleaningFilters(t *testing.T) {
	var daily XYZSeries
	daily.Observatory = "TST"
	index := make(ActivityIndex)
	for d := day(2000, 1, 1); d.Before(day(2000, 3, 1)); d = d.AddDate(0, 0, 1) {
		daily.Rows = append(daily.Rows, XYZRow{Date: d, X: Some(float64(d.Day())), Y: Some(0), Z: Some(0)})
		index[d] = 5
	}
	index[day(2000, 1, 31)] = 100

	products, err := BuildProducts(daily, ProductOptions{
		Periods:    []Period{PeriodMonthly},
		SVSpacing:  1,
		Activity:   &ActivityFilter{Index: index, Threshold: 20},
		Exclusions: []Exclusion{{Date: day(2000, 2, 1), Observatory: "tst", Component: ComponentX}},
	})
	require.NoError(t, err)

	assert.Equal(t, ActivityMask{Disturbed: 1}, products.Activity)
	assert.Equal(t, 1, products.Excluded)
	assert.False(t, products.Daily.Rows[30].Z.Valid(), "disturbed day blanked in the daily product")

	monthly := products.Resampled[0].Rows
	require.Len(t, monthly, 2)
	assert.InDelta(t, 15.5, valueOf(t, monthly[0].X), 1e-9, "January without the 31st")
	assert.InDelta(t, 15.5, valueOf(t, monthly[1].X), 1e-9, "February without the 1st")
	assert.InDelta(t, 0.0, valueOf(t, monthly[1].Y), 1e-9)
}
