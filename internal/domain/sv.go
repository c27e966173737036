package domain

import (
	"fmt"
	"time"
)

// SecularVariation differences period means that lie spacing periods apart
// and scales the result to nT/yr. With monthly means, spacing 1 gives first
// differences and spacing 12 gives annual differences of monthly means.
//
// The difference is dated halfway between the two means: the later window
// start moved back spacing/2 periods, on day 1 for odd spacings and
// mid-window for even ones. Differencing January 2000 and January 1999
// yields the SV for 15 July 1999.
//
// Partners are looked up by calendar, so a window omitted by Resample
// produces no SV row instead of pairing with the wrong neighbour.
func SecularVariation(in ResampledSeries, spacing int) (ResampledSeries, error) {
	if spacing < 1 {
		return ResampledSeries{}, fmt.Errorf("secular variation: spacing must be positive, got %d", spacing)
	}

	out := ResampledSeries{
		Observatory: in.Observatory,
		Period:      in.Period,
		Quantity:    QuantitySV,
	}

	byStart := make(map[time.Time]ResampledRow, len(in.Rows))
	for _, row := range in.Rows {
		byStart[row.PeriodStart] = row
	}

	scale := float64(in.Period.PerYear()) / float64(spacing)
	for _, row := range in.Rows {
		prev, ok := byStart[in.Period.Add(row.PeriodStart, -spacing)]
		if !ok {
			continue
		}
		sv := ResampledRow{
			PeriodStart: svDate(in.Period, row.PeriodStart, spacing),
			X:           row.X.Sub(prev.X).Scale(scale),
			Y:           row.Y.Sub(prev.Y).Scale(scale),
			Z:           row.Z.Sub(prev.Z).Scale(scale),
		}
		if sv.X.Valid() || sv.Y.Valid() || sv.Z.Valid() {
			out.Rows = append(out.Rows, sv)
		}
	}
	return out, nil
}

func svDate(p Period, later time.Time, spacing int) time.Time {
	shifted := p.Add(later, -(spacing / 2))
	if spacing%2 == 1 {
		return shifted
	}
	return p.Middle(shifted)
}
