package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const degToRad = math.Pi / 180

// Horizontal decomposes horizontal intensity H (nT) and declination D
// (degrees) into X = H cos D and Y = H sin D. Both outputs are missing when
// either input is.
func Horizontal(h, d Value) (x, y Value) {
	hv, okH := h.Get()
	dv, okD := d.Get()
	if !okH || !okD {
		return Missing(), Missing()
	}
	rad := dv * degToRad
	return Some(hv * math.Cos(rad)), Some(hv * math.Sin(rad))
}

// Vertical computes Z = H tan I from horizontal intensity (nT) and
// inclination (degrees). Its missingness depends only on H and I.
func Vertical(h, i Value) Value {
	hv, okH := h.Get()
	iv, okI := i.Get()
	if !okH || !okI {
		return Missing()
	}
	return Some(hv * math.Tan(iv*degToRad))
}

// ToGeographic converts one day of D, I (degrees) and H (nT) to X, Y, Z in nT.
func ToGeographic(d, i, h Value) (x, y, z Value) {
	x, y = Horizontal(h, d)
	return x, y, Vertical(h, i)
}

// dayValues holds the daily means reported for one date, indexed by element.
type dayValues map[Component]Value

// convertDay picks the conversion per output axis from what the observatory
// reports: Cartesian elements pass straight through, otherwise angles are
// converted. An element the observatory never reports yields missing.
func convertDay(reported ComponentSet, vals dayValues) (x, y, z Value) {
	switch {
	case reported.Has(ComponentX, ComponentY):
		x, y = vals[ComponentX], vals[ComponentY]
	case reported.Has(ComponentD, ComponentH):
		x, y = Horizontal(vals[ComponentH], vals[ComponentD])
	}

	switch {
	case reported.Has(ComponentZ):
		z = vals[ComponentZ]
	case reported.Has(ComponentI, ComponentH):
		z = Vertical(vals[ComponentH], vals[ComponentI])
	}
	return x, y, z
}

// BuildXYZSeries pivots daily means into a geographic daily series covering
// every day from the first to the last date present. Days with no records are
// rows of missing values.
func BuildXYZSeries(means []DailyMean) (XYZSeries, error) {
	if len(means) == 0 {
		return XYZSeries{}, nil
	}

	observatory := means[0].Observatory
	var reported ComponentSet
	byDate := make(map[time.Time]dayValues)

	for _, m := range means {
		if m.Observatory != observatory {
			return XYZSeries{}, fmt.Errorf("build xyz series: %w: %s and %s", ErrMixedObservatory, observatory, m.Observatory)
		}
		reported = reported.Add(m.Component)
		day, ok := byDate[m.Date]
		if !ok {
			day = make(dayValues, 4)
			byDate[m.Date] = day
		}
		day[m.Component] = m.Mean
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rows := make([]XYZRow, 0, len(dates))
	for _, d := range dates {
		x, y, z := convertDay(reported, byDate[d])
		rows = append(rows, XYZRow{Date: d, X: x, Y: y, Z: z})
	}

	return XYZSeries{Observatory: observatory, Rows: fillDays(rows)}, nil
}
