package domain

import (
	"sort"
	"time"
)

// fillDays inserts all-missing rows so that consecutive rows are exactly one
// calendar day apart. Input must be sorted with unique dates.
func fillDays(rows []XYZRow) []XYZRow {
	if len(rows) < 2 {
		return rows
	}
	first, last := rows[0].Date, rows[len(rows)-1].Date
	span := int(last.Sub(first).Hours()/24) + 1
	if span == len(rows) {
		return rows
	}

	out := make([]XYZRow, 0, span)
	i := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if i < len(rows) && rows[i].Date.Equal(d) {
			out = append(out, rows[i])
			i++
			continue
		}
		out = append(out, XYZRow{Date: d})
	}
	return out
}

// MergeSeries combines the per-file series of one observatory into a single
// continuous daily series. When files overlap, the row from the earlier part
// wins and the conflicting dates are returned. All-missing filler rows never
// count as conflicts.
func MergeSeries(observatory string, parts []XYZSeries) (XYZSeries, []time.Time) {
	byDate := make(map[time.Time]XYZRow)
	var conflicts []time.Time

	for _, part := range parts {
		for _, row := range part.Rows {
			existing, ok := byDate[row.Date]
			switch {
			case !ok:
				byDate[row.Date] = row
			case rowEmpty(existing):
				byDate[row.Date] = row
			case !rowEmpty(row):
				conflicts = append(conflicts, row.Date)
			}
		}
	}

	rows := make([]XYZRow, 0, len(byDate))
	for _, row := range byDate {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Before(conflicts[j]) })

	return XYZSeries{Observatory: observatory, Rows: fillDays(rows)}, conflicts
}

// FirstDifference returns day-to-day differences (nT/day), dated at the later
// day. Components missing on either day are missing.
func FirstDifference(series XYZSeries) XYZSeries {
	out := XYZSeries{Observatory: series.Observatory}
	for i := 1; i < len(series.Rows); i++ {
		prev, cur := series.Rows[i-1], series.Rows[i]
		if !cur.Date.Equal(prev.Date.AddDate(0, 0, 1)) {
			continue
		}
		out.Rows = append(out.Rows, XYZRow{
			Date: cur.Date,
			X:    cur.X.Sub(prev.X),
			Y:    cur.Y.Sub(prev.Y),
			Z:    cur.Z.Sub(prev.Z),
		})
	}
	return out
}

func rowEmpty(r XYZRow) bool {
	return !r.X.Valid() && !r.Y.Valid() && !r.Z.Valid()
}
