package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ActivityIndex holds one planetary activity (Ap) value per UTC day.
type ActivityIndex map[time.Time]float64

// activityLayouts are the date forms accepted in index files. Sub-daily
// entries are folded into their calendar day.
var activityLayouts = []string{time.DateOnly, time.DateTime, "2006-01-02T15:04:05", time.RFC3339}

// ParseActivityIndexCSV reads "date,ap" rows. A day listed more than once
// (an hourly index) keeps its largest value. A leading header row and lines
// starting with '#' are ignored.
func ParseActivityIndexCSV(r io.Reader) (ActivityIndex, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	index := make(ActivityIndex)
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse activity index: %w", err)
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}
		day, err := parseDay(rec[0], activityLayouts)
		if err != nil {
			return nil, fmt.Errorf("parse activity index row %d: %w", row, err)
		}
		ap, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse activity index row %d: ap %q: %w", row, rec[1], ErrInvalidNumber)
		}
		if prev, ok := index[day]; !ok || ap > prev {
			index[day] = ap
		}
	}
	return index, nil
}

// ActivityFilter masks geomagnetically disturbed days.
type ActivityFilter struct {
	Index     ActivityIndex
	Threshold float64
}

// ActivityMask counts the days an ActivityFilter blanked.
type ActivityMask struct {
	Disturbed int `json:"disturbed"`
	Unindexed int `json:"unindexed"`
}

// ApplyActivityThreshold blanks every component on days whose Ap exceeds the
// threshold and on days the index does not cover, so neither contributes to
// period means. Rows that are already entirely missing are not counted. The
// input series is not modified.
func ApplyActivityThreshold(series XYZSeries, f ActivityFilter) (XYZSeries, ActivityMask) {
	out := XYZSeries{Observatory: series.Observatory, Rows: make([]XYZRow, len(series.Rows))}
	copy(out.Rows, series.Rows)

	var mask ActivityMask
	for i, row := range out.Rows {
		if !row.X.Valid() && !row.Y.Valid() && !row.Z.Valid() {
			continue
		}
		ap, ok := f.Index[row.Date]
		switch {
		case !ok:
			mask.Unindexed++
		case ap > f.Threshold:
			mask.Disturbed++
		default:
			continue
		}
		out.Rows[i] = XYZRow{Date: row.Date}
	}
	return out, mask
}

// Exclusion names one component value to drop from an observatory's daily
// series.
type Exclusion struct {
	Date        time.Time
	Observatory string
	Component   Component
}

// ParseExclusionsCSV reads "date,observatory,component" rows, for example
// "2015-01-01,ngk,X". Only the geographic components X, Y and Z can be
// excluded.
func ParseExclusionsCSV(r io.Reader) ([]Exclusion, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	var out []Exclusion
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse exclusions: %w", err)
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}
		day, err := parseDay(rec[0], []string{time.DateOnly})
		if err != nil {
			return nil, fmt.Errorf("parse exclusions row %d: %w", row, err)
		}
		obs := strings.ToUpper(strings.TrimSpace(rec[1]))
		if obs == "" {
			return nil, fmt.Errorf("parse exclusions row %d: %w", row, ErrMissingCode)
		}
		var c Component
		if err := c.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(rec[2])))); err != nil {
			return nil, fmt.Errorf("parse exclusions row %d: %w", row, err)
		}
		if c != ComponentX && c != ComponentY && c != ComponentZ {
			return nil, fmt.Errorf("parse exclusions row %d: %w: %s is not a geographic component", row, ErrUnknownComponent, c)
		}
		out = append(out, Exclusion{Date: day, Observatory: obs, Component: c})
	}
	return out, nil
}

// ApplyExclusions blanks the listed values of the series' observatory and
// returns how many present values were removed. Entries for other
// observatories or for dates outside the series are ignored.
func ApplyExclusions(series XYZSeries, exclusions []Exclusion) (XYZSeries, int) {
	out := XYZSeries{Observatory: series.Observatory, Rows: make([]XYZRow, len(series.Rows))}
	copy(out.Rows, series.Rows)
	if len(out.Rows) == 0 {
		return out, 0
	}

	first := out.Rows[0].Date
	removed := 0
	for _, e := range exclusions {
		if !strings.EqualFold(e.Observatory, series.Observatory) {
			continue
		}
		i := int(e.Date.Sub(first).Hours() / 24)
		if i < 0 || i >= len(out.Rows) || !out.Rows[i].Date.Equal(e.Date) {
			continue
		}
		v := out.Rows[i].component(e.Component)
		if v.Valid() {
			*v = Missing()
			removed++
		}
	}
	return out, removed
}

// component returns a pointer to the row's X, Y or Z value.
func (r *XYZRow) component(c Component) *Value {
	switch c {
	case ComponentX:
		return &r.X
	case ComponentY:
		return &r.Y
	default:
		return &r.Z
	}
}

func parseDay(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q: %w", s, ErrInvalidDate)
}
