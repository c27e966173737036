package domain

import (
	"errors"
	"fmt"
	"time"
)

// centuryBase enumerates the WDC century markers. The parser only produces
// these values; anything else is rejected rather than extrapolated.
var centuryBase = map[int]int{
	18: 1800, // old format, column 16 = "8"
	19: 1900, // "19", or old format with column 16 blank
	20: 2000, // "20"
}

// DateErrorPolicy decides what happens to a record with an impossible date.
type DateErrorPolicy string

const (
	// DateErrorSkip drops the record and reports it alongside the results.
	DateErrorSkip DateErrorPolicy = "skip"
	// DateErrorAbort fails the whole file on the first bad date.
	DateErrorAbort DateErrorPolicy = "abort"
)

// ParseDateErrorPolicy validates a policy name.
func ParseDateErrorPolicy(s string) (DateErrorPolicy, error) {
	switch p := DateErrorPolicy(s); p {
	case DateErrorSkip, DateErrorAbort:
		return p, nil
	default:
		return "", fmt.Errorf("unknown date error policy %q", s)
	}
}

// ResolveYear combines century digits with a two-digit year.
func ResolveYear(century, yearSuffix int) (int, error) {
	base, ok := centuryBase[century]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCentury, century)
	}
	if yearSuffix < 0 || yearSuffix > 99 {
		return 0, &DateError{Reason: fmt.Sprintf("year suffix %d out of range", yearSuffix)}
	}
	return base + yearSuffix, nil
}

// ResolveDate builds the UTC calendar date of a record. Impossible dates are
// reported as *DateError, never clamped.
func ResolveDate(century, yearSuffix, month, day int) (time.Time, error) {
	year, err := ResolveYear(century, yearSuffix)
	if err != nil {
		return time.Time{}, err
	}
	if month < 1 || month > 12 {
		return time.Time{}, &DateError{Year: year, Month: month, Day: day, Reason: "month out of range"}
	}
	if last := daysIn(year, time.Month(month)); day < 1 || day > last {
		return time.Time{}, &DateError{Year: year, Month: month, Day: day, Reason: fmt.Sprintf("day out of range 1-%d", last)}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// AttachDates resolves the date of every record. Under DateErrorSkip bad
// records are dropped and returned as the second result; under DateErrorAbort
// the first bad date is returned as the error.
func AttachDates(records []RawRecord, policy DateErrorPolicy) ([]DatedRecord, []*DateError, error) {
	dated := make([]DatedRecord, 0, len(records))
	var skipped []*DateError

	for _, rec := range records {
		date, err := ResolveDate(rec.Century, rec.YearSuffix, rec.Month, rec.Day)
		if err != nil {
			var de *DateError
			if !errors.As(err, &de) {
				return nil, nil, &ParseError{Source: rec.Source, Line: rec.Line, Field: colCentury.name, Start: colCentury.start, End: colCentury.end, Err: err}
			}
			de.Source, de.Line = rec.Source, rec.Line
			if policy == DateErrorAbort {
				return nil, nil, de
			}
			skipped = append(skipped, de)
			continue
		}
		dated = append(dated, DatedRecord{RawRecord: rec, Date: date})
	}
	return dated, skipped, nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
