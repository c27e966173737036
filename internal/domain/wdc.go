package domain

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// RecordWidth is the full width of a WDC hourly record.
	RecordWidth = 120
	// minRecordWidth allows the trailing daily-mean field to be trimmed.
	minRecordWidth = 116

	// missingReading is the WDC "no data" code for every four-column slot.
	missingReading = 9999

	hourlyStart = 20
	hourlyWidth = 4

	// angularScale converts tenths of arc-minutes to degrees.
	angularScale = 600.0
	// intensityBaseScale converts a tabular base in hundreds of nT to nT.
	intensityBaseScale = 100.0
)

// column is a fixed field position, 0-based and end-exclusive.
type column struct {
	name       string
	start, end int
}

var (
	colCode    = column{"observatory", 0, 3}
	colYear    = column{"year", 3, 5}
	colMonth   = column{"month", 5, 7}
	colElement = column{"element", 7, 8}
	colDay     = column{"day", 8, 10}
	colCentury = column{"century", 14, 16}
	colBase    = column{"base", 16, 20}
	colMean    = column{"daily mean", 116, 120}
)

func hourColumn(h int) column {
	start := hourlyStart + h*hourlyWidth
	return column{name: fmt.Sprintf("hour %02d", h), start: start, end: start + hourlyWidth}
}

// ParseWDC reads every record in a WDC hourly-mean file. Blank lines are
// skipped. The first malformed record aborts parsing with a *ParseError;
// source names the input in error messages.
func ParseWDC(r io.Reader, source string) ([]RawRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var records []RawRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := ParseRecord(line, source, lineNo)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return records, nil
}

// ParseRecord parses a single WDC line by absolute column offset.
func ParseRecord(line, source string, lineNo int) (RawRecord, error) {
	p := lineParser{source: source, line: lineNo}

	if len(line) < minRecordWidth {
		return RawRecord{}, &ParseError{Source: source, Line: lineNo, Start: -1, Err: fmt.Errorf("%w: %d columns", ErrShortRecord, len(line))}
	}
	if len(line) < RecordWidth {
		line += strings.Repeat(" ", RecordWidth-len(line))
	}
	p.text = line

	rec := RawRecord{Source: source, Line: lineNo}

	rec.Observatory = strings.ToUpper(strings.TrimSpace(p.field(colCode)))
	if rec.Observatory == "" {
		return RawRecord{}, p.errorf(colCode, ErrMissingCode)
	}

	comp, err := ParseComponent(line[colElement.start])
	if err != nil {
		return RawRecord{}, p.errorf(colElement, err)
	}
	rec.Component = comp

	if rec.YearSuffix, err = p.integer(colYear); err != nil {
		return RawRecord{}, err
	}
	if rec.Month, err = p.integer(colMonth); err != nil {
		return RawRecord{}, err
	}
	if rec.Day, err = p.integer(colDay); err != nil {
		return RawRecord{}, err
	}
	if rec.Century, err = parseCentury(p.field(colCentury)); err != nil {
		return RawRecord{}, p.errorf(colCentury, err)
	}

	base, err := p.reading(colBase)
	if err != nil {
		return RawRecord{}, err
	}
	rec.Base = scaleBase(comp, base)

	for h := range HoursPerDay {
		v, err := p.reading(hourColumn(h))
		if err != nil {
			return RawRecord{}, err
		}
		rec.Hourly[h] = scaleReading(comp, v)
	}

	tabular, err := p.reading(colMean)
	if err != nil {
		return RawRecord{}, err
	}
	rec.TabularMean = scaleReading(comp, tabular)

	return rec, nil
}

// parseCentury maps the two century columns to the century digits. Only the
// markers documented for the WDC format are accepted.
func parseCentury(field string) (int, error) {
	switch field {
	case "19":
		return 19, nil
	case "20":
		return 20, nil
	}
	switch field[0] {
	case ' ', 'Q', 'D', 'q', 'd':
		switch field[1] {
		case ' ':
			return 19, nil
		case '8':
			return 18, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCentury, field)
}

func scaleBase(c Component, v Value) Value {
	if c.Angular() {
		return v
	}
	return v.Scale(intensityBaseScale)
}

func scaleReading(c Component, v Value) Value {
	if c.Angular() {
		return v.Scale(1 / angularScale)
	}
	return v
}

type lineParser struct {
	source string
	line   int
	text   string
}

func (p lineParser) field(c column) string {
	return p.text[c.start:c.end]
}

func (p lineParser) errorf(c column, err error) *ParseError {
	return &ParseError{Source: p.source, Line: p.line, Field: c.name, Start: c.start, End: c.end, Err: err}
}

// integer parses a required numeric field.
func (p lineParser) integer(c column) (int, error) {
	s := strings.TrimSpace(p.field(c))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, p.errorf(c, fmt.Errorf("%w: %q", ErrInvalidNumber, p.field(c)))
	}
	return n, nil
}

// reading parses a four-column data slot. Blank slots and 9999 are missing.
func (p lineParser) reading(c column) (Value, error) {
	s := strings.TrimSpace(p.field(c))
	if s == "" {
		return Missing(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Missing(), p.errorf(c, fmt.Errorf("%w: %q", ErrInvalidNumber, p.field(c)))
	}
	if n == missingReading {
		return Missing(), nil
	}
	return Some(float64(n)), nil
}
