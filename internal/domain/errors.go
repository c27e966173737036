package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownComponent = errors.New("unknown element code")
	ErrInvalidNumber    = errors.New("invalid numeric field")
	ErrUnknownCentury   = errors.New("unrecognised century marker")
	ErrShortRecord      = errors.New("record shorter than fixed layout")
	ErrMissingCode      = errors.New("missing observatory code")
	ErrDuplicateRecord  = errors.New("duplicate record")
	ErrMixedObservatory = errors.New("records from more than one observatory")
	ErrInvalidDate      = errors.New("invalid date")
)

// ParseError reports a malformed WDC record. It is fatal for the file.
type ParseError struct {
	Source string
	Line   int
	Field  string
	Start  int // 0-based column, -1 when not tied to a field
	End    int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Start >= 0 {
		return fmt.Sprintf("parse %s:%d: %s (cols %d-%d): %v", e.Source, e.Line, e.Field, e.Start, e.End, e.Err)
	}
	return fmt.Sprintf("parse %s:%d: %v", e.Source, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DateError reports an impossible calendar date in a record.
type DateError struct {
	Source string
	Line   int
	Year   int
	Month  int
	Day    int
	Reason string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("date %s:%d: %04d-%02d-%02d: %s", e.Source, e.Line, e.Year, e.Month, e.Day, e.Reason)
}
