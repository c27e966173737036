package domain

import (
	"fmt"
	"time"
)

// HoursPerDay is the number of hourly slots in one WDC record.
const HoursPerDay = 24

// Component is a geomagnetic field element code.
type Component byte

const (
	ComponentX Component = 'X' // geographic north, nT
	ComponentY Component = 'Y' // geographic east, nT
	ComponentZ Component = 'Z' // vertical down, nT
	ComponentD Component = 'D' // declination, degrees
	ComponentI Component = 'I' // inclination, degrees
	ComponentH Component = 'H' // horizontal intensity, nT
	ComponentF Component = 'F' // total intensity, nT
)

// ParseComponent maps a WDC element character to a Component.
func ParseComponent(c byte) (Component, error) {
	switch Component(c) {
	case ComponentX, ComponentY, ComponentZ, ComponentD, ComponentI, ComponentH, ComponentF:
		return Component(c), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownComponent, c)
	}
}

// Angular reports whether the element is stored as an angle (D or I).
func (c Component) Angular() bool {
	return c == ComponentD || c == ComponentI
}

func (c Component) String() string { return string(rune(c)) }

// MarshalText encodes the element as its one-letter code.
func (c Component) MarshalText() ([]byte, error) { return []byte{byte(c)}, nil }

// UnmarshalText decodes a one-letter element code.
func (c *Component) UnmarshalText(text []byte) error {
	if len(text) != 1 {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, text)
	}
	parsed, err := ParseComponent(text[0])
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// bit returns the ComponentSet bit for c.
func (c Component) bit() ComponentSet {
	switch c {
	case ComponentX:
		return 1 << 0
	case ComponentY:
		return 1 << 1
	case ComponentZ:
		return 1 << 2
	case ComponentD:
		return 1 << 3
	case ComponentI:
		return 1 << 4
	case ComponentH:
		return 1 << 5
	case ComponentF:
		return 1 << 6
	default:
		return 0
	}
}

// ComponentSet is the set of elements an observatory reports.
type ComponentSet uint8

// Add returns the set with c included.
func (s ComponentSet) Add(c Component) ComponentSet { return s | c.bit() }

// Has reports whether every given element is in the set.
func (s ComponentSet) Has(cs ...Component) bool {
	for _, c := range cs {
		if s&c.bit() == 0 {
			return false
		}
	}
	return true
}

// RawRecord is one parsed WDC line. Base, Hourly and TabularMean are already
// in the element's native unit: degrees for D and I, nT otherwise. Hourly
// values are offsets from Base.
type RawRecord struct {
	Source      string
	Line        int
	Observatory string
	Component   Component
	Century     int // 18, 19 or 20
	YearSuffix  int
	Month       int
	Day         int
	Base        Value
	Hourly      [HoursPerDay]Value
	TabularMean Value
}

// DatedRecord is a RawRecord with its calendar date resolved.
type DatedRecord struct {
	RawRecord
	Date time.Time
}

// DailyMean is one element's mean for one day at one observatory.
type DailyMean struct {
	Observatory string    `json:"observatory"`
	Date        time.Time `json:"date"`
	Component   Component `json:"component"`
	Mean        Value     `json:"mean"`
	ValidHours  int       `json:"valid_hours"`
}

// XYZRow is one day of geographic field components in nT.
type XYZRow struct {
	Date time.Time `json:"date"`
	X    Value     `json:"x"`
	Y    Value     `json:"y"`
	Z    Value     `json:"z"`
}

// XYZSeries is a daily series for one observatory. Dates are strictly
// increasing with one row per calendar day.
type XYZSeries struct {
	Observatory string
	Rows        []XYZRow
}

// Quantity distinguishes field means from secular variation.
type Quantity string

const (
	QuantityField Quantity = "field"
	QuantitySV    Quantity = "sv"
)

// ResampledRow is one period mean. PeriodStart is the first day of the
// averaging window (for SV, the date the difference is assigned to).
type ResampledRow struct {
	PeriodStart time.Time `json:"period_start"`
	X           Value     `json:"x"`
	Y           Value     `json:"y"`
	Z           Value     `json:"z"`
}

// ResampledSeries holds periodic means. Periods without a single valid value
// in any component are absent, so consumers detect them as gaps.
type ResampledSeries struct {
	Observatory string
	Period      Period
	Quantity    Quantity
	Rows        []ResampledRow
}

// SourceFile identifies one input file.
type SourceFile struct {
	Path string
	Name string
}

// FileResult is the outcome of processing one WDC file.
type FileResult struct {
	Source       string
	Observatory  string
	Records      int
	Series       XYZSeries
	SkippedDates []*DateError
}

// ObservatoryProducts bundles every derived series for one observatory.
type ObservatoryProducts struct {
	RunID        string
	Observatory  string
	Files        []string
	Daily        XYZSeries
	Resampled    []ResampledSeries
	SV           []ResampledSeries
	SkippedJumps []BaselineJump
	// Activity and Excluded count the daily values blanked by the cleaning
	// filters before resampling.
	Activity    ActivityMask
	Excluded    int
	ProcessedAt time.Time
}
