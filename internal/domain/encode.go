package domain

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
)

// FormatRecord renders a RawRecord as a 120-column WDC line. Missing values
// are written as 9999. It is the inverse of ParseRecord up to the precision
// of the stored integer fields.
func FormatRecord(rec RawRecord) (string, error) {
	if len(rec.Observatory) != 3 {
		return "", fmt.Errorf("format record: observatory code %q: %w", rec.Observatory, ErrMissingCode)
	}
	century, err := formatCentury(rec.Century)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(RecordWidth)
	fmt.Fprintf(&b, "%-3s%02d%02d%c%02d    %s", rec.Observatory, rec.YearSuffix, rec.Month, byte(rec.Component), rec.Day, century)

	base, err := encodeSlot(unscaleBase(rec.Component, rec.Base))
	if err != nil {
		return "", fmt.Errorf("format record base: %w", err)
	}
	b.WriteString(base)

	for h, v := range rec.Hourly {
		slot, err := encodeSlot(unscaleReading(rec.Component, v))
		if err != nil {
			return "", fmt.Errorf("format record hour %02d: %w", h, err)
		}
		b.WriteString(slot)
	}

	mean, err := encodeSlot(unscaleReading(rec.Component, rec.TabularMean))
	if err != nil {
		return "", fmt.Errorf("format record daily mean: %w", err)
	}
	b.WriteString(mean)

	return b.String(), nil
}

// FormatWDC writes records as WDC lines.
func FormatWDC(w io.Writer, records []RawRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		line, err := FormatRecord(rec)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatCentury(century int) (string, error) {
	switch century {
	case 19, 20:
		return fmt.Sprintf("%02d", century), nil
	case 18:
		return " 8", nil
	default:
		return "", fmt.Errorf("format record: %w: %d", ErrUnknownCentury, century)
	}
}

func unscaleBase(c Component, v Value) Value {
	if c.Angular() {
		return v
	}
	return v.Scale(1 / intensityBaseScale)
}

func unscaleReading(c Component, v Value) Value {
	if c.Angular() {
		return v.Scale(angularScale)
	}
	return v
}

func encodeSlot(v Value) (string, error) {
	f, ok := v.Get()
	if !ok {
		return fmt.Sprintf("%4d", missingReading), nil
	}
	n := int(math.Round(f))
	if n >= missingReading || n < -999 {
		return "", fmt.Errorf("%w: %d does not fit four columns", ErrInvalidNumber, n)
	}
	return fmt.Sprintf("%4d", n), nil
}
