package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BaselineJump is a documented step in an observatory's recorded values.
// Data dated before 1 January of Year are offset by X, Y, Z (nT) relative to
// later data.
type BaselineJump struct {
	Observatory string  `yaml:"observatory" json:"observatory"`
	Year        int     `yaml:"year" json:"year"`
	X           float64 `yaml:"x" json:"x"`
	Y           float64 `yaml:"y" json:"y"`
	Z           float64 `yaml:"z" json:"z"`
}

// Unknown reports whether the jump is documented without a magnitude.
func (j BaselineJump) Unknown() bool {
	return j.X == 0 && j.Y == 0 && j.Z == 0
}

// ParseBaselineCSV reads "observatory,year,x,y,z" rows. Lines starting with
// '#' and a leading header row are ignored.
func ParseBaselineCSV(r io.Reader) ([]BaselineJump, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true

	var jumps []BaselineJump
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse baseline table: %w", err)
		}
		if row == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "observatory") {
			continue
		}
		jump, err := baselineFromFields(rec)
		if err != nil {
			return nil, fmt.Errorf("parse baseline table row %d: %w", row, err)
		}
		jumps = append(jumps, jump)
	}
	return jumps, nil
}

// ParseBaselineYAML reads a YAML list of jumps.
func ParseBaselineYAML(r io.Reader) ([]BaselineJump, error) {
	var jumps []BaselineJump
	if err := yaml.NewDecoder(r).Decode(&jumps); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse baseline yaml: %w", err)
	}
	for i := range jumps {
		jumps[i].Observatory = strings.ToUpper(strings.TrimSpace(jumps[i].Observatory))
		if jumps[i].Observatory == "" {
			return nil, fmt.Errorf("parse baseline yaml entry %d: %w", i, ErrMissingCode)
		}
	}
	return jumps, nil
}

func baselineFromFields(rec []string) (BaselineJump, error) {
	j := BaselineJump{Observatory: strings.ToUpper(strings.TrimSpace(rec[0]))}
	if j.Observatory == "" {
		return j, ErrMissingCode
	}
	year, err := strconv.Atoi(strings.TrimSpace(rec[1]))
	if err != nil {
		return j, fmt.Errorf("year %q: %w", rec[1], ErrInvalidNumber)
	}
	j.Year = year

	offsets := []*float64{&j.X, &j.Y, &j.Z}
	for i, dst := range offsets {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[2+i]), 64)
		if err != nil {
			return j, fmt.Errorf("offset %q: %w", rec[2+i], ErrInvalidNumber)
		}
		*dst = v
	}
	return j, nil
}

// ApplyBaselineJumps subtracts every jump recorded for the series'
// observatory from the rows dated before the jump year. Jumps of unknown
// magnitude are not applied and are returned so callers can report them.
// The input series is not modified.
func ApplyBaselineJumps(series XYZSeries, jumps []BaselineJump) (XYZSeries, []BaselineJump) {
	out := XYZSeries{Observatory: series.Observatory, Rows: make([]XYZRow, len(series.Rows))}
	copy(out.Rows, series.Rows)

	var unknown []BaselineJump
	for _, j := range jumps {
		if !strings.EqualFold(j.Observatory, series.Observatory) {
			continue
		}
		if j.Unknown() {
			unknown = append(unknown, j)
			continue
		}
		cutoff := time.Date(j.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		for i := range out.Rows {
			if !out.Rows[i].Date.Before(cutoff) {
				continue
			}
			out.Rows[i].X = out.Rows[i].X.Sub(Some(j.X))
			out.Rows[i].Y = out.Rows[i].Y.Sub(Some(j.Y))
			out.Rows[i].Z = out.Rows[i].Z.Sub(Some(j.Z))
		}
	}
	return out, unknown
}
