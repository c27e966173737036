// Command genmock writes synthetic WDC hourly-mean files for fixtures and
// load testing. The field follows a smooth secular trend with a diurnal
// ripple, and a configurable share of hours is written as missing.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/wdc -obs TST -from 1995 -to 2000 \
//	  -elements hdz -missing 0.05 -seed 42
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
)

// fieldModel is the synthetic main field of one observatory at epoch 2000
// with a linear secular variation in nT (or degrees) per year.
type fieldModel struct {
	x, y, z    float64
	dx, dy, dz float64
}

var defaultModel = fieldModel{x: 18000, y: -500, z: 45000, dx: 15, dy: 40, dz: 25}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory")
	obs := flag.String("obs", "TST", "three-letter observatory code")
	from := flag.Int("from", 2000, "first year")
	to := flag.Int("to", 2000, "last year")
	elements := flag.String("elements", "hdz", "element set: hdz or xyz")
	missing := flag.Float64("missing", 0, "probability that an hour is missing")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if len(*obs) != 3 {
		return fmt.Errorf("observatory code must be three characters, got %q", *obs)
	}
	if *from < 1800 || *to > 2099 || *from > *to {
		return fmt.Errorf("invalid year range %d-%d", *from, *to)
	}
	set, err := parseElements(*elements)
	if err != nil {
		return err
	}
	if *missing < 0 || *missing >= 1 {
		return fmt.Errorf("missing rate must be in [0, 1), got %g", *missing)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	code := strings.ToUpper(*obs)
	for year := *from; year <= *to; year++ {
		records := generateYear(rng, code, year, set, *missing)
		path := filepath.Join(*out, fmt.Sprintf("%s%d.wdc", strings.ToLower(code), year))
		if err := writeFile(path, records); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("wrote %s: %d records", path, len(records))
	}
	return nil
}

func parseElements(s string) ([]domain.Component, error) {
	switch strings.ToLower(s) {
	case "hdz":
		return []domain.Component{domain.ComponentH, domain.ComponentD, domain.ComponentZ}, nil
	case "xyz":
		return []domain.Component{domain.ComponentX, domain.ComponentY, domain.ComponentZ}, nil
	default:
		return nil, fmt.Errorf("unknown element set %q (want hdz or xyz)", s)
	}
}

func generateYear(rng *rand.Rand, obs string, year int, set []domain.Component, missingRate float64) []domain.RawRecord {
	var records []domain.RawRecord
	for day := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC); day.Year() == year; day = day.AddDate(0, 0, 1) {
		for _, c := range set {
			records = append(records, dayRecord(rng, obs, day, c, missingRate))
		}
	}
	return records
}

func dayRecord(rng *rand.Rand, obs string, day time.Time, c domain.Component, missingRate float64) domain.RawRecord {
	var values [domain.HoursPerDay]float64
	lowest := math.Inf(1)
	for h := range values {
		t := day.Add(time.Duration(h)*time.Hour + 30*time.Minute)
		values[h] = elementAt(c, t) + rng.NormFloat64()*noise(c)
		lowest = min(lowest, values[h])
	}

	rec := domain.RawRecord{
		Observatory: obs,
		Component:   c,
		Century:     day.Year() / 100,
		YearSuffix:  day.Year() % 100,
		Month:       int(day.Month()),
		Day:         day.Day(),
	}

	// Hourly values are stored as non-negative offsets from the base:
	// whole degrees for D and I, hundreds of nT otherwise.
	base := math.Floor(lowest)
	if !c.Angular() {
		base = math.Floor(lowest/100) * 100
	}
	rec.Base = domain.Some(base)

	var m float64
	var n int
	for h, v := range values {
		if rng.Float64() < missingRate {
			continue
		}
		rec.Hourly[h] = domain.Some(v - base)
		m += v - base
		n++
	}
	if n == domain.HoursPerDay {
		rec.TabularMean = domain.Some(m / float64(n))
	}
	return rec
}

// elementAt evaluates the synthetic field for element c at time t.
func elementAt(c domain.Component, t time.Time) float64 {
	years := float64(t.Sub(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))) / float64(365.25*24*time.Hour)
	hour := float64(t.Hour()) + float64(t.Minute())/60
	ripple := math.Sin(2 * math.Pi * (hour - 6) / 24)

	m := defaultModel
	x := m.x + m.dx*years + 20*ripple
	y := m.y + m.dy*years + 10*ripple
	z := m.z + m.dz*years - 5*ripple

	switch c {
	case domain.ComponentX:
		return x
	case domain.ComponentY:
		return y
	case domain.ComponentZ:
		return z
	case domain.ComponentH:
		return math.Hypot(x, y)
	case domain.ComponentD:
		return math.Atan2(y, x) * 180 / math.Pi
	case domain.ComponentI:
		return math.Atan2(z, math.Hypot(x, y)) * 180 / math.Pi
	default:
		return math.Sqrt(x*x + y*y + z*z)
	}
}

func noise(c domain.Component) float64 {
	if c.Angular() {
		return 0.005
	}
	return 2
}

func writeFile(path string, records []domain.RawRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := domain.FormatWDC(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
