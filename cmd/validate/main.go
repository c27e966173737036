// Command validate checks a directory of WDC files before it is handed to
// the ETL service. Every file is parsed, dated, reduced to daily means,
// converted to X/Y/Z and re-encoded; any failure is reported per file and
// the command exits non-zero.
//
// Usage:
//
//	go run ./cmd/validate -dir data/wdc [-min-valid-hours 1]
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/geomag-sv-etl/internal/adapter/filesystem"
	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// fileReport is what one file contributed to each phase.
type fileReport struct {
	name    string
	records int
	days    int
	ok      bool
}

func main() {
	dir := flag.String("dir", "", "directory containing WDC files (.wdc, .wdc.gz, .wdc.zst)")
	minValid := flag.Int("min-valid-hours", 1, "hours required for a daily mean")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir, domain.AggregateOptions{MinValidHours: *minValid}); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, opts domain.AggregateOptions) int {
	fmt.Println("=== WDC File Validation ===")
	fmt.Println()

	src := filesystem.NewSource(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	files, err := src.Discover(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: scan %s: %v\n", dir, err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no WDC files under %s\n", dir)
		return 1
	}

	phases := map[string]*phase{}
	order := []string{"parse", "dates", "daily means", "geographic conversion", "re-encoding"}
	for _, name := range order {
		phases[name] = &phase{name: name}
	}

	reports := make([]fileReport, 0, len(files))
	for _, f := range files {
		reports = append(reports, validateFile(src, f, opts, phases))
	}

	// ── Report per file ──
	for _, r := range reports {
		status := "\033[32mOK\033[0m"
		if !r.ok {
			status = "\033[31mFAIL\033[0m"
		}
		fmt.Printf("  %-36s %6d records %5d days  %s\n", r.name, r.records, r.days, status)
	}

	// ── Report phases ──
	fmt.Println()
	allPassed := true
	for _, name := range order {
		p := phases[name]
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, name := range order {
		p := phases[name]
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  %s\n", e)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Println("RESULT: FAIL")
		return 1
	}
	fmt.Printf("RESULT: PASS (%d files)\n", len(files))
	return 0
}

func validateFile(src *filesystem.Source, f domain.SourceFile, opts domain.AggregateOptions, phases map[string]*phase) fileReport {
	report := fileReport{name: f.Name}

	rc, err := src.Open(context.Background(), f)
	if err != nil {
		phases["parse"].errorf("%s: %v", f.Name, err)
		return report
	}
	records, err := domain.ParseWDC(rc, f.Name)
	rc.Close()
	report.records = len(records)
	if err != nil {
		phases["parse"].errorf("%v", err)
		return report
	}

	dated, skipped, err := domain.AttachDates(records, domain.DateErrorSkip)
	if err != nil {
		phases["dates"].errorf("%s: %v", f.Name, err)
		return report
	}
	for _, de := range skipped {
		phases["dates"].errorf("%v", de)
	}

	means, err := domain.Aggregate(dated, opts)
	if err != nil {
		phases["daily means"].errorf("%v", err)
		return report
	}

	series, err := domain.BuildXYZSeries(means)
	if err != nil {
		phases["geographic conversion"].errorf("%s: %v", f.Name, err)
		return report
	}
	report.days = len(series.Rows)

	if err := checkReencoding(records, f.Name); err != nil {
		phases["re-encoding"].errorf("%s: %v", f.Name, err)
		return report
	}

	report.ok = len(skipped) == 0
	return report
}

// checkReencoding formats the parsed records and parses them again; the
// record count must survive.
func checkReencoding(records []domain.RawRecord, source string) error {
	var buf bytes.Buffer
	if err := domain.FormatWDC(&buf, records); err != nil {
		return err
	}
	again, err := domain.ParseWDC(&buf, source)
	if err != nil {
		return err
	}
	if len(again) != len(records) {
		return fmt.Errorf("re-encoded %d records, parsed back %d", len(records), len(again))
	}
	return nil
}
