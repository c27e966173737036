// Package csvout writes observatory products as CSV tables, one file per
// series, with missing values spelled NA.
package csvout

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
)

var header = []string{"date", "X", "Y", "Z"}

// Writer implements pipeline.Loader by writing CSV files into a directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer that puts files under dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Name() string { return "csv" }

// Load writes <OBS>_daily.csv, <OBS>_<period>.csv and <OBS>_<period>_sv.csv.
func (w *Writer) Load(ctx context.Context, products domain.ObservatoryProducts) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	obs := products.Observatory
	daily := make([][]string, len(products.Daily.Rows))
	for i, r := range products.Daily.Rows {
		daily[i] = row(r.Date, r.X, r.Y, r.Z)
	}
	if err := w.write(FileName(obs, "daily"), daily); err != nil {
		return err
	}

	for _, series := range append(append([]domain.ResampledSeries(nil), products.Resampled...), products.SV...) {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows := make([][]string, len(series.Rows))
		for i, r := range series.Rows {
			rows[i] = row(r.PeriodStart, r.X, r.Y, r.Z)
		}
		if err := w.write(FileName(obs, SeriesKind(series)), rows); err != nil {
			return err
		}
	}

	w.logger.Info("csv products written", "observatory", obs, "dir", w.dir, "series", 1+len(products.Resampled)+len(products.SV))
	return nil
}

// SeriesKind names a resampled series the way output files do: the period,
// suffixed with _sv for secular variation.
func SeriesKind(s domain.ResampledSeries) string {
	if s.Quantity == domain.QuantitySV {
		return string(s.Period) + "_sv"
	}
	return string(s.Period)
}

// FileName returns the CSV file name for an observatory series.
func FileName(observatory, kind string) string {
	return fmt.Sprintf("%s_%s.csv", strings.ToUpper(observatory), kind)
}

// write replaces name atomically so readers never see a partial table.
func (w *Writer) write(name string, rows [][]string) error {
	path := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(w.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	cw := csv.NewWriter(tmp)
	if err := cw.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func row(date time.Time, x, y, z domain.Value) []string {
	return []string{date.Format(time.DateOnly), x.String(), y.String(), z.String()}
}
