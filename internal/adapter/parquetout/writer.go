// Package parquetout writes observatory products as Parquet files with nullable
// component columns.
package parquetout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/adapter/csvout"
	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// SeriesRow is the Parquet schema shared by every product file. Missing
// components are null.
type SeriesRow struct {
	Observatory string   `parquet:"observatory"`
	Quantity    string   `parquet:"quantity"`
	Period      string   `parquet:"period"`
	Date        string   `parquet:"date"`
	X           *float64 `parquet:"x,optional"`
	Y           *float64 `parquet:"y,optional"`
	Z           *float64 `parquet:"z,optional"`
}

// Table is the content of one product file.
type Table struct {
	Name string
	Rows []SeriesRow
}

// Tables lays out the products of one observatory as files:
// <OBS>_daily.parquet plus one file per resampled and SV series.
func Tables(products domain.ObservatoryProducts) []Table {
	obs := strings.ToUpper(products.Observatory)

	daily := make([]SeriesRow, len(products.Daily.Rows))
	for i, r := range products.Daily.Rows {
		daily[i] = newRow(obs, string(domain.QuantityField), "daily", r.Date, r.X, r.Y, r.Z)
	}
	tables := []Table{{Name: FileName(obs, "daily"), Rows: daily}}

	for _, series := range append(append([]domain.ResampledSeries(nil), products.Resampled...), products.SV...) {
		rows := make([]SeriesRow, len(series.Rows))
		for i, r := range series.Rows {
			rows[i] = newRow(obs, string(series.Quantity), string(series.Period), r.PeriodStart, r.X, r.Y, r.Z)
		}
		tables = append(tables, Table{Name: FileName(obs, csvout.SeriesKind(series)), Rows: rows})
	}
	return tables
}

// FileName returns the Parquet file name for an observatory series.
func FileName(observatory, kind string) string {
	return fmt.Sprintf("%s_%s.parquet", strings.ToUpper(observatory), kind)
}

// Encode writes rows as a complete Parquet file.
func Encode(w io.Writer, rows []SeriesRow) error {
	pw := parquet.NewGenericWriter[SeriesRow](w)
	if _, err := pw.Write(rows); err != nil {
		return err
	}
	return pw.Close()
}

// Writer implements pipeline.Loader by writing one Parquet file per series.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer that puts files under dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) Name() string { return "parquet" }

func (w *Writer) Load(ctx context.Context, products domain.ObservatoryProducts) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tables := Tables(products)
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.write(t); err != nil {
			return err
		}
	}

	w.logger.Info("parquet products written", "observatory", products.Observatory, "dir", w.dir, "series", len(tables))
	return nil
}

func (w *Writer) write(t Table) error {
	tmp, err := os.CreateTemp(w.dir, "."+t.Name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := Encode(tmp, t.Rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(w.dir, t.Name)); err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	return nil
}

func newRow(obs, quantity, period string, date time.Time, x, y, z domain.Value) SeriesRow {
	return SeriesRow{
		Observatory: obs,
		Quantity:    quantity,
		Period:      period,
		Date:        date.Format(time.DateOnly),
		X:           x.Ptr(),
		Y:           y.Ptr(),
		Z:           z.Ptr(),
	}
}
