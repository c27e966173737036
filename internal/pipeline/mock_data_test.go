package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"github.com/stretchr/testify/require"
)

// dayRecord builds one WDC record with every hour set to offset, in the
// element's native unit.
func dayRecord(obs string, date time.Time, c domain.Component, base, offset float64) domain.RawRecord {
	rec := domain.RawRecord{
		Observatory: obs,
		Component:   c,
		Century:     date.Year() / 100,
		YearSuffix:  date.Year() % 100,
		Month:       int(date.Month()),
		Day:         date.Day(),
		Base:        domain.Some(base),
		TabularMean: domain.Some(offset),
	}
	for h := range rec.Hourly {
		rec.Hourly[h] = domain.Some(offset)
	}
	return rec
}

// hdzMonth renders a month of H, D and Z records with constant values:
// H = 20000 nT, D = 0 degrees, Z = 40000 + zOffset nT.
func hdzMonth(t *testing.T, obs string, year int, month time.Month, zOffset float64) string {
	t.Helper()
	var records []domain.RawRecord
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Month() == month; d = d.AddDate(0, 0, 1) {
		records = append(records,
			dayRecord(obs, d, domain.ComponentH, 20000, 0),
			dayRecord(obs, d, domain.ComponentD, 0, 0),
			dayRecord(obs, d, domain.ComponentZ, 40000, zOffset),
		)
	}
	return formatWDC(t, records)
}

func formatWDC(t *testing.T, records []domain.RawRecord) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, domain.FormatWDC(&buf, records))
	return buf.String()
}

// --- mocks ---

type mockSource struct {
	files       map[string]string
	discoverErr error
	openErr     map[string]error
}

func (m *mockSource) Discover(_ context.Context) ([]domain.SourceFile, error) {
	if m.discoverErr != nil {
		return nil, m.discoverErr
	}
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domain.SourceFile, len(names))
	for i, name := range names {
		out[i] = domain.SourceFile{Path: "wdc/" + name, Name: name}
	}
	return out, nil
}

func (m *mockSource) Open(_ context.Context, f domain.SourceFile) (io.ReadCloser, error) {
	if err := m.openErr[f.Name]; err != nil {
		return nil, err
	}
	content, ok := m.files[f.Name]
	if !ok {
		return nil, fmt.Errorf("open %s: not found", f.Name)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

type mockLoader struct {
	mu        sync.Mutex
	failFirst int
	alwaysErr error
	calls     int
	loaded    []domain.ObservatoryProducts
}

func (m *mockLoader) Name() string { return "mock" }

func (m *mockLoader) Load(_ context.Context, products domain.ObservatoryProducts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.alwaysErr != nil {
		return m.alwaysErr
	}
	if m.failFirst > 0 {
		m.failFirst--
		return errors.New("destination unavailable")
	}
	m.loaded = append(m.loaded, products)
	return nil
}

func (m *mockLoader) snapshot() (int, []domain.ObservatoryProducts) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, append([]domain.ObservatoryProducts(nil), m.loaded...)
}
