package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"github.com/couchcryptid/geomag-sv-etl/internal/observability"
	"github.com/couchcryptid/geomag-sv-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Workers = 2
	opts.RetryBackoff = time.Millisecond
	opts.MaxRetryBackoff = 2 * time.Millisecond
	opts.Products = domain.ProductOptions{Periods: []domain.Period{domain.PeriodMonthly}, SVSpacing: 1}
	return opts
}

func newTestPipeline(src pipeline.Source, loader pipeline.Loader, opts pipeline.Options) *pipeline.Pipeline {
	tfm := pipeline.NewTransformer(domain.DefaultAggregateOptions(), domain.DateErrorSkip, discardLogger())
	return pipeline.New(src, tfm, []pipeline.Loader{loader}, discardLogger(), newTestMetrics(), opts)
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	src := &mockSource{files: map[string]string{
		"tst200501.wdc": hdzMonth(t, "TST", 2005, time.January, 0),
		"tst200502.wdc": hdzMonth(t, "TST", 2005, time.February, 12),
		"abc200501.wdc": hdzMonth(t, "ABC", 2005, time.January, 0),
	}}
	ldr := &mockLoader{}
	p := newTestPipeline(src, ldr, testOptions())

	require.Error(t, p.CheckReadiness(context.Background()))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.FilesTotal)
	assert.Zero(t, summary.FilesFailed)
	assert.Equal(t, (31+28+31)*3, summary.Records)
	assert.Equal(t, []string{"ABC", "TST"}, summary.Observatories)
	assert.NoError(t, p.CheckReadiness(context.Background()))

	last, ok := p.LastSummary()
	require.True(t, ok)
	assert.Equal(t, summary.RunID, last.RunID)

	_, loaded := ldr.snapshot()
	require.Len(t, loaded, 2)
	tst := loaded[1]
	assert.Equal(t, "TST", tst.Observatory)
	assert.Equal(t, summary.RunID, tst.RunID)
	assert.Equal(t, []string{"wdc/tst200501.wdc", "wdc/tst200502.wdc"}, tst.Files)
	assert.Len(t, tst.Daily.Rows, 31+28)

	require.Len(t, tst.Resampled, 1)
	monthly := tst.Resampled[0]
	require.Len(t, monthly.Rows, 2)
	x, _ := monthly.Rows[0].X.Get()
	assert.InDelta(t, 20000.0, x, 1e-6)

	require.Len(t, tst.SV, 1)
	require.Len(t, tst.SV[0].Rows, 1)
	z, ok := tst.SV[0].Rows[0].Z.Get()
	require.True(t, ok)
	assert.InDelta(t, 12*12.0, z, 1e-6, "12 nT in one month is 144 nT/yr")
}

func TestPipeline_Run_BadFileDoesNotStopBatch(t *testing.T) {
	good := hdzMonth(t, "TST", 2005, time.January, 0)
	bad := good[:7] + "W" + good[8:]

	src := &mockSource{
		files: map[string]string{
			"a.wdc": bad,
			"b.wdc": good,
			"c.wdc": good,
		},
		openErr: map[string]error{"c.wdc": errors.New("permission denied")},
	}
	ldr := &mockLoader{}
	p := newTestPipeline(src, ldr, testOptions())

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.FilesTotal)
	assert.Equal(t, 2, summary.FilesFailed)
	require.Len(t, summary.Failures, 2)
	assert.Equal(t, "wdc/a.wdc", summary.Failures[0].Path)
	assert.Contains(t, summary.Failures[0].Error, "a.wdc:1")
	assert.Contains(t, summary.Failures[1].Error, "permission denied")

	_, loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, []string{"wdc/b.wdc"}, loaded[0].Files)
}

func TestPipeline_Run_OverlappingFilesFirstWins(t *testing.T) {
	src := &mockSource{files: map[string]string{
		"1_first.wdc":  hdzMonth(t, "TST", 2005, time.January, 0),
		"2_second.wdc": hdzMonth(t, "TST", 2005, time.January, 100),
	}}
	ldr := &mockLoader{}
	p := newTestPipeline(src, ldr, testOptions())

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	_, loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	require.Len(t, loaded[0].Daily.Rows, 31)
	z, _ := loaded[0].Daily.Rows[0].Z.Get()
	assert.InDelta(t, 40000.0, z, 1e-9)
}

func TestPipeline_Run_SkippedDatesCounted(t *testing.T) {
	content := hdzMonth(t, "TST", 2005, time.February, 0)
	feb30 := dayRecord("TST", time.Date(2005, 2, 1, 0, 0, 0, 0, time.UTC), domain.ComponentZ, 40000, 0)
	feb30.Day = 30
	content += formatWDC(t, []domain.RawRecord{feb30})

	src := &mockSource{files: map[string]string{"tst.wdc": content}}
	p := newTestPipeline(src, &mockLoader{}, testOptions())

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedDates)
	assert.Equal(t, 28*3+1, summary.Records)
}

func TestPipeline_Run_CleaningFilters(t *testing.T) {
	jan := func(d int) time.Time { return time.Date(2005, time.January, d, 0, 0, 0, 0, time.UTC) }
	index := make(domain.ActivityIndex)
	for d := 1; d <= 30; d++ {
		index[jan(d)] = 5
	}
	index[jan(2)] = 60

	opts := testOptions()
	opts.Products.Activity = &domain.ActivityFilter{Index: index, Threshold: 30}
	opts.Products.Exclusions = []domain.Exclusion{{Date: jan(3), Observatory: "TST", Component: domain.ComponentX}}

	src := &mockSource{files: map[string]string{"tst200501.wdc": hdzMonth(t, "TST", 2005, time.January, 0)}}
	ldr := &mockLoader{}
	p := newTestPipeline(src, ldr, opts)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.MaskedValues)

	_, loaded := ldr.snapshot()
	require.Len(t, loaded, 1)
	tst := loaded[0]
	assert.Equal(t, domain.ActivityMask{Disturbed: 1, Unindexed: 1}, tst.Activity)
	assert.Equal(t, 1, tst.Excluded)
	assert.False(t, tst.Daily.Rows[1].Z.Valid(), "disturbed day")
	assert.False(t, tst.Daily.Rows[30].Z.Valid(), "day missing from the index")
	assert.False(t, tst.Daily.Rows[2].X.Valid(), "excluded value")
	assert.True(t, tst.Daily.Rows[2].Z.Valid())
}

func TestPipeline_Run_DiscoverError(t *testing.T) {
	src := &mockSource{discoverErr: errors.New("input dir missing")}
	p := newTestPipeline(src, &mockLoader{}, testOptions())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input dir missing")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_LoaderRetriesThenSucceeds(t *testing.T) {
	src := &mockSource{files: map[string]string{"tst.wdc": hdzMonth(t, "TST", 2005, time.January, 0)}}
	ldr := &mockLoader{failFirst: 2}
	p := newTestPipeline(src, ldr, testOptions())

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.LoadFailures)

	calls, loaded := ldr.snapshot()
	assert.Equal(t, 3, calls)
	assert.Len(t, loaded, 1)
}

func TestPipeline_Run_LoaderGivesUp(t *testing.T) {
	src := &mockSource{files: map[string]string{"tst.wdc": hdzMonth(t, "TST", 2005, time.January, 0)}}
	ldr := &mockLoader{alwaysErr: errors.New("disk full")}
	opts := testOptions()
	opts.LoadAttempts = 2
	p := newTestPipeline(src, ldr, opts)

	summary, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, summary.LoadFailures)

	calls, _ := ldr.snapshot()
	assert.Equal(t, 2, calls)
	assert.NoError(t, p.CheckReadiness(context.Background()), "a completed run is ready even with load failures")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	src := &mockSource{files: map[string]string{"tst.wdc": hdzMonth(t, "TST", 2005, time.January, 0)}}
	ldr := &mockLoader{}
	p := newTestPipeline(src, ldr, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	_, loaded := ldr.snapshot()
	assert.Empty(t, loaded)
}

func TestPipeline_RunEvery(t *testing.T) {
	fake := clockwork.NewFakeClock()
	opts := testOptions()
	opts.Clock = fake

	src := &mockSource{files: map[string]string{"tst.wdc": hdzMonth(t, "TST", 2005, time.January, 0)}}
	ldr := &mockLoader{}
	p := newTestPipeline(src, ldr, opts)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.RunEvery(ctx, time.Hour) }()

	loadedCount := func() int {
		_, loaded := ldr.snapshot()
		return len(loaded)
	}

	require.Eventually(t, func() bool { return loadedCount() == 1 }, 5*time.Second, 5*time.Millisecond)

	fake.Advance(time.Hour)
	require.Eventually(t, func() bool { return loadedCount() == 2 }, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-errCh)
}
