package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"github.com/couchcryptid/geomag-sv-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Source lists and opens the WDC files of one batch.
type Source interface {
	Discover(ctx context.Context) ([]domain.SourceFile, error)
	Open(ctx context.Context, f domain.SourceFile) (io.ReadCloser, error)
}

// FileTransformer converts the contents of one WDC file into a daily series.
type FileTransformer interface {
	TransformFile(ctx context.Context, r io.Reader, f domain.SourceFile) (domain.FileResult, error)
}

// Loader delivers the products of one observatory to a destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, products domain.ObservatoryProducts) error
}

// Options tunes a Pipeline.
type Options struct {
	Workers  int
	Products domain.ProductOptions
	// LoadAttempts is how many times a failing loader is tried per
	// observatory. Values below 1 mean a single attempt.
	LoadAttempts int
	// RetryBackoff is the first delay between load attempts; it doubles up
	// to MaxRetryBackoff.
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	Clock           clockwork.Clock
}

// DefaultOptions returns options with the retry policy the service uses.
func DefaultOptions() Options {
	return Options{
		Workers:         1,
		Products:        domain.ProductOptions{Periods: []domain.Period{domain.PeriodMonthly}, SVSpacing: 12},
		LoadAttempts:    3,
		RetryBackoff:    200 * time.Millisecond,
		MaxRetryBackoff: 5 * time.Second,
	}
}

// FileFailure records a file that could not be processed.
type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summary describes one completed batch run.
type Summary struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	FilesTotal    int           `json:"files_total"`
	FilesFailed   int           `json:"files_failed"`
	Records       int           `json:"records"`
	SkippedDates  int           `json:"skipped_dates"`
	MaskedValues  int           `json:"masked_values"`
	Observatories []string      `json:"observatories"`
	Failures      []FileFailure `json:"failures,omitempty"`
	LoadFailures  int           `json:"load_failures"`
}

// Pipeline orchestrates one extract-transform-load batch over a directory of
// WDC files.
type Pipeline struct {
	source      Source
	transformer FileTransformer
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	opts        Options
	clock       clockwork.Clock

	ready atomic.Bool
	last  atomic.Pointer[Summary]
}

// New creates a Pipeline with the given stages and observability.
func New(src Source, t FileTransformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.LoadAttempts < 1 {
		opts.LoadAttempts = 1
	}
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Pipeline{
		source:      src,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
		opts:        opts,
		clock:       clk,
	}
}

// CheckReadiness returns nil once a batch run has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LastSummary returns the summary of the most recent completed run.
func (p *Pipeline) LastSummary() (Summary, bool) {
	s := p.last.Load()
	if s == nil {
		return Summary{}, false
	}
	return *s, true
}

// fileOutcome is the per-file result of the transform stage.
type fileOutcome struct {
	file   domain.SourceFile
	result domain.FileResult
	err    error
}

// Run processes every file the source discovers, then builds and loads the
// products of each observatory. A file that fails is recorded in the summary
// and does not stop the batch. The returned error reports discovery failures,
// cancellation and loaders that kept failing after retries.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	summary := Summary{RunID: uuid.NewString(), StartedAt: p.clock.Now().UTC()}
	logger := p.logger.With("run_id", summary.RunID)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	files, err := p.source.Discover(ctx)
	if err != nil {
		return summary, fmt.Errorf("discover input files: %w", err)
	}
	summary.FilesTotal = len(files)
	logger.Info("pipeline started", "files", len(files), "workers", p.opts.Workers)

	outcomes := p.transformAll(ctx, files)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	byObservatory := make(map[string][]fileOutcome)
	var order []string
	for _, o := range outcomes {
		if o.err != nil {
			summary.FilesFailed++
			summary.Failures = append(summary.Failures, FileFailure{Path: o.file.Path, Error: o.err.Error()})
			logger.Error("file rejected", "file", o.file.Path, "error", o.err)
			continue
		}
		summary.Records += o.result.Records
		summary.SkippedDates += len(o.result.SkippedDates)
		obs := o.result.Observatory
		if obs == "" {
			logger.Warn("file contains no records", "file", o.file.Path)
			continue
		}
		if _, seen := byObservatory[obs]; !seen {
			order = append(order, obs)
		}
		byObservatory[obs] = append(byObservatory[obs], o)
	}

	var loadErrs []error
	for _, obs := range order {
		products, err := p.buildProducts(logger, obs, byObservatory[obs])
		if err != nil {
			logger.Error("build products failed", "observatory", obs, "error", err)
			loadErrs = append(loadErrs, err)
			continue
		}
		products.RunID = summary.RunID
		summary.MaskedValues += products.Activity.Disturbed + products.Activity.Unindexed + products.Excluded
		summary.Observatories = append(summary.Observatories, obs)
		if errs := p.load(ctx, logger, products); len(errs) > 0 {
			summary.LoadFailures += len(errs)
			loadErrs = append(loadErrs, errs...)
		}
	}

	summary.FinishedAt = p.clock.Now().UTC()
	p.metrics.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	p.last.Store(&summary)
	p.ready.Store(true)

	logger.Info("pipeline finished",
		"files", summary.FilesTotal,
		"files_failed", summary.FilesFailed,
		"records", summary.Records,
		"skipped_dates", summary.SkippedDates,
		"masked_values", summary.MaskedValues,
		"observatories", len(summary.Observatories),
	)
	return summary, errors.Join(loadErrs...)
}

// transformAll fans files out to the worker pool. Outcomes keep the
// discovery order so that merging is deterministic.
func (p *Pipeline) transformAll(ctx context.Context, files []domain.SourceFile) []fileOutcome {
	outcomes := make([]fileOutcome, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(p.opts.Workers, max(len(files), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = p.transformOne(ctx, files[i])
			}
		}()
	}

feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

func (p *Pipeline) transformOne(ctx context.Context, f domain.SourceFile) fileOutcome {
	start := time.Now()
	out := fileOutcome{file: f}

	rc, err := p.source.Open(ctx, f)
	if err != nil {
		out.err = err
		p.metrics.FilesFailed.Inc()
		return out
	}
	defer rc.Close()

	out.result, out.err = p.transformer.TransformFile(ctx, rc, f)
	if out.err != nil {
		p.metrics.FilesFailed.Inc()
		return out
	}

	p.metrics.FilesProcessed.Inc()
	p.metrics.RecordsParsed.Add(float64(out.result.Records))
	p.metrics.DateErrors.Add(float64(len(out.result.SkippedDates)))
	p.metrics.FileProcessingDuration.Observe(time.Since(start).Seconds())
	return out
}

// buildProducts merges the file series of one observatory and derives the
// resampled and secular-variation series.
func (p *Pipeline) buildProducts(logger *slog.Logger, obs string, outcomes []fileOutcome) (domain.ObservatoryProducts, error) {
	parts := make([]domain.XYZSeries, len(outcomes))
	files := make([]string, len(outcomes))
	for i, o := range outcomes {
		parts[i] = o.result.Series
		files[i] = o.file.Path
	}

	merged, conflicts := domain.MergeSeries(obs, parts)
	if len(conflicts) > 0 {
		p.metrics.MergeConflicts.Add(float64(len(conflicts)))
		logger.Warn("days reported by more than one file, keeping the first",
			"observatory", obs,
			"days", len(conflicts),
			"first", conflicts[0].Format(time.DateOnly),
		)
	}

	products, err := domain.BuildProducts(merged, p.opts.Products)
	if err != nil {
		return domain.ObservatoryProducts{}, err
	}
	products.Files = files
	for _, j := range products.SkippedJumps {
		logger.Warn("baseline jump of unknown size not applied", "observatory", obs, "year", j.Year)
	}
	if a := products.Activity; a.Disturbed+a.Unindexed > 0 {
		p.metrics.MaskedValues.WithLabelValues("disturbed").Add(float64(a.Disturbed))
		p.metrics.MaskedValues.WithLabelValues("unindexed").Add(float64(a.Unindexed))
		logger.Info("days dropped by activity filter", "observatory", obs, "disturbed", a.Disturbed, "unindexed", a.Unindexed)
	}
	if products.Excluded > 0 {
		p.metrics.MaskedValues.WithLabelValues("excluded").Add(float64(products.Excluded))
		logger.Info("listed values excluded", "observatory", obs, "values", products.Excluded)
	}

	p.metrics.DailyRows.Add(float64(len(products.Daily.Rows)))
	p.countRows(products.Resampled)
	p.countRows(products.SV)
	return products, nil
}

func (p *Pipeline) countRows(series []domain.ResampledSeries) {
	for _, s := range series {
		p.metrics.ResampledRows.WithLabelValues(string(s.Quantity), string(s.Period)).Add(float64(len(s.Rows)))
	}
}

// load hands the products to every loader, retrying each with exponential
// backoff. It returns the loaders' final errors.
func (p *Pipeline) load(ctx context.Context, logger *slog.Logger, products domain.ObservatoryProducts) []error {
	var errs []error
	for _, l := range p.loaders {
		if err := p.loadWithRetry(ctx, logger, l, products); err != nil {
			p.metrics.LoadErrors.WithLabelValues(l.Name()).Inc()
			logger.Error("load failed", "loader", l.Name(), "observatory", products.Observatory, "error", err)
			errs = append(errs, fmt.Errorf("load %s into %s: %w", products.Observatory, l.Name(), err))
		}
	}
	return errs
}

func (p *Pipeline) loadWithRetry(ctx context.Context, logger *slog.Logger, l Loader, products domain.ObservatoryProducts) error {
	backoff := p.opts.RetryBackoff
	var err error
	for attempt := 1; attempt <= p.opts.LoadAttempts; attempt++ {
		if err = l.Load(ctx, products); err == nil {
			return nil
		}
		if attempt == p.opts.LoadAttempts || ctx.Err() != nil {
			break
		}
		logger.Warn("load attempt failed, retrying",
			"loader", l.Name(),
			"observatory", products.Observatory,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, p.opts.MaxRetryBackoff)
	}
	return err
}

// RunEvery runs a batch immediately and then once per interval until the
// context is cancelled. Run errors are logged and do not stop the loop.
func (p *Pipeline) RunEvery(ctx context.Context, interval time.Duration) error {
	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.Run(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("pipeline run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}
