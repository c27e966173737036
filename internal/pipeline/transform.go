package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
)

// WDCTransformer implements FileTransformer with the domain parsing and
// conversion steps: records, dates, daily means, X/Y/Z.
type WDCTransformer struct {
	aggregate domain.AggregateOptions
	policy    domain.DateErrorPolicy
	logger    *slog.Logger
}

// NewTransformer creates a WDCTransformer.
func NewTransformer(aggregate domain.AggregateOptions, policy domain.DateErrorPolicy, logger *slog.Logger) *WDCTransformer {
	return &WDCTransformer{
		aggregate: aggregate,
		policy:    policy,
		logger:    logger,
	}
}

func (t *WDCTransformer) TransformFile(ctx context.Context, r io.Reader, f domain.SourceFile) (domain.FileResult, error) {
	records, err := domain.ParseWDC(r, f.Name)
	if err != nil {
		return domain.FileResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.FileResult{}, err
	}

	dated, skipped, err := domain.AttachDates(records, t.policy)
	if err != nil {
		return domain.FileResult{}, err
	}
	for _, de := range skipped {
		t.logger.Warn("record skipped: invalid date", "file", f.Path, "line", de.Line, "reason", de.Reason)
	}

	means, err := domain.Aggregate(dated, t.aggregate)
	if err != nil {
		return domain.FileResult{}, err
	}

	series, err := domain.BuildXYZSeries(means)
	if err != nil {
		return domain.FileResult{}, fmt.Errorf("%s: %w", f.Name, err)
	}

	return domain.FileResult{
		Source:       f.Path,
		Observatory:  series.Observatory,
		Records:      len(records),
		Series:       series,
		SkippedDates: skipped,
	}, nil
}
