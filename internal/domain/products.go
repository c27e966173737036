package domain

import "fmt"

// ProductOptions selects the derived series built for each observatory.
type ProductOptions struct {
	Periods []Period
	// SVSpacing is the distance in months between differenced means.
	SVSpacing int
	Jumps     []BaselineJump
	// Activity, when set, blanks disturbed days before resampling.
	Activity   *ActivityFilter
	Exclusions []Exclusion
}

// BuildProducts baseline-corrects a merged daily series, applies the
// configured cleaning filters, resamples it for every configured period and
// derives the secular variation of each.
func BuildProducts(daily XYZSeries, opts ProductOptions) (ObservatoryProducts, error) {
	corrected, unknown := ApplyBaselineJumps(daily, opts.Jumps)

	var mask ActivityMask
	if opts.Activity != nil {
		corrected, mask = ApplyActivityThreshold(corrected, *opts.Activity)
	}
	corrected, excluded := ApplyExclusions(corrected, opts.Exclusions)

	products := ObservatoryProducts{
		Observatory:  daily.Observatory,
		Daily:        corrected,
		SkippedJumps: unknown,
		Activity:     mask,
		Excluded:     excluded,
		ProcessedAt:  clock.Now().UTC(),
	}

	for _, period := range opts.Periods {
		resampled := Resample(corrected, period)
		sv, err := SecularVariation(resampled, spacingFor(period, opts.SVSpacing))
		if err != nil {
			return ObservatoryProducts{}, fmt.Errorf("build products for %s: %w", daily.Observatory, err)
		}
		products.Resampled = append(products.Resampled, resampled)
		products.SV = append(products.SV, sv)
	}
	return products, nil
}

// spacingFor converts a spacing in months to the period's units. Annual
// means are never differenced less than a year apart.
func spacingFor(p Period, months int) int {
	if p == PeriodAnnual {
		return max(months/12, 1)
	}
	return months
}
