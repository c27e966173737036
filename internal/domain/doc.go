// Package domain models World Data Centre (WDC) geomagnetic observatory data
// and the derivations applied to it.
//
// # Data Source
//
// Hourly-mean files are distributed by the WDC for Geomagnetism (Edinburgh)
// as one file per observatory per year, e.g. hourval/single_obs/ngk/ngk1990.wdc.
// Each physical line holds one day of one field element at one observatory.
//
// # Record Layout
//
// Columns are fixed and fields may abut without separating spaces, so every
// field is sliced by absolute offset (0-based, end-exclusive):
//
//	  0-3    IAGA observatory code, e.g. "NGK"
//	  3-5    last two digits of the year
//	  5-7    month
//	  7-8    element: X, Y, Z, D, I, H or F
//	  8-10   day of month
//	 10-14   blank / arbitrary
//	 14-16   century digits "19" or "20" (current format)
//	         old format: col 14 = international Q/D day, col 15 = blank for
//	         data since 1900, "8" for data before 1900
//	 16-20   tabular base
//	 20-116  24 hourly values, four columns each
//	116-120  daily mean
//
// Units:
//
//	D, I:           base in whole degrees, hourly values in tenths of
//	                arc-minutes (value/600 degrees)
//	H, X, Y, Z, F:  base in hundreds of nT, hourly values in nT
//
// Missing data:
//
//	9999 in any four-column numeric slot means "no data". Blank slots are
//	treated the same way. Missing readings are carried as the zero [Value],
//	never as 0 or NaN.
//
// # Derived Series
//
// Daily means (base + mean of valid hours) are converted to geographic X, Y, Z
// in nT ([BuildXYZSeries]), corrected for documented baseline jumps
// ([ApplyBaselineJumps]), averaged over calendar months or years ([Resample])
// and differenced into secular variation in nT/yr ([SecularVariation]).
package domain
