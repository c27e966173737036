package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActivityIndexCSV(t *testing.T) {
	in := strings.Join([]string{
		"date,ap",
		"# hourly index",
		"2000-01-01 00:00:00,7",
		"2000-01-01 03:00:00,27",
		"2000-01-01 06:00:00,12",
		"2000-01-02,4",
		"2000-01-03T21:00:00Z,48",
	}, "\n")

	index, err := ParseActivityIndexCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, ActivityIndex{
		day(2000, 1, 1): 27,
		day(2000, 1, 2): 4,
		day(2000, 1, 3): 48,
	}, index)
}

func TestParseActivityIndexCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "bad date", in: "2000-13-01,5", wantErr: ErrInvalidDate},
		{name: "bad value", in: "2000-01-01,high", wantErr: ErrInvalidNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseActivityIndexCSV(strings.NewReader(tt.in))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "row 1")
		})
	}

	t.Run("wrong field count", func(t *testing.T) {
		_, err := ParseActivityIndexCSV(strings.NewReader("2000-01-01,5,6"))
		assert.Error(t, err)
	})
}

func TestApplyActivityThreshold(t *testing.T) {
	series := XYZSeries{Observatory: "TST", Rows: []XYZRow{
		{Date: day(2000, 1, 1), X: Some(1), Y: Some(2), Z: Some(3)},
		{Date: day(2000, 1, 2), X: Some(1), Y: Some(2), Z: Some(3)},
		{Date: day(2000, 1, 3), X: Some(1), Y: Some(2), Z: Some(3)},
		{Date: day(2000, 1, 4), X: Some(1), Y: Some(2), Z: Some(3)},
		{Date: day(2000, 1, 5)},
	}}
	index := ActivityIndex{
		day(2000, 1, 1): 10,
		day(2000, 1, 2): 30,
		day(2000, 1, 3): 31,
		day(2000, 1, 5): 80,
	}

	got, mask := ApplyActivityThreshold(series, ActivityFilter{Index: index, Threshold: 30})

	assert.Equal(t, ActivityMask{Disturbed: 1, Unindexed: 1}, mask)
	require.Len(t, got.Rows, 5)
	assert.True(t, got.Rows[0].X.Valid(), "quiet day kept")
	assert.True(t, got.Rows[1].Z.Valid(), "threshold itself is not disturbed")
	assert.Equal(t, XYZRow{Date: day(2000, 1, 3)}, got.Rows[2])
	assert.Equal(t, XYZRow{Date: day(2000, 1, 4)}, got.Rows[3], "day absent from the index")
	assert.True(t, series.Rows[2].X.Valid(), "input untouched")
}

func TestParseExclusionsCSV(t *testing.T) {
	in := "date,observatory,component\n2015-01-01,ngk,X\n2015-02-01, NGK , z\n"
	got, err := ParseExclusionsCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Exclusion{
		{Date: day(2015, 1, 1), Observatory: "NGK", Component: ComponentX},
		{Date: day(2015, 2, 1), Observatory: "NGK", Component: ComponentZ},
	}, got)
}

func TestParseExclusionsCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "angular component", in: "2015-01-01,NGK,D", wantErr: ErrUnknownComponent},
		{name: "unknown component", in: "2015-01-01,NGK,Q", wantErr: ErrUnknownComponent},
		{name: "missing observatory", in: "2015-01-01,,X", wantErr: ErrMissingCode},
		{name: "bad date", in: "01/01/2015,NGK,X", wantErr: ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExclusionsCSV(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyExclusions(t *testing.T) {
	series := XYZSeries{Observatory: "NGK", Rows: []XYZRow{
		{Date: day(2015, 1, 1), X: Some(1), Y: Some(2), Z: Some(3)},
		{Date: day(2015, 1, 2), X: Some(1), Z: Some(3)},
	}}
	exclusions := []Exclusion{
		{Date: day(2015, 1, 1), Observatory: "NGK", Component: ComponentX},
		{Date: day(2015, 1, 2), Observatory: "NGK", Component: ComponentY},
		{Date: day(2015, 1, 2), Observatory: "ABC", Component: ComponentZ},
		{Date: day(2016, 1, 1), Observatory: "NGK", Component: ComponentZ},
	}

	got, removed := ApplyExclusions(series, exclusions)

	assert.Equal(t, 1, removed, "already-missing and foreign entries are not counted")
	assert.False(t, got.Rows[0].X.Valid())
	assert.True(t, got.Rows[0].Y.Valid())
	assert.True(t, got.Rows[1].Z.Valid())
	assert.True(t, series.Rows[0].X.Valid(), "input untouched")

	empty, removed := ApplyExclusions(XYZSeries{Observatory: "NGK"}, exclusions)
	assert.Zero(t, removed)
	assert.Empty(t, empty.Rows)
}
