package domain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// wdcLine formats a WDC record by hand, independently of FormatRecord.
func wdcLine(code string, yy, mm int, element byte, dd int, century string, base int, hours []int, mean int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-3s%02d%02d%c%02d    %2s%4d", code, yy, mm, element, dd, century, base)
	for _, h := range hours {
		fmt.Fprintf(&b, "%4d", h)
	}
	fmt.Fprintf(&b, "%4d", mean)
	return b.String()
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hoursOf(vals ...float64) [HoursPerDay]Value {
	var out [HoursPerDay]Value
	for i, v := range vals {
		out[i] = Some(v)
	}
	return out
}

func valueOf(t *testing.T, v Value) float64 {
	t.Helper()
	f, ok := v.Get()
	require.True(t, ok, "expected a present value")
	return f
}
