package session

import (
	"testing"
	"time"
)

// claimed_at and the reclaim cutoff are compared as strings in SQL, so the
// stored layout must sort the same way the instants do. RFC3339Nano trims
// trailing fractional zeros, which breaks that for whole-second timestamps.
func TestTimeLayoutSortsWholeSecondsBeforeLaterCutoff(t *testing.T) {
	whole := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	cutoff := whole.Add(123 * time.Millisecond)

	wholeStr := whole.Format(timeLayout)
	cutoffStr := cutoff.Format(timeLayout)
	if len(wholeStr) != len(cutoffStr) {
		t.Fatalf("layout is not fixed width: %q vs %q", wholeStr, cutoffStr)
	}
	if wholeStr >= cutoffStr {
		t.Fatalf("%q does not sort before later cutoff %q", wholeStr, cutoffStr)
	}

	parsed, err := parseTimeString(wholeStr)
	if err != nil {
		t.Fatalf("parseTimeString failed: %v", err)
	}
	if !parsed.Equal(whole) {
		t.Fatalf("round trip changed instant: %v != %v", parsed, whole)
	}
}
