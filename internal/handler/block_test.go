package handler

import "testing"

func TestShouldSweepDayBoundaryWindow(t *testing.T) {
	policy := DefaultSweepPolicy()

	cases := []struct {
		name      string
		timestamp uint64
		want      bool
	}{
		{"midnight", 86400 * 100, true},
		{"window end after midnight", 86400*100 + 24, true},
		{"just outside morning window", 86400*100 + 25, false},
		{"window start before midnight", 86400*100 + 86376, true},
		{"just outside evening window", 86400*100 + 86375, false},
	}

	// Block 7 never passes either stride, so a sweep can only come from
	// the day-boundary window.
	for _, tc := range cases {
		if got := policy.ShouldSweep(7, tc.timestamp); got != tc.want {
			t.Errorf("%s: ShouldSweep(7, %d) = %v, want %v", tc.name, tc.timestamp, got, tc.want)
		}
	}
}

func TestShouldSweepStrides(t *testing.T) {
	policy := DefaultSweepPolicy()
	midday := uint64(86400*100 + 43200)

	cases := []struct {
		name   string
		number uint64
		want   bool
	}{
		{"pre cutover off coarse stride", 10388000, false},
		{"pre cutover off coarse stride on fine stride", 10387984, false},
		{"pre cutover on coarse stride", 10387920, true},
		{"post cutover on fine stride", 10388256, true},
		{"post cutover off fine stride", 10388257, false},
		{"post cutover coarse stride no longer required", 10388272, true},
	}

	for _, tc := range cases {
		if got := policy.ShouldSweep(tc.number, midday); got != tc.want {
			t.Errorf("%s: ShouldSweep(%d, %d) = %v, want %v", tc.name, tc.number, midday, got, tc.want)
		}
	}
}
