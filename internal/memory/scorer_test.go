package memory

import "testing"

func TestSuccessScore(t *testing.T) {
	tests := []struct {
		pnlPct float64
		want   int
	}{
		{0, 50},
		{2, 60},
		{10, 100},
		{-10, 0},
		{25, 100},
		{-25, 0},
		{1.5, 58},  // 57.5 rounds half away from zero
		{-0.3, 49}, // 48.5 rounds half away from zero
	}

	for _, tt := range tests {
		if got := SuccessScore(tt.pnlPct); got != tt.want {
			t.Errorf("SuccessScore(%v) = %d, want %d", tt.pnlPct, got, tt.want)
		}
	}
}
