package memory

import "math"

// Success score formula constants. Break-even centers at scoreBase and each
// 1% of profit or loss moves the score scoreSlope points, saturating at the
// 0 and 100 bounds (i.e. beyond +-10% pnl).
const (
	scoreBase  = 50.0
	scoreSlope = 5.0
)

// SuccessScore maps a trade's realized pnl percentage to a bounded 0-100
// score.
func SuccessScore(pnlPercentage float64) int {
	score := scoreBase + pnlPercentage*scoreSlope
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}
