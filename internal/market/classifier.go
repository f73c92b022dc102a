package market

import "math"

// ClassifyWindow is the number of most-recent candles the classifier uses
const ClassifyWindow = 14

// Bucket thresholds. Trend is the percentage move first-to-last close,
// volatility is the coefficient of variation of closes in percent, volume is
// the ratio of the last-3 mean to the full-window mean.
const (
	trendBullishPct   = 3.0
	trendBearishPct   = -3.0
	volatilityLowPct  = 1.5
	volatilityHighPct = 4.0
	volumeLowRatio    = 0.7
	volumeHighRatio   = 1.5
)

// Classify derives the market regime from a candle window, most-recent-last.
// With fewer than ClassifyWindow candles it returns the neutral default
// (sideways / medium / medium, no RSI) rather than an error.
func Classify(candles []Candle) Condition {
	if len(candles) < ClassifyWindow {
		return Condition{Trend: TrendSideways, Volatility: LevelMedium, Volume: LevelMedium}
	}

	window := candles[len(candles)-ClassifyWindow:]

	cond := Condition{
		Trend:      classifyTrend(window),
		Volatility: classifyVolatility(window),
		Volume:     classifyVolume(window),
	}

	rsi := int(math.Round(CalculateRSI(candles, ClassifyWindow)))
	cond.RSI = &rsi

	return cond
}

func classifyTrend(window []Candle) TrendDirection {
	first := window[0].Close
	last := window[len(window)-1].Close
	if first == 0 {
		return TrendSideways
	}

	changePct := (last - first) / first * 100
	switch {
	case changePct > trendBullishPct:
		return TrendBullish
	case changePct < trendBearishPct:
		return TrendBearish
	default:
		return TrendSideways
	}
}

// classifyVolatility buckets the population standard deviation of closes
// relative to their mean, in percent.
func classifyVolatility(window []Candle) Level {
	mean := 0.0
	for _, c := range window {
		mean += c.Close
	}
	mean /= float64(len(window))
	if mean == 0 {
		return LevelMedium
	}

	variance := 0.0
	for _, c := range window {
		d := c.Close - mean
		variance += d * d
	}
	variance /= float64(len(window))

	cvPct := math.Sqrt(variance) / mean * 100
	switch {
	case cvPct < volatilityLowPct:
		return LevelLow
	case cvPct > volatilityHighPct:
		return LevelHigh
	default:
		return LevelMedium
	}
}

// classifyVolume compares recent volume (last 3 candles) against the window
// average.
func classifyVolume(window []Candle) Level {
	total := 0.0
	for _, c := range window {
		total += c.Volume
	}
	avg := total / float64(len(window))
	if avg == 0 {
		return LevelMedium
	}

	recent := 0.0
	for _, c := range window[len(window)-3:] {
		recent += c.Volume
	}
	recent /= 3

	ratio := recent / avg
	switch {
	case ratio < volumeLowRatio:
		return LevelLow
	case ratio > volumeHighRatio:
		return LevelHigh
	default:
		return LevelMedium
	}
}

// CalculateRSI calculates the Relative Strength Index over the last period
// transitions using one-shot gain/loss averaging (not Wilder smoothing).
// Returns neutral 50 when there are not enough candles.
func CalculateRSI(candles []Candle, period int) float64 {
	if len(candles) < period+1 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0

	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
