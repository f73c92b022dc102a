package market

import "fmt"

// TrendDirection represents market trend
type TrendDirection string

const (
	TrendBullish  TrendDirection = "bullish"
	TrendBearish  TrendDirection = "bearish"
	TrendSideways TrendDirection = "sideways"
)

// Level is a low/medium/high bucket used for volatility and volume
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Condition is the classified market regime for a candle window.
// RSI is informational only and not part of regime identity.
type Condition struct {
	Trend      TrendDirection `json:"trend"`
	Volatility Level          `json:"volatility"`
	Volume     Level          `json:"volume"`
	RSI        *int           `json:"rsi,omitempty"`
}

// RegimeKey identifies a market regime by its three buckets. Two conditions
// belong to the same regime iff their keys are equal; RSI is excluded.
type RegimeKey struct {
	Trend      TrendDirection `json:"trend"`
	Volatility Level          `json:"volatility"`
	Volume     Level          `json:"volume"`
}

// Key returns the regime key for a condition
func (c Condition) Key() RegimeKey {
	return RegimeKey{Trend: c.Trend, Volatility: c.Volatility, Volume: c.Volume}
}

// String renders the wire form of the key, e.g. "bullish-low-medium"
func (k RegimeKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Trend, k.Volatility, k.Volume)
}
