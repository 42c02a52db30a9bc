package models

// Tick is one synthetic price sample for an asset. Times are
// milliseconds since epoch.
type Tick struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Candle is an OHLC summary of all ticks inside one timeframe bucket.
// Time is the bucket start, aligned to the timeframe. Candles are
// derived from the tick window on every aggregation pass and never
// persisted; the most recent candle is live and keeps mutating until
// its bucket closes.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}
