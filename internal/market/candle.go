package market

import (
	"sort"
	"time"
)

// Candle is one daily OHLCV bar. Times are unix milliseconds.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Day returns the UTC calendar day the candle belongs to.
func (c Candle) Day() time.Time {
	return time.UnixMilli(c.OpenTime).UTC().Truncate(24 * time.Hour)
}

// SortValid orders candles by open time and drops zero-price bars and
// duplicate timestamps. This is the sanity pass every source's output goes
// through before indicator enrichment.
func SortValid(candles []Candle) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if c.Close <= 0 || c.High <= 0 || c.Low <= 0 {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime < out[j].OpenTime })

	dedup := out[:0]
	var prev int64
	for _, c := range out {
		if c.OpenTime == prev && prev != 0 {
			continue
		}
		prev = c.OpenTime
		dedup = append(dedup, c)
	}
	return dedup
}
