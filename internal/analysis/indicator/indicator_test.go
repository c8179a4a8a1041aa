package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"openclaw/internal/market"
)

func trendingCandles(n int) []market.Candle {
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, n)
	for i := range candles {
		price := 100 + float64(i)*0.3 + 2*math.Sin(float64(i)/8)
		open := base.AddDate(0, 0, i)
		candles[i] = market.Candle{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(24*time.Hour - time.Millisecond).UnixMilli(),
			Open:      price - 0.2,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1_000_000,
		}
	}
	return candles
}

func TestEnrichColumnAlignment(t *testing.T) {
	f, err := Enrich("AAPL", trendingCandles(260))
	assert.NoError(t, err)
	assert.Equal(t, 260, f.Len())

	for _, col := range [][]float64{f.SMA200, f.EMA50, f.RSI14, f.BBLower, f.RVOL, f.MACD, f.MACDSignal, f.MACDHist, f.ATR14} {
		assert.Len(t, col, 260)
	}
	assert.Len(t, f.Regime, 260)
}

func TestEnrichWarmupIsNaN(t *testing.T) {
	f, err := Enrich("AAPL", trendingCandles(260))
	assert.NoError(t, err)

	assert.True(t, math.IsNaN(f.SMA200[198]))
	assert.False(t, math.IsNaN(f.SMA200[199]))
	assert.True(t, math.IsNaN(f.RSI14[13]))
	assert.False(t, math.IsNaN(f.RSI14[14]))
	assert.True(t, math.IsNaN(f.ATR14[13]))
	assert.False(t, math.IsNaN(f.ATR14[14]))
}

func TestEnrichEmptyInput(t *testing.T) {
	_, err := Enrich("AAPL", nil)
	assert.Error(t, err)
}

func TestRegimeClassification(t *testing.T) {
	f, err := Enrich("AAPL", trendingCandles(260))
	assert.NoError(t, err)

	// Steady uptrend: price above a rising SMA200 once warm.
	assert.Equal(t, RegimeBull, f.Regime[259])
	// Before the SMA warms up everything is sideways.
	assert.Equal(t, RegimeSideways, f.Regime[100])
}

func TestSliceIsPointInTime(t *testing.T) {
	f, err := Enrich("AAPL", trendingCandles(260))
	assert.NoError(t, err)

	s := f.Slice(100)
	assert.Equal(t, 100, s.Len())
	assert.Len(t, s.ATR14, 100)
	assert.Equal(t, f.Candles[99], s.Candles[99])

	// Out-of-range ends clamp instead of panicking.
	assert.Equal(t, 0, f.Slice(-5).Len())
	assert.Equal(t, 260, f.Slice(999).Len())
}

func TestLastATR(t *testing.T) {
	f, err := Enrich("AAPL", trendingCandles(260))
	assert.NoError(t, err)
	assert.Greater(t, f.LastATR(), 0.0)

	// Inside the warmup window there is no ATR yet.
	assert.Zero(t, f.Slice(10).LastATR())
}

func TestRVOLRelativeToAverage(t *testing.T) {
	candles := trendingCandles(60)
	// Double the final bar's volume: RVOL should sit near 2.
	candles[59].Volume *= 2
	f, err := Enrich("AAPL", candles)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, f.RVOL[59], 0.15)
}
