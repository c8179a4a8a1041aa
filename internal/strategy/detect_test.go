package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/market"
)

func emptyFrame(n int) *indicator.Frame {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &indicator.Frame{
		Candles:    make([]market.Candle, n),
		SMA200:     make([]float64, n),
		EMA50:      make([]float64, n),
		RSI14:      make([]float64, n),
		BBLower:    make([]float64, n),
		RVOL:       make([]float64, n),
		MACD:       make([]float64, n),
		MACDSignal: make([]float64, n),
		MACDHist:   make([]float64, n),
		ATR14:      make([]float64, n),
		Regime:     make([]string, n),
	}
	for i := range f.Candles {
		open := base.AddDate(0, 0, i)
		f.Candles[i] = market.Candle{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(24*time.Hour - time.Millisecond).UnixMilli(),
			Open:      100, High: 101, Low: 99, Close: 100, Volume: 1000,
		}
		f.SMA200[i] = math.NaN()
		f.EMA50[i] = math.NaN()
		f.RSI14[i] = 50
		f.RVOL[i] = 1
		f.ATR14[i] = 2
		f.Regime[i] = indicator.RegimeSideways
	}
	return f
}

func TestTrinityPullbackSignal(t *testing.T) {
	f := emptyFrame(10)
	f.Ticker = "AAPL"
	last := 9
	f.Candles[last].Close = 102
	f.SMA200[last] = 99
	f.EMA50[last] = 101 // ~1% above the EMA, inside the band
	f.RSI14[last] = 48

	sig := trinityDetector{}.Evaluate(f)
	if !assert.NotNil(t, sig) {
		return
	}
	assert.Equal(t, "trinity", sig.Strategy)
	assert.Equal(t, Long, sig.Side)
	assert.Equal(t, 102.0, sig.Price)
	// 102 - 2*2 = 98, already under the SMA so it stands.
	assert.Equal(t, 98.0, sig.StopLoss)
	assert.Equal(t, 110.0, sig.TakeProfit)
	assert.Equal(t, 80.0, sig.Confidence)
	assert.Equal(t, 2.0, sig.RiskReward())
}

func TestTrinityStopParksUnderSMA(t *testing.T) {
	f := emptyFrame(10)
	last := 9
	f.Candles[last].Close = 102
	f.SMA200[last] = 95 // further down than the ATR stop
	f.EMA50[last] = 101
	f.RSI14[last] = 48

	sig := trinityDetector{}.Evaluate(f)
	if assert.NotNil(t, sig) {
		assert.Equal(t, 95.0, sig.StopLoss)
		assert.Equal(t, 116.0, sig.TakeProfit)
	}
}

func TestTrinityRejectsOverheatedRSI(t *testing.T) {
	f := emptyFrame(10)
	last := 9
	f.Candles[last].Close = 102
	f.SMA200[last] = 95
	f.EMA50[last] = 101
	f.RSI14[last] = 72

	assert.Nil(t, trinityDetector{}.Evaluate(f))
}

func TestPanicCapitulationSignal(t *testing.T) {
	f := emptyFrame(10)
	f.Ticker = "NVDA"
	last := 9
	f.Candles[last].Close = 95
	f.BBLower[last] = 96
	f.RSI14[last] = 25
	f.RVOL[last] = 1.6

	sig := panicDetector{}.Evaluate(f)
	if !assert.NotNil(t, sig) {
		return
	}
	assert.Equal(t, "panic", sig.Strategy)
	assert.Equal(t, 93.0, sig.StopLoss)
	assert.Equal(t, 101.0, sig.TakeProfit)
	assert.Equal(t, 75.0, sig.Confidence)
}

func TestPanicNeedsVolumeConfirmation(t *testing.T) {
	f := emptyFrame(10)
	last := 9
	f.Candles[last].Close = 95
	f.BBLower[last] = 96
	f.RSI14[last] = 25
	f.RVOL[last] = 1.0

	assert.Nil(t, panicDetector{}.Evaluate(f))
}

func TestTwoBFailedBreakdown(t *testing.T) {
	f := emptyFrame(61)
	f.Ticker = "COIN"
	// Swing low at bar 30, range high at bar 10, the low holds until today.
	for i := range f.Candles {
		f.Candles[i].Low = 95
		f.Candles[i].High = 105
		f.Candles[i].Close = 100
	}
	f.Candles[30].Low = 90
	f.Candles[10].High = 110
	// Today undercuts the swing low intraday and reclaims it at the close.
	last := 60
	f.Candles[last].Low = 89.5
	f.Candles[last].Close = 91
	f.RSI14[last] = 45

	sig := twoBDetector{}.Evaluate(f)
	if !assert.NotNil(t, sig) {
		return
	}
	assert.Equal(t, "2b", sig.Strategy)
	assert.Equal(t, 91.0, sig.Price)
	// 89.5 - 0.25*2 = 89, above the 5% floor of 86.45.
	assert.Equal(t, 89.0, sig.StopLoss)
	// Midpoint of the 90..110 prior range.
	assert.Equal(t, 100.0, sig.TakeProfit)
	assert.Equal(t, 70.0, sig.Confidence)
}

func TestTwoBRequiresHeldSwingLow(t *testing.T) {
	f := emptyFrame(61)
	for i := range f.Candles {
		f.Candles[i].Low = 95
		f.Candles[i].High = 105
		f.Candles[i].Close = 100
	}
	f.Candles[30].Low = 90
	f.Candles[45].Low = 88 // the low broke in between
	last := 60
	f.Candles[last].Low = 89.5
	f.Candles[last].Close = 91
	f.RSI14[last] = 45

	assert.Nil(t, twoBDetector{}.Evaluate(f))
}

func TestRegistryFilterAndNormalization(t *testing.T) {
	f := emptyFrame(10)
	last := 9
	f.Candles[last].Close = 95
	f.BBLower[last] = 96
	f.RSI14[last] = 25
	f.RVOL[last] = 1.6

	t.Run("full suite finds the panic setup", func(t *testing.T) {
		sig := NewRegistry().Evaluate(f)
		if assert.NotNil(t, sig) {
			assert.Equal(t, "panic", sig.Strategy)
		}
	})
	t.Run("filtered to trinity it stays quiet", func(t *testing.T) {
		assert.Nil(t, NewRegistry("trinity").Evaluate(f))
	})
	t.Run("names normalize case and aliases", func(t *testing.T) {
		sig := NewRegistry("PANIC").Evaluate(f)
		assert.NotNil(t, sig)
	})
	t.Run("nil frame is no signal", func(t *testing.T) {
		assert.Nil(t, NewRegistry().Evaluate(nil))
	})
}

func TestParseSide(t *testing.T) {
	long, err := ParseSide("LONG")
	assert.NoError(t, err)
	assert.Equal(t, Long, long)
	assert.Equal(t, 1.0, long.Sign())

	short, err := ParseSide("short")
	assert.NoError(t, err)
	assert.Equal(t, Short, short)
	assert.Equal(t, -1.0, short.Sign())

	_, err = ParseSide("flat")
	assert.Error(t, err)
}
