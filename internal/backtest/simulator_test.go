package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/config"
	"openclaw/internal/market"
	"openclaw/internal/portfolio"
	"openclaw/internal/strategy"
)

type testBar struct {
	o, h, l, c float64
	panicBar   bool
}

var testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// buildFrame constructs an enriched frame by hand: indicator columns are
// set so the panic detector fires exactly on the marked bars and nothing
// else ever triggers.
func buildFrame(ticker string, bars []testBar) *indicator.Frame {
	n := len(bars)
	f := &indicator.Frame{
		Ticker:     ticker,
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
	for i, b := range bars {
		open := testBase.AddDate(0, 0, i)
		f.Candles[i] = market.Candle{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(24*time.Hour - time.Millisecond).UnixMilli(),
			Open:      b.o, High: b.h, Low: b.l, Close: b.c,
			Volume: 1000,
		}
		f.SMA200[i] = math.NaN()
		f.EMA50[i] = math.NaN()
		f.RSI14[i] = 50
		f.BBLower[i] = 0
		f.RVOL[i] = 1
		f.ATR14[i] = 2
		f.Regime[i] = indicator.RegimeSideways
		if b.panicBar {
			f.RSI14[i] = 25
			f.BBLower[i] = b.c + 1
			f.RVOL[i] = 1.5
		}
	}
	return f
}

func flatBars(n int, price float64) []testBar {
	bars := make([]testBar, n)
	for i := range bars {
		bars[i] = testBar{o: price, h: price, l: price, c: price}
	}
	return bars
}

func simConfig() config.SimConfig {
	return config.SimConfig{
		InitialBalance: 100000,
		LookbackDays:   30,
		MinConfidence:  70,
		MinPrice:       5,
	}
}

func runSim(t *testing.T, frames map[string]*indicator.Frame, sim config.SimConfig) *Result {
	t.Helper()
	s := NewSimulator(frames, strategy.NewRegistry(), sim, config.DefaultRiskParams())
	res, err := s.Run(context.Background(), RunConfig{InitialBalance: sim.InitialBalance})
	assert.NoError(t, err)
	return res
}

func TestGapThroughStopFillsAtOpen(t *testing.T) {
	bars := flatBars(5, 100)
	bars = append(bars,
		testBar{o: 96, h: 97, l: 94.5, c: 95, panicBar: true},
		testBar{o: 90, h: 91, l: 89, c: 90.5},
	)
	res := runSim(t, map[string]*indicator.Frame{"TEST": buildFrame("TEST", bars)}, simConfig())

	assert.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.Equal(t, portfolio.ExitStopLoss, trade.Reason)
	assert.Equal(t, 95.0, trade.EntryPrice)
	// Stop sits at 93 but the session gapped to 90: fill at the open.
	assert.Equal(t, 90.0, trade.ExitPrice)
	assert.Equal(t, testBase.AddDate(0, 0, 5), trade.EntryDate)
	assert.Equal(t, testBase.AddDate(0, 0, 6), trade.ExitDate)
	assert.Len(t, res.Equity, 7)
}

func TestLadderPartialThenTrailedStop(t *testing.T) {
	bars := flatBars(5, 100)
	bars = append(bars,
		testBar{o: 96, h: 97, l: 94.5, c: 95, panicBar: true},
		testBar{o: 97, h: 101.5, l: 96.5, c: 100},
		testBar{o: 97, h: 97.2, l: 96.8, c: 97},
	)
	res := runSim(t, map[string]*indicator.Frame{"TEST": buildFrame("TEST", bars)}, simConfig())

	assert.Len(t, res.Trades, 2)
	tp1, stop := res.Trades[0], res.Trades[1]

	assert.Equal(t, portfolio.ExitLadderTP1, tp1.Reason)
	// The ladder fires at the signal's declared target (entry + 3 ATR for
	// a capitulation entry), not at a generic ATR default.
	assert.Equal(t, 101.0, tp1.ExitPrice)
	assert.InDelta(t, stop.Qty, tp1.Qty, 1e-6)

	assert.Equal(t, portfolio.ExitStopLoss, stop.Reason)
	// The trail ratcheted to 97.5 off the 101.5 high; still labelled a
	// stop exit even though it locks in profit.
	assert.Equal(t, 97.0, stop.ExitPrice)
	assert.Greater(t, stop.PnL, 0.0)
}

func TestNoLookAhead(t *testing.T) {
	bars := flatBars(5, 100)
	bars = append(bars, testBar{o: 96, h: 97, l: 94.5, c: 95, panicBar: true})

	full := append(append([]testBar(nil), bars...),
		testBar{o: 96, h: 96.5, l: 95.5, c: 96},
	)
	res := runSim(t, map[string]*indicator.Frame{"TEST": buildFrame("TEST", full)}, simConfig())

	// The entry lands on the signal day itself, never earlier: equity is
	// perfectly flat before the signal bar.
	for _, pt := range res.Equity[:5] {
		assert.Equal(t, 100000.0, pt.Equity)
	}
	if assert.NotEmpty(t, res.Trades) {
		assert.Equal(t, testBase.AddDate(0, 0, 5), res.Trades[0].EntryDate)
	}

	// Truncating the history before the signal bar produces no trades.
	truncated := runSim(t, map[string]*indicator.Frame{"TEST": buildFrame("TEST", bars[:5])}, simConfig())
	assert.Empty(t, truncated.Trades)
}

func TestPennyAndConfidenceFilters(t *testing.T) {
	t.Run("below min price", func(t *testing.T) {
		bars := flatBars(5, 4)
		bars = append(bars, testBar{o: 4, h: 4.2, l: 3.8, c: 4, panicBar: true})
		res := runSim(t, map[string]*indicator.Frame{"PENNY": buildFrame("PENNY", bars)}, simConfig())
		assert.Empty(t, res.Trades)
	})

	t.Run("below min confidence", func(t *testing.T) {
		bars := flatBars(5, 100)
		bars = append(bars, testBar{o: 96, h: 97, l: 94.5, c: 95, panicBar: true})
		cfg := simConfig()
		cfg.MinConfidence = 80 // panic base confidence is 75
		res := runSim(t, map[string]*indicator.Frame{"TEST": buildFrame("TEST", bars)}, cfg)
		assert.Empty(t, res.Trades)
	})
}

func TestOpenPositionLiquidatedAtEnd(t *testing.T) {
	bars := flatBars(5, 100)
	bars = append(bars,
		testBar{o: 96, h: 97, l: 94.5, c: 95, panicBar: true},
		testBar{o: 95.5, h: 96, l: 94, c: 95.8},
	)
	res := runSim(t, map[string]*indicator.Frame{"TEST": buildFrame("TEST", bars)}, simConfig())

	assert.Len(t, res.Trades, 1)
	assert.Equal(t, portfolio.ExitSignal, res.Trades[0].Reason)
	assert.Equal(t, 95.8, res.Trades[0].ExitPrice)
}

func TestRunStatsSummary(t *testing.T) {
	bars := flatBars(5, 100)
	bars = append(bars,
		testBar{o: 96, h: 97, l: 94.5, c: 95, panicBar: true},
		testBar{o: 90, h: 91, l: 89, c: 90.5},
	)
	res := runSim(t, map[string]*indicator.Frame{"TEST": buildFrame("TEST", bars)}, simConfig())

	stats := res.Run.Stats
	assert.Equal(t, RunStatusDone, res.Run.Status)
	assert.Equal(t, 1, stats.Trades)
	assert.Equal(t, 1, stats.Losses)
	assert.Zero(t, stats.Wins)
	assert.Less(t, stats.Profit, 0.0)
	assert.Greater(t, stats.MaxDrawdownPct, 0.0)
	assert.NotEmpty(t, res.Run.ID)
}
