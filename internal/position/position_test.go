package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"openclaw/internal/config"
	"openclaw/internal/strategy"
)

func newLong(t *testing.T, entry, atr float64) *Position {
	t.Helper()
	return New(Options{
		Ticker:     "BTC-USD",
		Side:       strategy.Long,
		EntryPrice: entry,
		Qty:        1,
		EntryDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Strategy:   "trinity",
		ATR:        atr,
		Params:     config.DefaultRiskParams(),
	})
}

func TestLongExitLifecycle(t *testing.T) {
	pos := newLong(t, 60000, 2000)
	assert.Equal(t, 56000.0, pos.CurrentStop())
	assert.Equal(t, 64000.0, pos.TP1())

	t.Run("below breakeven trigger the stop holds", func(t *testing.T) {
		upd := pos.Update(61000, 2000)
		assert.Equal(t, 56000.0, upd.Stop)
		assert.Equal(t, ActionNone, upd.Action)
		assert.False(t, pos.BreakevenActive())
	})

	t.Run("breakeven promotion at 1.5 ATR in profit", func(t *testing.T) {
		upd := pos.Update(63100, 2000)
		assert.Equal(t, 60060.0, upd.Stop)
		assert.True(t, pos.BreakevenActive())
		assert.Equal(t, ActionNone, upd.Action)
	})

	t.Run("ladder partial and trail at 2 ATR in profit", func(t *testing.T) {
		upd := pos.Update(64500, 2000)
		assert.Equal(t, ActionPartialExit, upd.Action)
		assert.Equal(t, 0.5, upd.PartialQty)
		assert.True(t, upd.TP1Hit)
		assert.Equal(t, 60500.0, upd.Stop)
	})

	t.Run("pullback never widens the stop", func(t *testing.T) {
		upd := pos.Update(62000, 2000)
		assert.Equal(t, 60500.0, upd.Stop)
		assert.Equal(t, ActionNone, upd.Action)
	})

	t.Run("trail follows a new extreme", func(t *testing.T) {
		upd := pos.Update(70000, 2000)
		assert.Equal(t, 66000.0, upd.Stop)
		assert.Equal(t, ActionNone, upd.Action)
	})

	t.Run("stop breach exits even in profit", func(t *testing.T) {
		upd := pos.Update(65000, 2000)
		assert.Equal(t, ActionFullExit, upd.Action)
		assert.Equal(t, HealthExit, upd.Health)
	})
}

func TestLadderFiresAtMostOnce(t *testing.T) {
	pos := newLong(t, 100, 2)
	upd := pos.Update(104, 2)
	assert.Equal(t, ActionPartialExit, upd.Action)
	pos.Reduce(upd.PartialQty)

	upd = pos.Update(104.5, 2)
	assert.Equal(t, ActionNone, upd.Action)
	assert.True(t, upd.TP1Hit)
	assert.Zero(t, upd.PartialQty)
}

func TestShortSymmetry(t *testing.T) {
	pos := New(Options{
		Ticker:     "ETH-USD",
		Side:       strategy.Short,
		EntryPrice: 100,
		Qty:        10,
		EntryDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Strategy:   "panic",
		ATR:        2,
		Params:     config.DefaultRiskParams(),
	})
	assert.Equal(t, 104.0, pos.CurrentStop())
	assert.Equal(t, 96.0, pos.TP1())

	upd := pos.Update(97, 2)
	assert.True(t, pos.BreakevenActive())
	assert.Equal(t, 99.9, upd.Stop)
	assert.Equal(t, ActionNone, upd.Action)

	upd = pos.Update(95, 2)
	assert.Equal(t, 99.0, upd.Stop)
	assert.Equal(t, ActionPartialExit, upd.Action)
	assert.Equal(t, 5.0, upd.PartialQty)
	assert.Equal(t, 50.0, upd.PnL)

	upd = pos.Update(99.5, 2)
	assert.Equal(t, ActionFullExit, upd.Action)
}

func TestExplicitStopWinsOnlyWhenProtective(t *testing.T) {
	protective := New(Options{
		Ticker: "AAPL", Side: strategy.Long, EntryPrice: 100, Qty: 1,
		ATR: 2, StopLoss: 97, Params: config.DefaultRiskParams(),
	})
	assert.Equal(t, 97.0, protective.CurrentStop())

	inverted := New(Options{
		Ticker: "AAPL", Side: strategy.Long, EntryPrice: 100, Qty: 1,
		ATR: 2, StopLoss: 105, Params: config.DefaultRiskParams(),
	})
	assert.Equal(t, 96.0, inverted.CurrentStop())
}

func TestATRFallback(t *testing.T) {
	pos := New(Options{
		Ticker: "NVDA", Side: strategy.Long, EntryPrice: 200, Qty: 1,
		ATR: 0, Params: config.DefaultRiskParams(),
	})
	assert.Equal(t, 10.0, pos.ATREntry())
	assert.Equal(t, 180.0, pos.CurrentStop())
}

func TestZeroCurrentATRFallsBackToEntryATR(t *testing.T) {
	pos := newLong(t, 100, 2)
	upd := pos.Update(110, 0)
	// Trail uses the entry ATR: 110 - 2*2.
	assert.Equal(t, 106.0, upd.Stop)
}

func TestSnapshotRoundTrip(t *testing.T) {
	pos := newLong(t, 100, 2)
	pos.Update(104, 2) // breakeven, trail, TP1

	snap := pos.Snapshot()
	restored, err := FromSnapshot(snap, config.DefaultRiskParams())
	assert.NoError(t, err)
	assert.Equal(t, pos.CurrentStop(), restored.CurrentStop())
	assert.Equal(t, pos.Extreme(), restored.Extreme())
	assert.True(t, restored.BreakevenActive())
	assert.True(t, restored.TP1Hit())

	// The restored machine continues where the old one stopped: no second
	// ladder fire, trail keeps ratcheting.
	upd := restored.Update(106, 2)
	assert.Equal(t, ActionNone, upd.Action)
	assert.Equal(t, 102.0, upd.Stop)
}

func TestFromSnapshotRejectsBadInput(t *testing.T) {
	_, err := FromSnapshot(Snapshot{Ticker: "X", Side: "sideways"}, config.DefaultRiskParams())
	assert.Error(t, err)

	_, err = FromSnapshot(Snapshot{Ticker: "X", Side: "LONG", EntryPrice: 0, Qty: 1}, config.DefaultRiskParams())
	assert.Error(t, err)
}
