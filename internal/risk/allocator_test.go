package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"openclaw/internal/config"
	"openclaw/internal/position"
	"openclaw/internal/strategy"
)

func TestPositionSizeRiskLimited(t *testing.T) {
	a := NewAllocator(100000, 0.02)
	// 90% win rate at 2:1 gives a huge Kelly qty; the risk cap binds.
	s := a.PositionSize(100, 90, 90, 2)

	assert.True(t, s.Tradeable)
	assert.Equal(t, 200.0, s.Qty)
	assert.Equal(t, 2000.0, s.MaxLoss)
	assert.InDelta(t, 0.85, s.KellyFraction, 1e-9)
	assert.InDelta(t, 0.425, s.HalfKelly, 1e-9)
	assert.Equal(t, ConstraintRiskLimit, s.Constraint)
}

func TestPositionSizeKellyLimited(t *testing.T) {
	a := NewAllocator(100000, 0.02)
	// Thin edge: half-Kelly is the smaller of the two sizes.
	s := a.PositionSize(100, 95, 55, 1)

	assert.True(t, s.Tradeable)
	assert.Equal(t, 50.0, s.Qty)
	assert.Equal(t, 250.0, s.MaxLoss)
	assert.InDelta(t, 0.10, s.KellyFraction, 1e-9)
	assert.InDelta(t, 0.05, s.HalfKelly, 1e-9)
	assert.Equal(t, ConstraintKelly, s.Constraint)
}

func TestPositionSizeNegativeEdge(t *testing.T) {
	a := NewAllocator(100000, 0.02)
	s := a.PositionSize(100, 95, 30, 1)

	assert.False(t, s.Tradeable)
	assert.Zero(t, s.Qty)
	assert.Less(t, s.KellyFraction, 0.0)
}

func TestPositionSizeDegenerateInput(t *testing.T) {
	a := NewAllocator(100000, 0.02)

	assert.Zero(t, a.PositionSize(100, 100, 60, 2))
	assert.Zero(t, a.PositionSize(0, 95, 60, 2))
}

func TestCanPyramid(t *testing.T) {
	pos := position.New(position.Options{
		Ticker:     "BTC-USD",
		Side:       strategy.Long,
		EntryPrice: 100,
		Qty:        1,
		EntryDate:  time.Now().UTC(),
		ATR:        2,
		Params:     config.DefaultRiskParams(),
	})

	// Adding to a position that still risks the initial stop is not allowed.
	assert.False(t, CanPyramid(pos))
	assert.False(t, CanPyramid(nil))

	// Once the stop is promoted past breakeven, adds ride locked-in gains.
	pos.Update(103, 2)
	assert.True(t, CanPyramid(pos))
}

func TestRiskScaledQtyConfidenceScaling(t *testing.T) {
	params := config.DefaultRiskParams()

	// Wide stop so the position cap stays out of the way.
	neutral := RiskScaledQty(100000, 100, 50, 50, params)
	double := RiskScaledQty(100000, 100, 50, 100, params)

	assert.InDelta(t, 40.0, neutral, 1e-9)
	assert.InDelta(t, 80.0, double, 1e-9)
}

func TestRiskScaledQtyPositionCap(t *testing.T) {
	params := config.DefaultRiskParams()

	// Tight stop inflates the raw qty; the cost cap pins it to 10% of
	// equity.
	qty := RiskScaledQty(100000, 95, 93, 75, params)
	assert.InDelta(t, 10000.0/95, qty, 1e-9)
}

func TestRiskScaledQtyDegenerate(t *testing.T) {
	params := config.DefaultRiskParams()

	assert.Zero(t, RiskScaledQty(100000, 100, 100, 80, params))
	assert.Zero(t, RiskScaledQty(100000, 0, 95, 80, params))
}
