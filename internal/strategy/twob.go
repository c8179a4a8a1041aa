package strategy

import (
	"fmt"
	"math"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/pkg/round"
)

// 2B reversal: price undercuts a prior swing low from the 20-60 bar window
// and closes back above it the same day, a failed breakdown. Stop goes
// under the undercut low, capped at 5% below entry; target is the midpoint
// of the prior range.
const (
	twoBLookbackMin = 20
	twoBLookbackMax = 60
	twoBStopCapPct  = 0.05
	twoBRSIMax      = 50
)

type twoBDetector struct{}

func (twoBDetector) Name() string { return "2b" }

func (twoBDetector) Evaluate(f *indicator.Frame) *Signal {
	i := f.Len() - 1
	if i < twoBLookbackMax {
		return nil
	}
	atr := f.ATR14[i]
	rsi := f.RSI14[i]
	if math.IsNaN(atr) || atr <= 0 || math.IsNaN(rsi) {
		return nil
	}
	// Reversals only set up after weakness.
	if rsi >= twoBRSIMax {
		return nil
	}

	bar := f.Candles[i]
	swingLow, swingIdx := math.MaxFloat64, -1
	rangeHigh := 0.0
	for j := i - twoBLookbackMax; j <= i-twoBLookbackMin; j++ {
		if f.Candles[j].Low < swingLow {
			swingLow = f.Candles[j].Low
			swingIdx = j
		}
		if f.Candles[j].High > rangeHigh {
			rangeHigh = f.Candles[j].High
		}
	}
	if swingIdx < 0 {
		return nil
	}
	// The swing low must have held between its formation and today.
	for j := swingIdx + 1; j < i; j++ {
		if f.Candles[j].Low < swingLow {
			return nil
		}
	}
	// Undercut intraday, reclaimed at the close.
	if bar.Low >= swingLow || bar.Close <= swingLow {
		return nil
	}

	price := bar.Close
	stop := round.Price(bar.Low - 0.25*atr)
	if floor := price * (1 - twoBStopCapPct); stop < floor {
		stop = round.Price(floor)
	}
	if stop >= price {
		return nil
	}
	target := round.Price((swingLow + rangeHigh) / 2)
	if target <= price {
		target = round.Price(price + 2*atr)
	}

	return &Signal{
		Ticker:     f.Ticker,
		Strategy:   "2b",
		Side:       Long,
		SideLabel:  Long.String(),
		Price:      price,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: 70,
		ATR:        atr,
		Metrics: map[string]string{
			"swing_low": fmt.Sprintf("%.2f", swingLow),
			"undercut":  fmt.Sprintf("%.2f%%", (swingLow-bar.Low)/swingLow*100),
			"rsi":       fmt.Sprintf("%.1f", rsi),
			"regime":    f.Regime[i],
		},
	}
}
