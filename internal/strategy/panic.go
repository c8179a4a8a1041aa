package strategy

import (
	"fmt"
	"math"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/pkg/round"
)

// Panic: mean reversion into capitulation. Close below the lower Bollinger
// band, RSI in extreme-fear territory, volume confirming the flush.
const (
	panicRSIMax  = 30
	panicRVOLMin = 1.2
	panicTPMult  = 3.0
	panicSLMult  = 1.0
)

type panicDetector struct{}

func (panicDetector) Name() string { return "panic" }

func panicRule(f *indicator.Frame, i int) bool {
	price := f.Candles[i].Close
	bbl, rsi, rvol := f.BBLower[i], f.RSI14[i], f.RVOL[i]
	if math.IsNaN(bbl) || math.IsNaN(rsi) || math.IsNaN(rvol) {
		return false
	}
	if price >= bbl {
		return false
	}
	if rsi >= panicRSIMax {
		return false
	}
	return rvol >= panicRVOLMin
}

func (panicDetector) Evaluate(f *indicator.Frame) *Signal {
	i := f.Len() - 1
	if i < 0 || !panicRule(f, i) {
		return nil
	}
	atr := f.ATR14[i]
	if math.IsNaN(atr) || atr <= 0 {
		return nil
	}
	price := f.Candles[i].Close
	stop := round.Price(price - panicSLMult*atr)
	target := round.Price(price + panicTPMult*atr)

	stats := regimeHistory(f, panicRule, panicTPMult, panicSLMult)
	confidence := 75.0 // riskier base than trinity
	if stats.RecentDecay {
		confidence = 15
	}
	if stats.Total.WinRate > 70 {
		confidence += 15
	}

	return &Signal{
		Ticker:     f.Ticker,
		Strategy:   "panic",
		Side:       Long,
		SideLabel:  Long.String(),
		Price:      price,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: confidence,
		ATR:        atr,
		Metrics: map[string]string{
			"rsi":           fmt.Sprintf("%.1f", f.RSI14[i]),
			"rvol":          fmt.Sprintf("%.1f", f.RVOL[i]),
			"dist_below_bb": fmt.Sprintf("%.1f%%", (f.BBLower[i]-price)/f.BBLower[i]*100),
			"regime":        f.Regime[i],
		},
	}
}
