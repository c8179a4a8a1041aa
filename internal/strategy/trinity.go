package strategy

import (
	"fmt"
	"math"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/pkg/round"
)

// Trinity: trend pullback. Price above the 200-day trend, pulled back into
// the 50-day EMA band, momentum neither washed out nor overheated.
const (
	trinityEMABandLow  = -0.015
	trinityEMABandHigh = 0.03
	trinityRSIMin      = 35
	trinityRSIMax      = 65
	trinityTPMult      = 2.0
	trinitySLMult      = 2.0
)

type trinityDetector struct{}

func (trinityDetector) Name() string { return "trinity" }

func trinityRule(f *indicator.Frame, i int) bool {
	price := f.Candles[i].Close
	sma, ema, rsi := f.SMA200[i], f.EMA50[i], f.RSI14[i]
	if math.IsNaN(sma) || math.IsNaN(ema) || math.IsNaN(rsi) || ema <= 0 {
		return false
	}
	if price <= sma {
		return false
	}
	dist := (price - ema) / ema
	if dist < trinityEMABandLow || dist > trinityEMABandHigh {
		return false
	}
	return rsi >= trinityRSIMin && rsi <= trinityRSIMax
}

func (trinityDetector) Evaluate(f *indicator.Frame) *Signal {
	i := f.Len() - 1
	if i < 0 || !trinityRule(f, i) {
		return nil
	}
	atr := f.ATR14[i]
	if math.IsNaN(atr) || atr <= 0 {
		return nil
	}
	price := f.Candles[i].Close

	stop := round.Price(price - trinitySLMult*atr)
	// Park the stop under the 200-day line when that is the nearer floor.
	if sma := f.SMA200[i]; stop > sma {
		stop = round.Price(sma)
	}
	risk := price - stop
	target := round.Price(price + risk*2)

	stats := regimeHistory(f, trinityRule, trinityTPMult, trinitySLMult)
	confidence := 80.0
	if stats.RecentDecay {
		confidence = 20
	}
	if stats.Total.WinRate > 60 {
		confidence += 10
	}

	return &Signal{
		Ticker:     f.Ticker,
		Strategy:   "trinity",
		Side:       Long,
		SideLabel:  Long.String(),
		Price:      price,
		StopLoss:   stop,
		TakeProfit: target,
		Confidence: confidence,
		ATR:        atr,
		Metrics: map[string]string{
			"dist_to_ema":  fmt.Sprintf("%.2f%%", (price-f.EMA50[i])/f.EMA50[i]*100),
			"rsi":          fmt.Sprintf("%.1f", f.RSI14[i]),
			"macd_bullish": fmt.Sprintf("%t", f.MACD[i] > f.MACDSignal[i]),
			"regime":       f.Regime[i],
		},
	}
}
