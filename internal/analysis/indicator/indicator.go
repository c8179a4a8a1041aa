package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"openclaw/internal/market"
)

// Market regime labels derived from price vs SMA200 and the SMA200 slope.
const (
	RegimeBull     = "Bull"
	RegimeBear     = "Bear"
	RegimeSideways = "Sideways"
)

// Periods for the standard column set. These are fixed properties of the
// strategy suite, not tunables.
const (
	smaTrendPeriod = 200
	emaFastPeriod  = 50
	rsiPeriod      = 14
	bbPeriod       = 20
	volSMAPeriod   = 20
	macdFast       = 12
	macdSlow       = 26
	macdSignal     = 9
	atrPeriod      = 14
)

// Frame is a ticker's candle history plus the aligned indicator columns the
// strategy detectors read. Column slices always have len == len(Candles);
// positions before the warmup window hold NaN.
type Frame struct {
	Ticker  string
	Candles []market.Candle

	SMA200     []float64
	EMA50      []float64
	RSI14      []float64
	BBLower    []float64
	RVOL       []float64
	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64
	ATR14      []float64
	Regime     []string
}

// Enrich computes the full column set over a candle series.
func Enrich(ticker string, candles []market.Candle) (*Frame, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles for %s", ticker)
	}
	n := len(candles)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	f := &Frame{Ticker: ticker, Candles: candles}
	f.SMA200 = nanify(talib.Sma(closes, smaTrendPeriod), smaTrendPeriod-1)
	f.EMA50 = nanify(talib.Ema(closes, emaFastPeriod), emaFastPeriod-1)
	f.RSI14 = nanify(talib.Rsi(closes, rsiPeriod), rsiPeriod)

	_, _, lower := talib.BBands(closes, bbPeriod, 2, 2, talib.SMA)
	f.BBLower = nanify(lower, bbPeriod-1)

	volSMA := nanify(talib.Sma(volumes, volSMAPeriod), volSMAPeriod-1)
	f.RVOL = make([]float64, n)
	for i := range f.RVOL {
		if math.IsNaN(volSMA[i]) || volSMA[i] <= 0 {
			f.RVOL[i] = math.NaN()
			continue
		}
		f.RVOL[i] = volumes[i] / volSMA[i]
	}

	macd, signal, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	warm := macdSlow + macdSignal - 2
	f.MACD = nanify(macd, warm)
	f.MACDSignal = nanify(signal, warm)
	f.MACDHist = nanify(hist, warm)

	f.ATR14 = nanify(talib.Atr(highs, lows, closes, atrPeriod), atrPeriod)

	f.Regime = make([]string, n)
	for i := range f.Regime {
		f.Regime[i] = classifyRegime(f, closes, i)
	}
	return f, nil
}

// classifyRegime: Bull when price > SMA200 and SMA200 rising, Bear when
// price < SMA200 and SMA200 falling, else Sideways.
func classifyRegime(f *Frame, closes []float64, i int) string {
	if i == 0 || math.IsNaN(f.SMA200[i]) || math.IsNaN(f.SMA200[i-1]) {
		return RegimeSideways
	}
	slope := f.SMA200[i] - f.SMA200[i-1]
	switch {
	case closes[i] > f.SMA200[i] && slope > 0:
		return RegimeBull
	case closes[i] < f.SMA200[i] && slope < 0:
		return RegimeBear
	default:
		return RegimeSideways
	}
}

func (f *Frame) Len() int { return len(f.Candles) }

// Slice returns the point-in-time view covering candles [0, end). The
// simulator hands detectors only such slices so a decision at bar i can
// never observe bars after i.
func (f *Frame) Slice(end int) *Frame {
	if end < 0 {
		end = 0
	}
	if end > len(f.Candles) {
		end = len(f.Candles)
	}
	return &Frame{
		Ticker:     f.Ticker,
		Candles:    f.Candles[:end],
		SMA200:     f.SMA200[:end],
		EMA50:      f.EMA50[:end],
		RSI14:      f.RSI14[:end],
		BBLower:    f.BBLower[:end],
		RVOL:       f.RVOL[:end],
		MACD:       f.MACD[:end],
		MACDSignal: f.MACDSignal[:end],
		MACDHist:   f.MACDHist[:end],
		ATR14:      f.ATR14[:end],
		Regime:     f.Regime[:end],
	}
}

// LastATR returns the most recent ATR value, or 0 when the warmup window is
// not yet filled.
func (f *Frame) LastATR() float64 {
	for i := len(f.ATR14) - 1; i >= 0; i-- {
		if !math.IsNaN(f.ATR14[i]) {
			return f.ATR14[i]
		}
	}
	return 0
}

// nanify replaces the leading warmup prefix (which talib fills with zeros)
// with NaN so detectors can tell "not ready" from a real zero.
func nanify(series []float64, warmup int) []float64 {
	for i := 0; i < len(series) && i < warmup; i++ {
		series[i] = math.NaN()
	}
	return series
}
