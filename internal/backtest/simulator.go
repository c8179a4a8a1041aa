package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/config"
	"openclaw/internal/logger"
	"openclaw/internal/market"
	"openclaw/internal/portfolio"
	"openclaw/internal/position"
	"openclaw/internal/risk"
	"openclaw/internal/strategy"
)

// Simulator replays enriched daily frames through the strategy suite and
// the exit state machine. Each day runs in a strict order: exits first,
// then entries, then the equity snapshot. Entries are decided on
// point-in-time frame slices so a decision at bar i never observes bars
// after i.
type Simulator struct {
	frames   map[string]*indicator.Frame
	registry *strategy.Registry
	sim      config.SimConfig
	riskCfg  config.RiskParams

	// dayIndex maps calendar day (unix ms, UTC midnight) to the bar index
	// within each ticker's frame.
	dayIndex map[string]map[int64]int
	days     []time.Time
}

func NewSimulator(frames map[string]*indicator.Frame, registry *strategy.Registry, sim config.SimConfig, riskCfg config.RiskParams) *Simulator {
	s := &Simulator{
		frames:   frames,
		registry: registry,
		sim:      sim,
		riskCfg:  riskCfg,
		dayIndex: make(map[string]map[int64]int, len(frames)),
	}
	seen := make(map[int64]bool)
	for ticker, f := range frames {
		idx := make(map[int64]int, f.Len())
		for i, c := range f.Candles {
			day := c.Day().UnixMilli()
			idx[day] = i
			if !seen[day] {
				seen[day] = true
				s.days = append(s.days, time.UnixMilli(day).UTC())
			}
		}
		s.dayIndex[ticker] = idx
	}
	sort.Slice(s.days, func(i, j int) bool { return s.days[i].Before(s.days[j]) })
	return s
}

// Run executes the full simulation and returns the result with stats
// computed. The context is checked once per simulated day.
func (s *Simulator) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if len(s.frames) == 0 {
		return nil, fmt.Errorf("no frames to simulate")
	}
	run := NewRun(cfg)
	run.Status = RunStatusRunning
	if len(s.days) > 0 {
		run.StartTS = s.days[0].UnixMilli()
		run.EndTS = s.days[len(s.days)-1].UnixMilli()
	}

	pf := portfolio.New(s.sim.InitialBalance)
	for _, day := range s.days {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.processExits(pf, day)
		s.processEntries(pf, day)
		pf.SnapshotDay(day, s.closePrices(day))
	}
	s.liquidate(pf)

	run.Status = RunStatusDone
	run.Stats = computeStats(s.sim.InitialBalance, pf.Trades(), pf.EquityCurve())
	run.Trades = len(pf.Trades())
	run.CompletedAt = run.Stats.FinishedAt
	return &Result{Run: run, Trades: pf.Trades(), Equity: pf.EquityCurve()}, nil
}

// processExits walks a snapshot of the open tickers so closes during the
// loop cannot skew iteration.
func (s *Simulator) processExits(pf *portfolio.Portfolio, day time.Time) {
	for _, ticker := range pf.Tickers() {
		pos, ok := pf.Position(ticker)
		if !ok {
			continue
		}
		bar, idx, ok := s.bar(ticker, day)
		if !ok {
			continue
		}

		// Stop check against yesterday's stop. The fill honors gaps: a
		// long that opens below the stop fills at the open, not the stop.
		if stopTouched(pos, bar) {
			fill := stopFill(pos, bar)
			if _, err := pf.Close(ticker, 0, fill, day, portfolio.ExitStopLoss); err != nil {
				logger.Warnf("close %s failed: %v", ticker, err)
			}
			continue
		}

		// Advance the state machine with the bar's favorable extreme so
		// the ladder and the trail see the best intraday price.
		atr := s.atrAt(ticker, idx)
		upd := pos.Update(favorableExtreme(pos, bar), atr)
		if upd.Action == position.ActionPartialExit {
			if _, err := pf.Close(ticker, upd.PartialQty, pos.TP1(), day, portfolio.ExitLadderTP1); err != nil {
				logger.Warnf("partial close %s failed: %v", ticker, err)
			}
		}
	}
}

func (s *Simulator) processEntries(pf *portfolio.Portfolio, day time.Time) {
	tickers := make([]string, 0, len(s.frames))
	for t := range s.frames {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		if _, open := pf.Position(ticker); open {
			continue
		}
		bar, idx, ok := s.bar(ticker, day)
		if !ok {
			continue
		}
		if bar.Close < s.sim.MinPrice {
			continue
		}
		sig := s.registry.Evaluate(s.frames[ticker].Slice(idx + 1))
		if sig == nil || sig.Confidence < s.sim.MinConfidence {
			continue
		}

		equity := pf.MarkToMarket(s.closePrices(day))
		qty := risk.RiskScaledQty(equity, sig.Price, sig.StopLoss, sig.Confidence, s.riskCfg)
		if qty <= 0 {
			continue
		}
		pos := position.New(position.Options{
			Ticker:     ticker,
			Side:       sig.Side,
			EntryPrice: sig.Price,
			Qty:        qty,
			EntryDate:  day,
			Strategy:   sig.Strategy,
			ATR:        sig.ATR,
			StopLoss:   sig.StopLoss,
			TP1:        sig.TakeProfit,
			Params:     s.riskCfg,
		})
		if err := pf.Open(pos); err != nil {
			logger.Debugf("skip entry %s: %v", ticker, err)
			continue
		}
		logger.Debugf("open %s %s %s qty=%.4f entry=%.2f stop=%.2f",
			day.Format("2006-01-02"), ticker, sig.Strategy, qty, sig.Price, pos.CurrentStop())
	}
}

// liquidate closes whatever survives the final day at its last close so
// every trade reaches the record.
func (s *Simulator) liquidate(pf *portfolio.Portfolio) {
	if len(s.days) == 0 {
		return
	}
	last := s.days[len(s.days)-1]
	prices := s.closePrices(last)
	for _, ticker := range pf.Tickers() {
		price, ok := prices[ticker]
		if !ok {
			if pos, exists := pf.Position(ticker); exists {
				price = pos.EntryPrice()
			}
		}
		if _, err := pf.Close(ticker, 0, price, last, portfolio.ExitSignal); err != nil {
			logger.Warnf("liquidate %s failed: %v", ticker, err)
		}
	}
}

func (s *Simulator) bar(ticker string, day time.Time) (market.Candle, int, bool) {
	idx, ok := s.dayIndex[ticker][day.UnixMilli()]
	if !ok {
		return market.Candle{}, 0, false
	}
	return s.frames[ticker].Candles[idx], idx, true
}

func (s *Simulator) atrAt(ticker string, idx int) float64 {
	atr := s.frames[ticker].ATR14[idx]
	if math.IsNaN(atr) {
		return 0
	}
	return atr
}

// closePrices collects each open ticker's close for the day, falling back
// to nothing (MarkToMarket then uses entry price) when a ticker has no bar.
func (s *Simulator) closePrices(day time.Time) map[string]float64 {
	prices := make(map[string]float64)
	ms := day.UnixMilli()
	for ticker, idx := range s.dayIndex {
		if i, ok := idx[ms]; ok {
			prices[ticker] = s.frames[ticker].Candles[i].Close
		}
	}
	return prices
}

func stopTouched(pos *position.Position, bar market.Candle) bool {
	if pos.Side() == strategy.Long {
		return bar.Low <= pos.CurrentStop()
	}
	return bar.High >= pos.CurrentStop()
}

// stopFill is the realistic fill for a breached stop: the stop itself, or
// the open when the session gapped through it.
func stopFill(pos *position.Position, bar market.Candle) float64 {
	if pos.Side() == strategy.Long {
		return math.Min(bar.Open, pos.CurrentStop())
	}
	return math.Max(bar.Open, pos.CurrentStop())
}

func favorableExtreme(pos *position.Position, bar market.Candle) float64 {
	if pos.Side() == strategy.Long {
		return bar.High
	}
	return bar.Low
}
