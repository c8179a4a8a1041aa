package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/config"
	"openclaw/internal/logger"
	"openclaw/internal/market"
	"openclaw/internal/pkg/round"
	"openclaw/internal/position"
	"openclaw/internal/risk"
	"openclaw/internal/store/gormstore"
	"openclaw/internal/strategy"
)

// atrLookbackDays gives the indicator stack enough history to produce a
// warm ATR for a freshly tracked ticker.
const atrLookbackDays = 90

// Status is one tracked position's state after a market refresh.
type Status struct {
	Ticker  string  `json:"ticker"`
	Side    string  `json:"side"`
	Entry   float64 `json:"entry"`
	Price   float64 `json:"price"`
	Stop    float64 `json:"stop"`
	PnL     float64 `json:"pnl"`
	PnLPct  float64 `json:"pnl_pct"`
	Health  string  `json:"health"`
	TP1Hit  bool    `json:"tp1_hit"`
	Pyramid bool    `json:"pyramid"`
	Alert   string  `json:"alert,omitempty"`
	Updated string  `json:"updated"`
}

// Service tracks live positions across restarts: each mutation is written
// through to the snapshot store, and Restore rebuilds the book on startup.
type Service struct {
	mu        sync.Mutex
	source    market.Source
	store     *gormstore.Store
	allocator risk.Allocator
	params    config.RiskParams
	positions map[string]*position.Position
}

func NewService(source market.Source, store *gormstore.Store, balance float64, params config.RiskParams) *Service {
	return &Service{
		source:    source,
		store:     store,
		allocator: risk.NewAllocator(balance, params.MaxRiskPct),
		params:    params,
		positions: make(map[string]*position.Position),
	}
}

// Restore loads every persisted snapshot back into the in-memory book.
// Broken snapshots are logged and skipped.
func (s *Service) Restore(ctx context.Context) error {
	snaps, paramList, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, snap := range snaps {
		pos, err := position.FromSnapshot(snap, paramList[i])
		if err != nil {
			logger.Warnf("restore skipped %s: %v", snap.Ticker, err)
			continue
		}
		s.positions[pos.Ticker()] = pos
	}
	logger.Infof("tracker restored %d positions", len(s.positions))
	return nil
}

// Track admits a new position. The entry ATR comes from the ticker's
// recent history so the stop rules see real volatility, not a guess.
func (s *Service) Track(ctx context.Context, ticker string, side strategy.Side, entryPrice, qty float64, strategyName string) (*position.Position, error) {
	if entryPrice <= 0 || qty <= 0 {
		return nil, fmt.Errorf("track %s: entry price and qty must be positive", ticker)
	}
	s.mu.Lock()
	_, exists := s.positions[ticker]
	s.mu.Unlock()
	if exists {
		return nil, fmt.Errorf("track %s: already tracked", ticker)
	}

	atr := s.fetchATR(ctx, ticker)
	pos := position.New(position.Options{
		Ticker:     ticker,
		Side:       side,
		EntryPrice: entryPrice,
		Qty:        qty,
		EntryDate:  time.Now().UTC(),
		Strategy:   strategyName,
		ATR:        atr,
		Params:     s.params,
	})

	s.mu.Lock()
	s.positions[ticker] = pos
	s.mu.Unlock()

	if err := s.store.Save(ctx, pos.Snapshot(), s.params); err != nil {
		// Keep the book and the store in step, so a retry is not rejected
		// as a duplicate.
		s.mu.Lock()
		delete(s.positions, ticker)
		s.mu.Unlock()
		return nil, fmt.Errorf("track %s: persist: %w", ticker, err)
	}
	logger.Infof("tracking %s %s entry=%.2f qty=%.4f stop=%.2f tp1=%.2f",
		ticker, side, entryPrice, qty, pos.CurrentStop(), pos.TP1())
	return pos, nil
}

// Untrack drops a position from the book and the store.
func (s *Service) Untrack(ctx context.Context, ticker string) error {
	s.mu.Lock()
	_, ok := s.positions[ticker]
	delete(s.positions, ticker)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("untrack %s: not tracked", ticker)
	}
	return s.store.Delete(ctx, ticker)
}

// Refresh pulls the latest close and ATR for every tracked ticker, steps
// the exit state machine, persists the new state and returns the status
// board. Fetch failures leave that position's state untouched.
func (s *Service) Refresh(ctx context.Context) ([]Status, error) {
	s.mu.Lock()
	tickers := make([]string, 0, len(s.positions))
	for t := range s.positions {
		tickers = append(tickers, t)
	}
	s.mu.Unlock()
	sort.Strings(tickers)

	statuses := make([]Status, 0, len(tickers))
	for _, ticker := range tickers {
		st, err := s.refreshOne(ctx, ticker)
		if err != nil {
			logger.Warnf("refresh %s: %v", ticker, err)
			continue
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (s *Service) refreshOne(ctx context.Context, ticker string) (Status, error) {
	candles, err := s.source.FetchDaily(ctx, ticker, atrLookbackDays)
	if err != nil {
		return Status{}, err
	}
	candles = market.SortValid(candles)
	if len(candles) == 0 {
		return Status{}, fmt.Errorf("no candles")
	}
	price := candles[len(candles)-1].Close
	var atr float64
	if frame, err := indicator.Enrich(ticker, candles); err == nil {
		atr = frame.LastATR()
	}

	s.mu.Lock()
	pos, ok := s.positions[ticker]
	if !ok {
		s.mu.Unlock()
		return Status{}, fmt.Errorf("not tracked")
	}
	upd := pos.Update(price, atr)
	snap := pos.Snapshot()
	s.mu.Unlock()

	if err := s.store.Save(ctx, snap, s.params); err != nil {
		logger.Warnf("persist %s: %v", ticker, err)
	}

	st := Status{
		Ticker:  upd.Ticker,
		Side:    pos.Side().String(),
		Entry:   pos.EntryPrice(),
		Price:   price,
		Stop:    upd.Stop,
		PnL:     upd.PnL,
		PnLPct:  round.Pct(pos.Side().Sign() * (price - pos.EntryPrice()) / pos.EntryPrice() * 100),
		Health:  string(upd.Health),
		TP1Hit:  upd.TP1Hit,
		Pyramid: risk.CanPyramid(pos),
		Updated: time.Now().UTC().Format(time.RFC3339),
	}
	switch upd.Action {
	case position.ActionPartialExit:
		st.Alert = fmt.Sprintf("TP1 reached: sell %.4f at market", upd.PartialQty)
	case position.ActionFullExit:
		st.Alert = fmt.Sprintf("stop %.2f breached: exit remaining %.4f", upd.Stop, pos.Qty())
	}
	if st.Alert != "" {
		logger.Warnf("%s: %s", ticker, st.Alert)
	}
	return st, nil
}

// Sizing answers "how much should I buy" for a prospective live trade.
func (s *Service) Sizing(entryPrice, stopLoss, winRatePct, rewardRatio float64) risk.Sizing {
	return s.allocator.PositionSize(entryPrice, stopLoss, winRatePct, rewardRatio)
}

// Positions returns the tracked tickers in order.
func (s *Service) Positions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.positions))
	for t := range s.positions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *Service) fetchATR(ctx context.Context, ticker string) float64 {
	candles, err := s.source.FetchDaily(ctx, ticker, atrLookbackDays)
	if err != nil {
		logger.Warnf("atr fetch %s: %v", ticker, err)
		return 0
	}
	candles = market.SortValid(candles)
	if len(candles) == 0 {
		return 0
	}
	frame, err := indicator.Enrich(ticker, candles)
	if err != nil {
		return 0
	}
	return frame.LastATR()
}
