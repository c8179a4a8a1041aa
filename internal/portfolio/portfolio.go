package portfolio

import (
	"fmt"
	"sort"
	"time"

	"openclaw/internal/pkg/round"
	"openclaw/internal/position"
	"openclaw/internal/strategy"
)

// ExitReason labels recorded on closed trades.
const (
	ExitStopLoss   = "StopLoss"
	ExitTakeProfit = "TakeProfit"
	ExitLadderTP1  = "LadderTP1"
	ExitSignal     = "Signal"
)

// TradeRecord is one closed (or partially closed) trade, append-only.
type TradeRecord struct {
	Ticker     string    `json:"ticker"`
	Strategy   string    `json:"strategy"`
	Side       string    `json:"side"`
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Qty        float64   `json:"qty"`
	PnL        float64   `json:"pnl"`
	PnLPct     float64   `json:"pnl_pct"`
	Reason     string    `json:"reason"`
	HoldDays   int       `json:"hold_days"`
}

// EquityPoint is one mark-to-market observation, one per simulated day.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
	Cash   float64   `json:"cash"`
	Open   int       `json:"open_positions"`
}

// Portfolio is the cash-and-positions ledger. Opening a position debits its
// full cost from cash; shorts post the entry value as collateral and get it
// back plus PnL on close. Not safe for concurrent use; the simulator and
// the tracker each own exactly one.
type Portfolio struct {
	cash      float64
	positions map[string]*position.Position
	trades    []TradeRecord
	equity    []EquityPoint
}

func New(initialCash float64) *Portfolio {
	return &Portfolio{
		cash:      initialCash,
		positions: make(map[string]*position.Position),
	}
}

func (pf *Portfolio) Cash() float64 { return pf.cash }

func (pf *Portfolio) Position(ticker string) (*position.Position, bool) {
	p, ok := pf.positions[ticker]
	return p, ok
}

func (pf *Portfolio) OpenCount() int { return len(pf.positions) }

// Tickers returns the open tickers in deterministic order.
func (pf *Portfolio) Tickers() []string {
	out := make([]string, 0, len(pf.positions))
	for t := range pf.positions {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Open admits a new position, debiting its cost from cash. A ticker can
// hold at most one position at a time.
func (pf *Portfolio) Open(pos *position.Position) error {
	if _, exists := pf.positions[pos.Ticker()]; exists {
		return fmt.Errorf("position already open for %s", pos.Ticker())
	}
	cost := pos.EntryPrice() * pos.Qty()
	if cost > pf.cash {
		return fmt.Errorf("insufficient cash for %s: need %.2f, have %.2f", pos.Ticker(), cost, pf.cash)
	}
	pf.cash -= cost
	pf.positions[pos.Ticker()] = pos
	return nil
}

// Close exits qty of a position at price, credits cash, and appends a trade
// record. qty <= 0 or qty >= remaining closes the whole position. Duration
// is counted in whole days.
func (pf *Portfolio) Close(ticker string, qty, price float64, date time.Time, reason string) (*TradeRecord, error) {
	pos, ok := pf.positions[ticker]
	if !ok {
		return nil, fmt.Errorf("no open position for %s", ticker)
	}
	if qty <= 0 || qty > pos.Qty() {
		qty = pos.Qty()
	}

	sign := pos.Side().Sign()
	pnl := sign * (price - pos.EntryPrice()) * qty
	if pos.Side() == strategy.Long {
		pf.cash += price * qty
	} else {
		// Shorts posted entry value as collateral at open; return it with
		// the realized PnL.
		pf.cash += pos.EntryPrice()*qty + pnl
	}

	rec := TradeRecord{
		Ticker:     ticker,
		Strategy:   pos.Strategy(),
		Side:       pos.Side().String(),
		EntryDate:  pos.EntryDate(),
		ExitDate:   date,
		EntryPrice: pos.EntryPrice(),
		ExitPrice:  price,
		Qty:        round.Qty(qty),
		PnL:        round.Price(pnl),
		PnLPct:     round.Pct(sign * (price - pos.EntryPrice()) / pos.EntryPrice() * 100),
		Reason:     reason,
		HoldDays:   int(date.Sub(pos.EntryDate()).Hours() / 24),
	}
	pf.trades = append(pf.trades, rec)

	if pos.Reduce(qty) <= 0 {
		delete(pf.positions, ticker)
	}
	return &rec, nil
}

// MarkToMarket values the book at the given prices. Longs are worth
// qty×price; shorts are worth their posted collateral plus unrealized PnL.
// A ticker missing from prices is valued at its entry price.
func (pf *Portfolio) MarkToMarket(prices map[string]float64) float64 {
	equity := pf.cash
	for ticker, pos := range pf.positions {
		price, ok := prices[ticker]
		if !ok || price <= 0 {
			price = pos.EntryPrice()
		}
		if pos.Side() == strategy.Long {
			equity += pos.Qty() * price
		} else {
			equity += pos.EntryPrice()*pos.Qty() + pos.Side().Sign()*(price-pos.EntryPrice())*pos.Qty()
		}
	}
	return equity
}

// SnapshotDay appends one equity-curve point for the day.
func (pf *Portfolio) SnapshotDay(date time.Time, prices map[string]float64) EquityPoint {
	pt := EquityPoint{
		Date:   date,
		Equity: round.Price(pf.MarkToMarket(prices)),
		Cash:   round.Price(pf.cash),
		Open:   len(pf.positions),
	}
	pf.equity = append(pf.equity, pt)
	return pt
}

func (pf *Portfolio) Trades() []TradeRecord      { return pf.trades }
func (pf *Portfolio) EquityCurve() []EquityPoint { return pf.equity }
