package position

import (
	"fmt"
	"time"

	"openclaw/internal/config"
	"openclaw/internal/strategy"
)

// Snapshot is the flat persisted form of a position: enough public state to
// resume tracking after a restart. It is a state snapshot, not a history
// log, so there are no replay semantics.
type Snapshot struct {
	Ticker          string    `json:"ticker" yaml:"ticker"`
	Side            string    `json:"side" yaml:"side"`
	EntryPrice      float64   `json:"entry_price" yaml:"entry_price"`
	Qty             float64   `json:"qty" yaml:"qty"`
	EntryDate       time.Time `json:"entry_date" yaml:"entry_date"`
	Strategy        string    `json:"strategy" yaml:"strategy"`
	ATREntry        float64   `json:"atr_entry" yaml:"atr_entry"`
	InitialStop     float64   `json:"initial_stop" yaml:"initial_stop"`
	CurrentStop     float64   `json:"current_stop" yaml:"current_stop"`
	BreakevenActive bool      `json:"breakeven_active" yaml:"breakeven_active"`
	Extreme         float64   `json:"extreme" yaml:"extreme"`
	TP1             float64   `json:"tp1" yaml:"tp1"`
	TP1Hit          bool      `json:"tp1_hit" yaml:"tp1_hit"`
}

func (p *Position) Snapshot() Snapshot {
	return Snapshot{
		Ticker:          p.ticker,
		Side:            p.side.String(),
		EntryPrice:      p.entryPrice,
		Qty:             p.qty,
		EntryDate:       p.entryDate,
		Strategy:        p.strategyName,
		ATREntry:        p.atrEntry,
		InitialStop:     p.initialStop,
		CurrentStop:     p.currentStop,
		BreakevenActive: p.breakeven,
		Extreme:         p.extreme,
		TP1:             p.tp1,
		TP1Hit:          p.tp1Hit,
	}
}

// FromSnapshot rebuilds a position with its exit state intact.
func FromSnapshot(s Snapshot, params config.RiskParams) (*Position, error) {
	side, err := strategy.ParseSide(s.Side)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.Ticker, err)
	}
	if s.EntryPrice <= 0 || s.Qty <= 0 {
		return nil, fmt.Errorf("snapshot %s: degenerate entry/qty", s.Ticker)
	}
	p := New(Options{
		Ticker:     s.Ticker,
		Side:       side,
		EntryPrice: s.EntryPrice,
		Qty:        s.Qty,
		EntryDate:  s.EntryDate,
		Strategy:   s.Strategy,
		ATR:        s.ATREntry,
		TP1:        s.TP1,
		Params:     params,
	})
	if s.InitialStop != 0 {
		p.initialStop = s.InitialStop
	}
	if s.CurrentStop != 0 {
		p.currentStop = s.CurrentStop
	}
	if s.Extreme != 0 {
		p.extreme = s.Extreme
	}
	p.breakeven = s.BreakevenActive
	p.tp1Hit = s.TP1Hit
	return p, nil
}
