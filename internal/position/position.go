package position

import (
	"math"
	"time"

	"openclaw/internal/config"
	"openclaw/internal/pkg/round"
	"openclaw/internal/strategy"
)

// Action is what an Update asks the owner to do. PartialExit fires at most
// once per position lifetime; FullExit means the stop was breached (which
// can be a profitable exit once the stop has trailed past entry).
type Action int

const (
	ActionNone Action = iota
	ActionPartialExit
	ActionFullExit
)

// Health is a diagnostic classification, not a state transition.
type Health string

const (
	HealthNormal  Health = "NORMAL"
	HealthSafe    Health = "SAFE"
	HealthWarning Health = "WARNING"
	HealthExit    Health = "EXIT"
)

// atrFallbackPct replaces a non-positive ATR so the state machine never
// works with a zero-width stop.
const atrFallbackPct = 0.05

// breakevenBufferPct is the small offset past entry the stop is ratcheted
// to when the breakeven trigger fires.
const breakevenBufferPct = 0.001

// Position owns one open trade's dynamic exit state: the monotonic stop
// ratchet, breakeven promotion, ATR trail and the one-shot ladder target.
// Fields are unexported on purpose; owners mutate only through Update and
// Reduce.
type Position struct {
	ticker       string
	side         strategy.Side
	entryPrice   float64
	qty          float64
	entryDate    time.Time
	strategyName string
	params       config.RiskParams

	atrEntry    float64
	initialStop float64
	currentStop float64
	breakeven   bool
	extreme     float64
	tp1         float64
	tp1Hit      bool

	currentPrice float64
	unrealized   float64
}

// Options carries everything needed to open a position. StopLoss and TP1
// are optional: zero means "derive from ATR".
type Options struct {
	Ticker     string
	Side       strategy.Side
	EntryPrice float64
	Qty        float64
	EntryDate  time.Time
	Strategy   string
	ATR        float64
	StopLoss   float64
	TP1        float64
	Params     config.RiskParams
}

func New(opts Options) *Position {
	atr := opts.ATR
	if atr <= 0 {
		atr = opts.EntryPrice * atrFallbackPct
	}
	sign := opts.Side.Sign()
	stop := opts.EntryPrice - sign*opts.Params.InitialStopATR*atr
	// An explicit stop from the signal plan wins, but only when it sits on
	// the protective side of entry.
	if opts.StopLoss > 0 && sign*(opts.EntryPrice-opts.StopLoss) > 0 {
		stop = opts.StopLoss
	}
	tp1 := opts.TP1
	if tp1 <= 0 {
		tp1 = opts.EntryPrice + sign*opts.Params.TP1ATR*atr
	}
	return &Position{
		ticker:       opts.Ticker,
		side:         opts.Side,
		entryPrice:   opts.EntryPrice,
		qty:          opts.Qty,
		entryDate:    opts.EntryDate,
		strategyName: opts.Strategy,
		params:       opts.Params,
		atrEntry:     atr,
		initialStop:  stop,
		currentStop:  stop,
		extreme:      opts.EntryPrice,
		tp1:          tp1,
		currentPrice: opts.EntryPrice,
	}
}

// Update is the result of one state-machine step.
type Update struct {
	Ticker     string
	Price      float64
	Stop       float64
	PnL        float64
	Health     Health
	Action     Action
	TP1Hit     bool
	PartialQty float64 // half the remaining quantity when Action == ActionPartialExit
}

// Update advances the state machine with the latest price and ATR. The
// stop only ever moves in the protective direction; pullbacks never widen
// it. currentAtr <= 0 falls back to the entry ATR.
func (p *Position) Update(price, currentAtr float64) Update {
	if currentAtr <= 0 {
		currentAtr = p.atrEntry
	}
	p.currentPrice = price
	sign := p.side.Sign()

	if sign*(price-p.extreme) > 0 {
		p.extreme = price
	}

	if !p.breakeven {
		threshold := p.entryPrice + sign*p.params.BreakevenTriggerATR*p.atrEntry
		if sign*(p.extreme-threshold) >= 0 {
			be := p.entryPrice * (1 + sign*breakevenBufferPct)
			if sign*(be-p.currentStop) > 0 {
				p.currentStop = be
			}
			p.breakeven = true
		}
	}
	if p.breakeven {
		candidate := p.extreme - sign*p.params.TrailingStopATR*currentAtr
		if sign*(candidate-p.currentStop) > 0 {
			p.currentStop = candidate
		}
	}

	action := ActionNone
	partialQty := 0.0
	if !p.tp1Hit && p.reached(price, p.tp1) {
		p.tp1Hit = true
		action = ActionPartialExit
		partialQty = p.qty / 2
	}
	if p.stopBreached(price) {
		action = ActionFullExit
		partialQty = 0
	}

	p.unrealized = sign * (price - p.entryPrice) * p.qty

	return Update{
		Ticker:     p.ticker,
		Price:      price,
		Stop:       round.Price(p.currentStop),
		PnL:        round.Price(p.unrealized),
		Health:     p.health(),
		Action:     action,
		TP1Hit:     p.tp1Hit,
		PartialQty: partialQty,
	}
}

// reached: has price touched the target in the favorable direction.
func (p *Position) reached(price, target float64) bool {
	if p.side == strategy.Long {
		return round.GTE(price, target)
	}
	return round.LTE(price, target)
}

func (p *Position) stopBreached(price float64) bool {
	if p.side == strategy.Long {
		return round.LTE(price, p.currentStop)
	}
	return round.GTE(price, p.currentStop)
}

func (p *Position) health() Health {
	if p.stopBreached(p.currentPrice) {
		return HealthExit
	}
	if math.Abs(p.currentPrice-p.currentStop) < 0.5*p.atrEntry {
		return HealthWarning
	}
	if p.breakeven {
		return HealthSafe
	}
	return HealthNormal
}

// Reduce removes closed quantity and returns the remainder. Only the
// owning ledger calls this, as part of the close contract.
func (p *Position) Reduce(qty float64) float64 {
	if qty <= 0 {
		return p.qty
	}
	p.qty -= qty
	if p.qty < 0 {
		p.qty = 0
	}
	p.unrealized = p.side.Sign() * (p.currentPrice - p.entryPrice) * p.qty
	return p.qty
}

func (p *Position) Ticker() string         { return p.ticker }
func (p *Position) Side() strategy.Side    { return p.side }
func (p *Position) EntryPrice() float64    { return p.entryPrice }
func (p *Position) Qty() float64           { return p.qty }
func (p *Position) EntryDate() time.Time   { return p.entryDate }
func (p *Position) Strategy() string       { return p.strategyName }
func (p *Position) ATREntry() float64      { return p.atrEntry }
func (p *Position) InitialStop() float64   { return p.initialStop }
func (p *Position) CurrentStop() float64   { return p.currentStop }
func (p *Position) BreakevenActive() bool  { return p.breakeven }
func (p *Position) Extreme() float64       { return p.extreme }
func (p *Position) TP1() float64           { return p.tp1 }
func (p *Position) TP1Hit() bool           { return p.tp1Hit }
func (p *Position) UnrealizedPnL() float64 { return p.unrealized }
