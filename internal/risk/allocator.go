package risk

import (
	"math"

	"openclaw/internal/config"
	"openclaw/internal/pkg/round"
	"openclaw/internal/position"
)

// Constraint labels reported by Kelly sizing for auditability.
const (
	ConstraintKelly     = "Kelly Criterion"
	ConstraintRiskLimit = "Risk Limit"
)

// Sizing is the result of a Kelly-capped sizing call. Tradeable false means
// "do not trade" (non-positive edge), which is distinct from a small
// positive quantity.
type Sizing struct {
	Qty           float64 `json:"qty"`
	MaxLoss       float64 `json:"max_loss"`
	KellyFraction float64 `json:"kelly_fraction"`
	HalfKelly     float64 `json:"half_kelly"`
	Constraint    string  `json:"constraint"`
	Tradeable     bool    `json:"tradeable"`
}

// Allocator sizes live positions from an account balance. It is stateless
// per call; the balance is fixed at construction.
type Allocator struct {
	balance    float64
	maxRiskPct float64
}

func NewAllocator(balance, maxRiskPct float64) Allocator {
	if maxRiskPct <= 0 {
		maxRiskPct = config.DefaultRiskParams().MaxRiskPct
	}
	return Allocator{balance: balance, maxRiskPct: maxRiskPct}
}

func (a Allocator) Balance() float64 { return a.balance }

// PositionSize combines a hard risk cap with half-Kelly sizing and returns
// the smaller of the two, labelled with the binding constraint.
//
//	f = (b·p − (1−p)) / b, applied at f/2
func (a Allocator) PositionSize(entryPrice, stopLoss, winRatePct, rewardRatio float64) Sizing {
	if entryPrice <= 0 {
		return Sizing{}
	}
	riskPerShare := math.Abs(entryPrice - stopLoss)
	if riskPerShare == 0 {
		return Sizing{}
	}

	maxLossAllowed := a.balance * a.maxRiskPct
	qtyRiskLimit := maxLossAllowed / riskPerShare

	b := rewardRatio
	if b <= 0 {
		b = 1
	}
	p := winRatePct / 100
	kelly := (b*p - (1 - p)) / b
	halfKelly := kelly / 2
	if halfKelly <= 0 {
		// Negative edge: explicit no-trade, not a zero-clamped size.
		return Sizing{KellyFraction: kelly, HalfKelly: halfKelly}
	}

	qtyKelly := a.balance * halfKelly / entryPrice

	qty := math.Min(qtyRiskLimit, qtyKelly)
	constraint := ConstraintKelly
	if qtyRiskLimit < qtyKelly {
		constraint = ConstraintRiskLimit
	}
	return Sizing{
		Qty:           round.Qty(qty),
		MaxLoss:       round.Price(qty * riskPerShare),
		KellyFraction: kelly,
		HalfKelly:     halfKelly,
		Constraint:    constraint,
		Tradeable:     true,
	}
}

// CanPyramid reports whether adding to an existing position is allowed:
// only once the stop has been promoted past breakeven, so the add risks
// locked-in gains rather than widening the initial loss.
func CanPyramid(pos *position.Position) bool {
	return pos != nil && pos.BreakevenActive()
}

// RiskScaledQty is the backtest sizing mode: risk a fixed slice of current
// equity against the stop distance, scale by confidence (50 is neutral,
// 100 doubles), and cap the position's cost at maxPositionPct of equity.
// Returns 0 on degenerate input: no sizing without a risk distance.
func RiskScaledQty(equity, price, stopLoss, confidence float64, params config.RiskParams) float64 {
	if price <= 0 {
		return 0
	}
	riskPerShare := math.Abs(price - stopLoss)
	if riskPerShare == 0 {
		return 0
	}
	baseQty := equity * params.RiskPerTradePct / riskPerShare
	qty := baseQty * confidence / 50

	if maxCost := equity * params.MaxPositionPct; qty*price > maxCost {
		qty = maxCost / price
	}
	if qty < 0 {
		return 0
	}
	return qty
}
