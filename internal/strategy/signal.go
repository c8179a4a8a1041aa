package strategy

// Signal is a single actionable setup produced by a detector for one ticker
// at one point in time. Signals are immutable once returned; the engine
// never writes back into them.
type Signal struct {
	Ticker     string            `json:"ticker"`
	Strategy   string            `json:"strategy"`
	Side       Side              `json:"-"`
	SideLabel  string            `json:"side"`
	Price      float64           `json:"price"`
	StopLoss   float64           `json:"stop_loss"`
	TakeProfit float64           `json:"take_profit"`
	Confidence float64           `json:"confidence"`
	ATR        float64           `json:"atr"`
	Metrics    map[string]string `json:"metrics,omitempty"`
}

// RiskReward returns the reward:risk ratio implied by the plan, or 0 when
// the stop distance is degenerate.
func (s Signal) RiskReward() float64 {
	risk := s.Side.Sign() * (s.Price - s.StopLoss)
	reward := s.Side.Sign() * (s.TakeProfit - s.Price)
	if risk <= 0 {
		return 0
	}
	return reward / risk
}
