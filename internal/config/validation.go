package config

import "fmt"

const maxScanWorkers = 64

func validate(c *Config) error {
	if c.Scan.Workers > maxScanWorkers {
		return fmt.Errorf("scan.workers %d exceeds limit %d (data-source rate limits)", c.Scan.Workers, maxScanWorkers)
	}
	if c.Risk.RiskPerTradePct <= 0 || c.Risk.RiskPerTradePct >= 1 {
		return fmt.Errorf("risk.risk_per_trade_pct must be in (0, 1), got %v", c.Risk.RiskPerTradePct)
	}
	if c.Risk.MaxPositionPct <= 0 || c.Risk.MaxPositionPct > 1 {
		return fmt.Errorf("risk.max_position_pct must be in (0, 1], got %v", c.Risk.MaxPositionPct)
	}
	if c.Risk.MaxRiskPct <= 0 || c.Risk.MaxRiskPct >= 1 {
		return fmt.Errorf("risk.max_risk_pct must be in (0, 1), got %v", c.Risk.MaxRiskPct)
	}
	if c.Risk.TrailingStopATR >= c.Risk.InitialStopATR+c.Risk.BreakevenTriggerATR {
		// A trail wider than the breakeven excursion plus the initial stop
		// would never tighten anything.
		return fmt.Errorf("risk.trailing_stop_atr %v too wide for breakeven_trigger_atr %v",
			c.Risk.TrailingStopATR, c.Risk.BreakevenTriggerATR)
	}
	if c.Sim.InitialBalance <= 0 {
		return fmt.Errorf("sim.initial_balance must be > 0, got %v", c.Sim.InitialBalance)
	}
	return nil
}
