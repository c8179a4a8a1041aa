package backtest

import (
	"context"
	"fmt"
	"strings"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/config"
	"openclaw/internal/logger"
	"openclaw/internal/strategy"
)

// SweepPoint is one confidence threshold and the run it produced.
type SweepPoint struct {
	MinConfidence float64 `json:"min_confidence"`
	ReturnPct     float64 `json:"return_pct"`
	WinRate       float64 `json:"win_rate"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	Trades        int     `json:"trades"`
}

var sweepThresholds = []float64{60, 70, 80, 90}

// SweepConfidence reruns the same universe at each confidence threshold and
// reports the grid. Frames are shared read-only across runs; each run gets
// its own portfolio.
func SweepConfidence(ctx context.Context, frames map[string]*indicator.Frame, registry *strategy.Registry, sim config.SimConfig, riskCfg config.RiskParams, base RunConfig) ([]SweepPoint, error) {
	points := make([]SweepPoint, 0, len(sweepThresholds))
	for _, threshold := range sweepThresholds {
		simCfg := sim
		simCfg.MinConfidence = threshold
		runCfg := base
		runCfg.MinConfidence = threshold
		runCfg.Notes = fmt.Sprintf("confidence sweep @%.0f", threshold)

		res, err := NewSimulator(frames, registry, simCfg, riskCfg).Run(ctx, runCfg)
		if err != nil {
			return nil, fmt.Errorf("sweep @%.0f: %w", threshold, err)
		}
		points = append(points, SweepPoint{
			MinConfidence: threshold,
			ReturnPct:     res.Run.Stats.ReturnPct,
			WinRate:       res.Run.Stats.WinRate,
			MaxDrawdown:   res.Run.Stats.MaxDrawdownPct,
			Trades:        res.Run.Stats.Trades,
		})
		logger.Infof("sweep @%.0f: return=%.2f%% winrate=%.1f%% trades=%d",
			threshold, res.Run.Stats.ReturnPct, res.Run.Stats.WinRate, res.Run.Stats.Trades)
	}
	return points, nil
}

// FormatSweep renders the sweep grid as a text table.
func FormatSweep(points []SweepPoint) string {
	var b strings.Builder
	b.WriteString("conf   return%   winrate%   maxdd%   trades\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%-6.0f %-9.2f %-10.1f %-8.2f %d\n",
			p.MinConfidence, p.ReturnPct, p.WinRate, p.MaxDrawdown, p.Trades)
	}
	return b.String()
}
