package backtest

import (
	"fmt"
	"sort"
	"strings"

	"openclaw/internal/portfolio"
)

// StrategyStats is the per-strategy trade breakdown shown in the report.
type StrategyStats struct {
	Strategy string  `json:"strategy"`
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
	PnL      float64 `json:"pnl"`
}

// StatsByStrategy groups closed trades by the strategy that opened them.
func StatsByStrategy(trades []portfolio.TradeRecord) []StrategyStats {
	byName := make(map[string]*StrategyStats)
	for _, t := range trades {
		s, ok := byName[t.Strategy]
		if !ok {
			s = &StrategyStats{Strategy: t.Strategy}
			byName[t.Strategy] = s
		}
		s.Trades++
		s.PnL += t.PnL
		if t.PnL > 0 {
			s.Wins++
		} else if t.PnL < 0 {
			s.Losses++
		}
	}
	out := make([]StrategyStats, 0, len(byName))
	for _, s := range byName {
		if decided := s.Wins + s.Losses; decided > 0 {
			s.WinRate = float64(s.Wins) / float64(decided) * 100
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PnL > out[j].PnL })
	return out
}

// FormatReport renders the human-readable summary printed after a run.
func FormatReport(res *Result) string {
	var b strings.Builder
	stats := res.Run.Stats

	fmt.Fprintf(&b, "========== Simulation %s ==========\n", res.Run.ID[:8])
	fmt.Fprintf(&b, "Initial Balance : %.2f\n", res.Run.InitialBalance)
	fmt.Fprintf(&b, "Final Equity    : %.2f\n", stats.FinalEquity)
	fmt.Fprintf(&b, "Profit          : %+.2f (%.2f%%)\n", stats.Profit, stats.ReturnPct)
	fmt.Fprintf(&b, "Max Drawdown    : %.2f%%\n", stats.MaxDrawdownPct)
	fmt.Fprintf(&b, "Trades          : %d (W %d / L %d, win rate %.1f%%)\n",
		stats.Trades, stats.Wins, stats.Losses, stats.WinRate)
	fmt.Fprintf(&b, "Avg Hold        : %.1f days\n", stats.AvgHoldDays)

	if perStrategy := StatsByStrategy(res.Trades); len(perStrategy) > 0 {
		b.WriteString("---------- By Strategy ----------\n")
		for _, s := range perStrategy {
			fmt.Fprintf(&b, "%-10s trades=%-3d win=%.1f%% pnl=%+.2f\n",
				s.Strategy, s.Trades, s.WinRate, s.PnL)
		}
	}

	if reasons := exitReasonCounts(res.Trades); len(reasons) > 0 {
		b.WriteString("---------- Exit Reasons ----------\n")
		keys := make([]string, 0, len(reasons))
		for k := range reasons {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%-12s %d\n", k, reasons[k])
		}
	}
	return b.String()
}

func exitReasonCounts(trades []portfolio.TradeRecord) map[string]int {
	counts := make(map[string]int)
	for _, t := range trades {
		counts[t.Reason]++
	}
	return counts
}
