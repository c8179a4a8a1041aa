package strategy

import (
	"math"
	"time"

	"openclaw/internal/analysis/indicator"
)

const historyForwardBars = 20

// RegimeBucket aggregates historical outcomes of a rule inside one market
// regime.
type RegimeBucket struct {
	WinRate float64 `json:"wr"`
	Count   int     `json:"count"`
}

// HistoryStats summarises how a detector's rule performed over the visible
// history, split by regime, plus a recent-decay flag used to slash
// confidence when the edge has recently stopped working.
type HistoryStats struct {
	Total       RegimeBucket `json:"total"`
	Bull        RegimeBucket `json:"bull"`
	Bear        RegimeBucket `json:"bear"`
	Sideways    RegimeBucket `json:"sideways"`
	RecentDecay bool         `json:"recent_decay"`
	Warning     string       `json:"warning,omitempty"`
}

type historyOutcome struct {
	day    time.Time
	regime string
	win    bool
	closed bool
}

// regimeHistory replays a rule over the frame: every bar matching the rule
// becomes a simulated entry with ATR-scaled stop/target, resolved by the
// following bars (at most historyForwardBars). The frame is already a
// point-in-time slice, so the forward walk stays inside visible history.
func regimeHistory(f *indicator.Frame, rule func(*indicator.Frame, int) bool, tpMult, slMult float64) HistoryStats {
	var stats HistoryStats
	if f == nil || f.Len() == 0 {
		return stats
	}
	var outcomes []historyOutcome
	for i := 0; i < f.Len()-1; i++ {
		if !rule(f, i) {
			continue
		}
		atr := f.ATR14[i]
		if math.IsNaN(atr) || atr <= 0 {
			continue
		}
		entry := f.Candles[i].Close
		sl := entry - slMult*atr
		tp := entry + tpMult*atr
		out := historyOutcome{day: f.Candles[i].Day(), regime: f.Regime[i]}
		limit := i + 1 + historyForwardBars
		if limit > f.Len() {
			limit = f.Len()
		}
		for j := i + 1; j < limit; j++ {
			if f.Candles[j].High >= tp {
				out.win, out.closed = true, true
				break
			}
			if f.Candles[j].Low <= sl {
				out.closed = true
				break
			}
		}
		outcomes = append(outcomes, out)
	}
	if len(outcomes) == 0 {
		return stats
	}

	stats.Total = bucket(outcomes, "")
	stats.Bull = bucket(outcomes, indicator.RegimeBull)
	stats.Bear = bucket(outcomes, indicator.RegimeBear)
	stats.Sideways = bucket(outcomes, indicator.RegimeSideways)

	// Recent decay: win rate over the last 14 calendar days collapsing to
	// under half the historical rate, with at least 2 resolved trades.
	cutoff := f.Candles[f.Len()-1].Day().AddDate(0, 0, -14)
	var recent []historyOutcome
	for _, o := range outcomes {
		if !o.day.Before(cutoff) {
			recent = append(recent, o)
		}
	}
	rb := bucket(recent, "")
	if rb.Count >= 2 && rb.WinRate < stats.Total.WinRate*0.5 {
		stats.RecentDecay = true
		stats.Warning = "recent win rate significantly below historical average"
	}
	return stats
}

func bucket(outcomes []historyOutcome, regime string) RegimeBucket {
	var wins, closed int
	for _, o := range outcomes {
		if regime != "" && o.regime != regime {
			continue
		}
		if !o.closed {
			// Unresolved trades stay out of the denominator.
			continue
		}
		closed++
		if o.win {
			wins++
		}
	}
	if closed == 0 {
		return RegimeBucket{}
	}
	return RegimeBucket{
		WinRate: math.Round(float64(wins)/float64(closed)*1000) / 10,
		Count:   closed,
	}
}
