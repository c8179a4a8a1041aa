package backtest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"openclaw/internal/config"
	"openclaw/internal/portfolio"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunConfig is the parameter snapshot stored with each run so results can
// be reproduced later.
type RunConfig struct {
	Tickers        []string          `json:"tickers"`
	Strategies     []string          `json:"strategies,omitempty"`
	LookbackDays   int               `json:"lookback_days"`
	InitialBalance float64           `json:"initial_balance"`
	MinConfidence  float64           `json:"min_confidence"`
	MinPrice       float64           `json:"min_price"`
	Risk           config.RiskParams `json:"risk"`
	Notes          string            `json:"notes,omitempty"`
}

// RunStats summarizes a finished run.
type RunStats struct {
	FinalEquity    float64   `json:"final_equity"`
	Profit         float64   `json:"profit"`
	ReturnPct      float64   `json:"return_pct"`
	WinRate        float64   `json:"win_rate"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	Trades         int       `json:"trades"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	AvgHoldDays    float64   `json:"avg_hold_days"`
	Snapshots      int       `json:"snapshots"`
	EquityPeak     float64   `json:"equity_peak"`
	EquityValley   float64   `json:"equity_valley"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Run is one simulation job with its config and summary.
type Run struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	StartTS        int64     `json:"start_ts"`
	EndTS          int64     `json:"end_ts"`
	InitialBalance float64   `json:"initial_balance"`
	Message        string    `json:"message"`
	Config         RunConfig `json:"config"`
	Stats          RunStats  `json:"stats"`
	Trades         int       `json:"trades"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

func NewRun(cfg RunConfig) Run {
	return Run{
		ID:             uuid.NewString(),
		Status:         RunStatusPending,
		InitialBalance: cfg.InitialBalance,
		Config:         cfg,
		CreatedAt:      time.Now(),
	}
}

func (r Run) MarshalConfig() ([]byte, error) { return json.Marshal(r.Config) }

func (r Run) MarshalStats() ([]byte, error) { return json.Marshal(r.Stats) }

// Result is the in-memory output of one simulation before persistence.
type Result struct {
	Run    Run
	Trades []portfolio.TradeRecord
	Equity []portfolio.EquityPoint
}

// computeStats derives the summary metrics from the ledger output.
func computeStats(initial float64, trades []portfolio.TradeRecord, equity []portfolio.EquityPoint) RunStats {
	stats := RunStats{
		FinalEquity: initial,
		Trades:      len(trades),
		Snapshots:   len(equity),
		FinishedAt:  time.Now(),
	}
	if len(equity) > 0 {
		stats.FinalEquity = equity[len(equity)-1].Equity
	}
	stats.Profit = stats.FinalEquity - initial
	if initial > 0 {
		stats.ReturnPct = stats.Profit / initial * 100
	}

	var holdSum float64
	for _, t := range trades {
		if t.PnL > 0 {
			stats.Wins++
		} else if t.PnL < 0 {
			stats.Losses++
		}
		holdSum += float64(t.HoldDays)
	}
	if decided := stats.Wins + stats.Losses; decided > 0 {
		stats.WinRate = float64(stats.Wins) / float64(decided) * 100
	}
	if len(trades) > 0 {
		stats.AvgHoldDays = holdSum / float64(len(trades))
	}

	peak, valley := initial, initial
	maxDD := 0.0
	for _, pt := range equity {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if pt.Equity < valley {
			valley = pt.Equity
		}
		if peak > 0 {
			if dd := (peak - pt.Equity) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	stats.MaxDrawdownPct = maxDD
	stats.EquityPeak = peak
	stats.EquityValley = valley
	return stats
}
