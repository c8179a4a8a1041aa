package backtest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"openclaw/internal/portfolio"
)

// ResultStore persists runs, their trades and equity snapshots to a
// single-writer SQLite file under the results directory.
type ResultStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func NewResultStore(root string) (*ResultStore, error) {
	if root == "" {
		return nil, fmt.Errorf("result store root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "runs.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureResultSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &ResultStore{db: db, path: path}, nil
}

func (s *ResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureResultSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sim_runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			start_ts INTEGER NOT NULL,
			end_ts INTEGER NOT NULL,
			initial_balance REAL NOT NULL,
			final_equity REAL NOT NULL DEFAULT 0,
			profit REAL NOT NULL DEFAULT 0,
			return_pct REAL NOT NULL DEFAULT 0,
			win_rate REAL NOT NULL DEFAULT 0,
			max_drawdown REAL NOT NULL DEFAULT 0,
			trades INTEGER NOT NULL DEFAULT 0,
			config_json TEXT NOT NULL,
			stats_json TEXT,
			message TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS sim_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ticker TEXT NOT NULL,
			strategy TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_ts INTEGER NOT NULL,
			exit_ts INTEGER NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			quantity REAL NOT NULL,
			pnl REAL NOT NULL,
			pnl_pct REAL NOT NULL,
			reason TEXT NOT NULL,
			hold_days INTEGER NOT NULL,
			FOREIGN KEY(run_id) REFERENCES sim_runs(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS sim_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			equity REAL NOT NULL,
			cash REAL NOT NULL,
			open_positions INTEGER NOT NULL,
			FOREIGN KEY(run_id) REFERENCES sim_runs(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON sim_trades(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_run ON sim_snapshots(run_id, ts);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveResult writes the run, its trades and its equity curve in one
// transaction.
func (s *ResultStore) SaveResult(ctx context.Context, res *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return fmt.Errorf("result store is closed")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cfgJSON, err := res.Run.MarshalConfig()
	if err != nil {
		return err
	}
	statsJSON, err := res.Run.MarshalStats()
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sim_runs
			(id, status, start_ts, end_ts, initial_balance, final_equity, profit,
			 return_pct, win_rate, max_drawdown, trades, config_json, stats_json,
			 message, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Run.ID, res.Run.Status, res.Run.StartTS, res.Run.EndTS, res.Run.InitialBalance,
		res.Run.Stats.FinalEquity, res.Run.Stats.Profit, res.Run.Stats.ReturnPct,
		res.Run.Stats.WinRate, res.Run.Stats.MaxDrawdownPct, res.Run.Trades,
		string(cfgJSON), string(statsJSON), res.Run.Message, now, now,
		nullableTime(res.Run.CompletedAt)); err != nil {
		return err
	}

	for _, t := range res.Trades {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sim_trades
				(run_id, ticker, strategy, side, entry_ts, exit_ts, entry_price,
				 exit_price, quantity, pnl, pnl_pct, reason, hold_days)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.Run.ID, t.Ticker, t.Strategy, t.Side, t.EntryDate.UnixMilli(),
			t.ExitDate.UnixMilli(), t.EntryPrice, t.ExitPrice, t.Qty, t.PnL,
			t.PnLPct, t.Reason, t.HoldDays); err != nil {
			return err
		}
	}
	for _, pt := range res.Equity {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sim_snapshots (run_id, ts, equity, cash, open_positions)
			VALUES (?, ?, ?, ?, ?)`,
			res.Run.ID, pt.Date.UnixMilli(), pt.Equity, pt.Cash, pt.Open); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, start_ts, end_ts, initial_balance, final_equity, profit,
		       return_pct, win_rate, max_drawdown, trades, config_json, stats_json,
		       message, created_at, updated_at, completed_at
		FROM sim_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, run)
	}
	return list, rows.Err()
}

func (s *ResultStore) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, start_ts, end_ts, initial_balance, final_equity, profit,
		       return_pct, win_rate, max_drawdown, trades, config_json, stats_json,
		       message, created_at, updated_at, completed_at
		FROM sim_runs WHERE id=?`, id)
	return scanRun(row)
}

func (s *ResultStore) ListTrades(ctx context.Context, runID string, limit int) ([]portfolio.TradeRecord, error) {
	if limit <= 0 || limit > 2000 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, strategy, side, entry_ts, exit_ts, entry_price, exit_price,
		       quantity, pnl, pnl_pct, reason, hold_days
		FROM sim_trades
		WHERE run_id=?
		ORDER BY id ASC
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []portfolio.TradeRecord
	for rows.Next() {
		var t portfolio.TradeRecord
		var entryTS, exitTS int64
		if err := rows.Scan(&t.Ticker, &t.Strategy, &t.Side, &entryTS, &exitTS,
			&t.EntryPrice, &t.ExitPrice, &t.Qty, &t.PnL, &t.PnLPct, &t.Reason,
			&t.HoldDays); err != nil {
			return nil, err
		}
		t.EntryDate = timeFromMillis(entryTS)
		t.ExitDate = timeFromMillis(exitTS)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *ResultStore) ListSnapshots(ctx context.Context, runID string, limit int) ([]portfolio.EquityPoint, error) {
	if limit <= 0 || limit > 5000 {
		limit = 2000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, equity, cash, open_positions
		FROM sim_snapshots
		WHERE run_id=?
		ORDER BY ts ASC
		LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []portfolio.EquityPoint
	for rows.Next() {
		var pt portfolio.EquityPoint
		var ts int64
		if err := rows.Scan(&ts, &pt.Equity, &pt.Cash, &pt.Open); err != nil {
			return nil, err
		}
		pt.Date = timeFromMillis(ts)
		out = append(out, pt)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var cfgStr string
	var statsStr sql.NullString
	var createdAt, updatedAt int64
	var completedAt sql.NullInt64
	if err := row.Scan(&run.ID, &run.Status, &run.StartTS, &run.EndTS, &run.InitialBalance,
		&run.Stats.FinalEquity, &run.Stats.Profit, &run.Stats.ReturnPct, &run.Stats.WinRate,
		&run.Stats.MaxDrawdownPct, &run.Trades, &cfgStr, &statsStr, &run.Message,
		&createdAt, &updatedAt, &completedAt); err != nil {
		return Run{}, err
	}
	run.CreatedAt = timeFromMillis(createdAt)
	run.UpdatedAt = timeFromMillis(updatedAt)
	if completedAt.Valid {
		run.CompletedAt = timeFromMillis(completedAt.Int64)
	}
	if err := json.Unmarshal([]byte(cfgStr), &run.Config); err != nil {
		return Run{}, err
	}
	if statsStr.Valid && statsStr.String != "" {
		if err := json.Unmarshal([]byte(statsStr.String), &run.Stats); err != nil {
			return Run{}, err
		}
	}
	return run, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func timeFromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
