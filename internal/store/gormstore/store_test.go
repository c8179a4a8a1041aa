package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"openclaw/internal/config"
	"openclaw/internal/position"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleSnapshot(ticker string) position.Snapshot {
	return position.Snapshot{
		Ticker:          ticker,
		Side:            "LONG",
		EntryPrice:      60000,
		Qty:             0.5,
		EntryDate:       time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
		Strategy:        "panic",
		ATREntry:        2000,
		InitialStop:     56000,
		CurrentStop:     60060,
		BreakevenActive: true,
		Extreme:         63100,
		TP1:             64000,
		TP1Hit:          false,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	params := config.DefaultRiskParams()
	params.RiskPerTradePct = 0.01
	assert.NoError(t, s.Save(ctx, sampleSnapshot("BTC-USD"), params))

	snap, got, ok, err := s.Load(ctx, "BTC-USD")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "BTC-USD", snap.Ticker)
	assert.Equal(t, "LONG", snap.Side)
	assert.Equal(t, 60000.0, snap.EntryPrice)
	assert.Equal(t, 60060.0, snap.CurrentStop)
	assert.True(t, snap.BreakevenActive)
	assert.WithinDuration(t, sampleSnapshot("BTC-USD").EntryDate, snap.EntryDate, time.Second)
	// The position restores under the rules it was opened with.
	assert.Equal(t, 0.01, got.RiskPerTradePct)
	assert.Equal(t, params.TrailingStopATR, got.TrailingStopATR)
}

func TestSaveUpsertsByTicker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	params := config.DefaultRiskParams()

	snap := sampleSnapshot("NVDA")
	assert.NoError(t, s.Save(ctx, snap, params))

	snap.CurrentStop = 61000
	snap.TP1Hit = true
	assert.NoError(t, s.Save(ctx, snap, params))

	got, _, ok, err := s.Load(ctx, "NVDA")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 61000.0, got.CurrentStop)
	assert.True(t, got.TP1Hit)

	snaps, _, err := s.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, _, ok, err := s.Load(context.Background(), "GHOST")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestListOrdersByTicker(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	params := config.DefaultRiskParams()
	for _, ticker := range []string{"MSFT", "AAPL", "COIN"} {
		assert.NoError(t, s.Save(ctx, sampleSnapshot(ticker), params))
	}

	snaps, paramList, err := s.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, paramList, 3)
	tickers := make([]string, len(snaps))
	for i, snap := range snaps {
		tickers[i] = snap.Ticker
	}
	assert.Equal(t, []string{"AAPL", "COIN", "MSFT"}, tickers)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	assert.NoError(t, s.Save(ctx, sampleSnapshot("SOL-USD"), config.DefaultRiskParams()))

	assert.NoError(t, s.Delete(ctx, "SOL-USD"))
	_, _, ok, err := s.Load(ctx, "SOL-USD")
	assert.NoError(t, err)
	assert.False(t, ok)

	// Deleting something never stored is not an error.
	assert.NoError(t, s.Delete(ctx, "GHOST"))
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("   ")
	assert.Error(t, err)
}
