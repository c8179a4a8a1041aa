package scanner

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/config"
	"openclaw/internal/logger"
	"openclaw/internal/market"
	"openclaw/internal/strategy"
)

// Scanner fans the watchlist out over a bounded worker pool. Per-ticker
// failures are logged and skipped; a bad ticker never kills the scan.
type Scanner struct {
	source   market.Source
	registry *strategy.Registry
	cfg      config.ScanConfig
}

func New(source market.Source, registry *strategy.Registry, cfg config.ScanConfig) *Scanner {
	return &Scanner{source: source, registry: registry, cfg: cfg}
}

// Scan evaluates the strategy suite over every ticker and returns signals
// sorted by confidence, best first. Only a cancelled context is an error.
func (s *Scanner) Scan(ctx context.Context, tickers []string) ([]strategy.Signal, error) {
	var mu sync.Mutex
	var signals []strategy.Signal

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sig := s.scanOne(ctx, ticker)
			if sig == nil {
				return nil
			}
			mu.Lock()
			signals = append(signals, *sig)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortSignals(signals)
	return signals, nil
}

// sortSignals orders best-first: confidence descending, ticker as the
// tie-break so output is stable across runs.
func sortSignals(signals []strategy.Signal) {
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Confidence != signals[j].Confidence {
			return signals[i].Confidence > signals[j].Confidence
		}
		return signals[i].Ticker < signals[j].Ticker
	})
}

// scanOne fetches, enriches and evaluates one ticker. Any failure is
// treated as "no signal".
func (s *Scanner) scanOne(ctx context.Context, ticker string) *strategy.Signal {
	candles, err := s.source.FetchDaily(ctx, ticker, s.cfg.LookbackDays)
	if err != nil {
		logger.Warnf("scan %s: fetch failed: %v", ticker, err)
		return nil
	}
	candles = market.SortValid(candles)
	if len(candles) == 0 {
		logger.Debugf("scan %s: no usable candles", ticker)
		return nil
	}
	frame, err := indicator.Enrich(ticker, candles)
	if err != nil {
		logger.Warnf("scan %s: enrich failed: %v", ticker, err)
		return nil
	}
	sig := s.registry.Evaluate(frame)
	if sig == nil || sig.Confidence < s.cfg.MinConfidence {
		return nil
	}
	return sig
}
