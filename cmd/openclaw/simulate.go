package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"openclaw/internal/analysis/indicator"
	"openclaw/internal/backtest"
	"openclaw/internal/logger"
	"openclaw/internal/market"
	"openclaw/internal/strategy"
)

var (
	simStrategies []string
	simSweep      bool
	simChart      bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [list-or-ticker...]",
	Short: "Replay the strategy suite over daily history",
	RunE: func(cmd *cobra.Command, args []string) error {
		tickers, err := resolveTickers(args)
		if err != nil {
			return err
		}
		if len(tickers) == 0 {
			return fmt.Errorf("nothing to simulate")
		}

		frames, err := loadFrames(cmd.Context(), buildSource(), tickers, cfg.Sim.LookbackDays)
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return fmt.Errorf("no usable history for %d tickers", len(tickers))
		}
		registry := strategy.NewRegistry(simStrategies...)
		runCfg := backtest.RunConfig{
			Tickers:        tickers,
			Strategies:     simStrategies,
			LookbackDays:   cfg.Sim.LookbackDays,
			InitialBalance: cfg.Sim.InitialBalance,
			MinConfidence:  cfg.Sim.MinConfidence,
			MinPrice:       cfg.Sim.MinPrice,
			Risk:           cfg.Risk,
		}

		if simSweep {
			points, err := backtest.SweepConfidence(cmd.Context(), frames, registry, cfg.Sim, cfg.Risk, runCfg)
			if err != nil {
				return err
			}
			logger.InfoBlock(backtest.FormatSweep(points))
			return nil
		}

		res, err := backtest.NewSimulator(frames, registry, cfg.Sim, cfg.Risk).Run(cmd.Context(), runCfg)
		if err != nil {
			return err
		}
		logger.InfoBlock(backtest.FormatReport(res))

		store, err := backtest.NewResultStore(cfg.Store.ResultsDir)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveResult(cmd.Context(), res); err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		logger.Infof("run %s saved to %s", res.Run.ID, cfg.Store.ResultsDir)

		if simChart {
			path, err := backtest.RenderEquityChart(cfg.Store.ResultsDir, res.Run, res.Equity)
			if err != nil {
				return err
			}
			logger.Infof("equity chart written to %s", path)
		}
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringSliceVar(&simStrategies, "strategy", nil, "restrict to strategies (trinity, panic, 2b)")
	simulateCmd.Flags().BoolVar(&simSweep, "sweep", false, "sweep the confidence threshold instead of a single run")
	simulateCmd.Flags().BoolVar(&simChart, "chart", true, "render the equity curve HTML")
}

// loadFrames fetches and enriches history for every ticker with the scan
// worker bound. Tickers that fail are logged and dropped.
func loadFrames(ctx context.Context, source market.Source, tickers []string, lookbackDays int) (map[string]*indicator.Frame, error) {
	var mu sync.Mutex
	frames := make(map[string]*indicator.Frame, len(tickers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Scan.Workers)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			candles, err := source.FetchDaily(ctx, ticker, lookbackDays)
			if err != nil {
				logger.Warnf("fetch %s: %v", ticker, err)
				return nil
			}
			candles = market.SortValid(candles)
			if len(candles) == 0 {
				return nil
			}
			frame, err := indicator.Enrich(ticker, candles)
			if err != nil {
				logger.Warnf("enrich %s: %v", ticker, err)
				return nil
			}
			mu.Lock()
			frames[ticker] = frame
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}
