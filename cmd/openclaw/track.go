package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"openclaw/internal/logger"
	"openclaw/internal/store/gormstore"
	"openclaw/internal/strategy"
	"openclaw/internal/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Manage live tracked positions",
}

var trackAddCmd = &cobra.Command{
	Use:   "add <ticker> <entry-price> <qty>",
	Short: "Start tracking a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("bad entry price %q", args[1])
		}
		qty, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("bad qty %q", args[2])
		}
		side, err := strategy.ParseSide(trackSide)
		if err != nil {
			return err
		}

		svc, closeFn, err := buildTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		pos, err := svc.Track(cmd.Context(), strings.ToUpper(args[0]), side, entry, qty, trackStrategy)
		if err != nil {
			return err
		}
		logger.Infof("tracked %s: stop=%.2f tp1=%.2f", pos.Ticker(), pos.CurrentStop(), pos.TP1())
		return nil
	},
}

var trackRemoveCmd = &cobra.Command{
	Use:   "remove <ticker>",
	Short: "Stop tracking a position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := buildTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		return svc.Untrack(cmd.Context(), strings.ToUpper(args[0]))
	},
}

var trackStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Refresh every tracked position against the market",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := buildTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()
		statuses, err := svc.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			logger.Infof("no tracked positions")
			return nil
		}
		logger.InfoBlock(formatStatuses(statuses))
		return nil
	},
}

var trackSizeCmd = &cobra.Command{
	Use:   "size <entry-price> <stop-loss>",
	Short: "Recommend a position size for a prospective trade",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("bad entry price %q", args[0])
		}
		stop, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("bad stop loss %q", args[1])
		}
		svc, closeFn, err := buildTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		sizing := svc.Sizing(entry, stop, trackWinRate, trackReward)
		if !sizing.Tradeable {
			logger.Warnf("no trade: negative edge (kelly %.3f)", sizing.KellyFraction)
			return nil
		}
		logger.Infof("qty=%.4f maxLoss=%.2f kelly=%.3f half=%.3f constraint=%s",
			sizing.Qty, sizing.MaxLoss, sizing.KellyFraction, sizing.HalfKelly, sizing.Constraint)
		return nil
	},
}

var (
	trackSide     string
	trackStrategy string
	trackWinRate  float64
	trackReward   float64
)

func init() {
	trackAddCmd.Flags().StringVar(&trackSide, "side", "LONG", "position side (LONG or SHORT)")
	trackAddCmd.Flags().StringVar(&trackStrategy, "strategy", "manual", "strategy label for the record")
	trackSizeCmd.Flags().Float64Var(&trackWinRate, "win-rate", 50, "estimated win rate percent")
	trackSizeCmd.Flags().Float64Var(&trackReward, "reward-ratio", 2, "reward-to-risk ratio")
	trackCmd.AddCommand(trackAddCmd, trackRemoveCmd, trackStatusCmd, trackSizeCmd)
}

func buildTracker(ctx context.Context) (*tracker.Service, func(), error) {
	store, err := gormstore.New(cfg.Store.SnapshotDB)
	if err != nil {
		return nil, nil, err
	}
	svc := tracker.NewService(buildSource(), store, cfg.Sim.InitialBalance, cfg.Risk)
	if err := svc.Restore(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return svc, func() { store.Close() }, nil
}

func formatStatuses(statuses []tracker.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d tracked positions\n", len(statuses))
	for _, st := range statuses {
		fmt.Fprintf(&b, "%-8s %-5s entry=%-9.2f price=%-9.2f stop=%-9.2f pnl=%+.2f (%.1f%%) %s",
			st.Ticker, st.Side, st.Entry, st.Price, st.Stop, st.PnL, st.PnLPct, st.Health)
		if st.TP1Hit {
			b.WriteString(" TP1")
		}
		if st.Alert != "" {
			b.WriteString(" !! " + st.Alert)
		}
		b.WriteString("\n")
	}
	return b.String()
}
