package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"openclaw/internal/logger"
	"openclaw/internal/scanner"
	"openclaw/internal/strategy"
)

var scanStrategies []string

var scanCmd = &cobra.Command{
	Use:   "scan [list-or-ticker...]",
	Short: "Scan the watchlist for fresh entry signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		tickers, err := resolveTickers(args)
		if err != nil {
			return err
		}
		if len(tickers) == 0 {
			return fmt.Errorf("nothing to scan")
		}
		logger.Infof("scanning %d tickers with %d workers", len(tickers), cfg.Scan.Workers)

		sc := scanner.New(buildSource(), strategy.NewRegistry(scanStrategies...), cfg.Scan)
		signals, err := sc.Scan(cmd.Context(), tickers)
		if err != nil {
			return err
		}
		if len(signals) == 0 {
			logger.Infof("no signals today")
			return nil
		}
		logger.InfoBlock(formatSignals(signals))
		return nil
	},
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanStrategies, "strategy", nil, "restrict to strategies (trinity, panic, 2b)")
}

func formatSignals(signals []strategy.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d signals\n", len(signals))
	for _, sig := range signals {
		fmt.Fprintf(&b, "%-8s %-8s %-5s conf=%-5.0f price=%-9.2f stop=%-9.2f target=%-9.2f rr=%.2f\n",
			sig.Ticker, sig.Strategy, sig.SideLabel, sig.Confidence,
			sig.Price, sig.StopLoss, sig.TakeProfit, sig.RiskReward())
		for k, v := range sig.Metrics {
			fmt.Fprintf(&b, "    %s=%s", k, v)
		}
		if len(sig.Metrics) > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
