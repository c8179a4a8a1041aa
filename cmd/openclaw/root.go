package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"openclaw/internal/config"
	"openclaw/internal/logger"
	"openclaw/internal/market"
	"openclaw/internal/market/binance"
	"openclaw/internal/market/yahoo"
	"openclaw/internal/universe"
)

var (
	cfgPath string
	cfg     *config.Config
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "openclaw",
	Short: "Daily swing-trade scanner, simulator and position tracker",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = os.Getenv("OPENCLAW_CONFIG")
		}
		var err error
		if path == "" {
			cfg = config.Default()
		} else {
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
		}
		logFile, err = setupLogOutput(cfg.App.LogPath)
		if err != nil {
			return fmt.Errorf("log output: %w", err)
		}
		logger.SetLevel(cfg.App.LogLevel)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path (default configs/config.yaml via OPENCLAW_CONFIG)")
	rootCmd.AddCommand(scanCmd, simulateCmd, trackCmd, serveCmd)
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

// buildSource wires the per-asset-class fetchers behind one router.
func buildSource() market.Source {
	timeout := time.Duration(cfg.Market.HTTPTimeoutSeconds) * time.Second
	return market.Router{
		Crypto: binance.New(binance.Config{
			RESTBaseURL: cfg.Market.BinanceRESTURL,
			HTTPTimeout: timeout,
		}),
		Equity: yahoo.New(yahoo.Config{
			BaseURL:     cfg.Market.YahooBaseURL,
			HTTPTimeout: timeout,
		}),
	}
}

// resolveTickers turns CLI args into a ticker set: explicit tickers pass
// through, list names resolve against the universe file.
func resolveTickers(args []string) ([]string, error) {
	reg, err := universe.NewRegistry(cfg.Universe.Path)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return reg.Tickers(), nil
	}
	var tickers []string
	for _, arg := range args {
		if list, ok := reg.List(arg); ok {
			tickers = append(tickers, list...)
			continue
		}
		tickers = append(tickers, strings.ToUpper(strings.TrimSpace(arg)))
	}
	return dedupe(tickers), nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, t := range in {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
