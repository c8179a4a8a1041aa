package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"openclaw/internal/backtest"
	"openclaw/internal/logger"
	httpapi "openclaw/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve simulation results and the tracker over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := backtest.NewResultStore(cfg.Store.ResultsDir)
		if err != nil {
			return err
		}
		defer results.Close()

		trk, closeTracker, err := buildTracker(cmd.Context())
		if err != nil {
			return err
		}
		defer closeTracker()

		srv, err := httpapi.NewServer(httpapi.Config{
			Addr:    cfg.App.HTTPAddr,
			Results: results,
			Tracker: trk,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger.Infof("http api listening on %s", cfg.App.HTTPAddr)
		return srv.Start(ctx)
	},
}
