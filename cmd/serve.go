// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"snowdemo/cli/internal/chat"
	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/history"
	"snowdemo/cli/internal/logging"
	"snowdemo/cli/internal/probe"
	"snowdemo/cli/internal/warehouse"
	"snowdemo/cli/internal/web"

	"github.com/spf13/cobra"
)

var (
	serveAddr       string
	serveHealthAddr string
	serveHistory    string
	serveAgent      string
	serveSkipChecks bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat page",
	Long: `Serves the browser chat page. Each browser session keeps its own transcript;
transcripts are persisted when --history (or history.dsn in the config file)
names a sqlite or postgres database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ui := a.cfg.UI
		if serveAddr != "" {
			ui.Addr = serveAddr
		}
		if serveHealthAddr != "" {
			ui.HealthAddr = serveHealthAddr
		}
		dsn := a.cfg.History.DSN
		if serveHistory != "" {
			dsn = serveHistory
		}
		agent := a.cfg.Chat.Agent
		if serveAgent != "" {
			agent = serveAgent
		}

		store, err := history.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer store.Close()

		acquirer := a.acquirer()

		ready := true
		if agent != "test" && !serveSkipChecks {
			ready = startupChecks(ctx, a, acquirer)
		}

		if ui.HealthAddr != "" {
			hs, err := probe.Listen(ui.HealthAddr, a.logger)
			if err != nil {
				return err
			}
			hs.SetServing(ready)
			go func() {
				if err := hs.Serve(ctx); err != nil {
					a.logger.Error("health server stopped", "error", err)
				}
			}()
		}

		srv := webServer(a, ui, store, chat.NewOnce(a.graphBuilder(agent, acquirer)))
		httpSrv := &http.Server{
			Addr:              ui.Addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("chat page listening", "addr", ui.Addr, "agent", agent)
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	},
}

// startupChecks opens a warehouse session up front and logs its context.
// Failures are logged and the page is served anyway; every chat turn opens
// its own session.
// The result seeds the health probe status.
func startupChecks(ctx context.Context, a *app, acq *warehouse.Acquirer) bool {
	checkCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	s, release, err := acq.Borrow(checkCtx)
	if err != nil {
		a.logger.Error("startup connection check failed", "error", logging.Mask(err.Error()))
		return false
	}
	defer release()
	cur, err := s.CurrentContext(checkCtx)
	if err != nil {
		a.logger.Error("startup context query failed", "error", logging.Mask(err.Error()))
		return false
	}
	a.logger.Info("Connection succeeded. Current session context: "+cur.String(),
		slog.String("auth", string(s.Params().Source)))
	return true
}

func webServer(a *app, ui config.UI, store history.Store, inv chat.Invoker) *web.Server {
	return web.NewServer(web.Options{
		UI:      ui,
		Chat:    inv,
		History: store,
		Logger:  a.logger,
	})
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (default from config, :8501)")
	serveCmd.Flags().StringVar(&serveHealthAddr, "health-addr", "", "gRPC health probe address; empty disables it")
	serveCmd.Flags().StringVar(&serveHistory, "history", "", "Transcript store DSN: sqlite://path, file:path or postgres://...")
	serveCmd.Flags().StringVar(&serveAgent, "agent", "", "Agent to use: cortex or test (default from config)")
	serveCmd.Flags().BoolVar(&serveSkipChecks, "skip-checks", false, "Skip the startup connection check")
	rootCmd.AddCommand(serveCmd)
}
