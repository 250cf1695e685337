package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/safarnama/safarnama/internal/core/observability/log"
)

var shutdownTimeout time.Duration

// serveCmd runs the websocket frame server until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream genre fields to browser renderers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	app, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err = app.Server.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		app.Logger.Info("Shutdown requested")

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.Server.Stop(stopCtx)
	})

	err = g.Wait()
	if err != nil {
		app.Logger.Error("Server stopped with error", log.Error(err))
	}
	return err
}

func init() {
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "time allowed for clients to disconnect")
}
