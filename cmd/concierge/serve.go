package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/concierge/internal/app"
	"github.com/ternarybob/concierge/internal/common"
	"github.com/ternarybob/concierge/internal/server"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, refresh scheduler and chat transport",
	RunE:  runServe,
}

func init() {
	registerServeFlags(serveCmd)
}

func registerServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (overrides config)")
	cmd.Flags().StringVar(&serverHost, "host", "", "Server host (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	common.PrintBanner(config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	if err := application.Start(ctx); err != nil {
		return err
	}

	srv := server.New(application)
	logger.Info().
		Str("url", "http://"+srv.Addr()).
		Msg("Server ready - Press Ctrl+C to stop")

	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info().Msg("Server stopped")
	return nil
}
