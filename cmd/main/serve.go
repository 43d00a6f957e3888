package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cheese-stick/src/dashboard"
	"cheese-stick/src/logger"
	"cheese-stick/src/server"
	"cheese-stick/src/timeline"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard: HTTP API, websocket hub and gRPC control service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// -----------------------------------------------------------------------------

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load config
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)

	// 2. Setup Components
	comps, err := setupComponents(conf.MConfig, appLogger)
	if err != nil {
		return err
	}
	defer comps.Close()

	loop := timeline.NewLoop(nil)
	defer loop.Stop()
	dash := dashboard.NewController(conf.MConfig, loop, logger.NewLogger(conf.MConfig, "Dashboard"))
	defer dash.Close()

	srv := server.NewAPIServer(conf.MConfig, comps.Portfolio, dash, logger.NewLogger(conf.MConfig, "API"))

	// Lifecycle Management
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Bootstrap (Initial Load)
	if err := performInitialLoad(ctx, dash, comps.Portfolio, appLogger); err != nil {
		appLogger.Warning("Bootstrap completed with warnings: %v", err)
	}

	// 4. Start Servers
	errCh := make(chan error, 2)
	grpcServer, err := startServers(srv, dash, comps.Portfolio, conf.MConfig, appLogger, errCh)
	if err != nil {
		return err
	}

	// 5. Refresh Loop
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		market, _ := comps.Prices.Freshness.(marketClock)
		runRefreshLoop(ctx, dash, comps.Portfolio, market, comps.DB, conf.MConfig, appLogger)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		appLogger.Info("Shutting down...")
	case err = <-errCh:
		appLogger.Critical("Server stopped unexpectedly: %v", err)
	}

	// Wait for cleanup on exit
	cancel()
	wg.Wait()
	grpcServer.GracefulStop()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if stopErr := srv.Stop(shutdownCtx); stopErr != nil {
		appLogger.Warning("HTTP shutdown: %v", stopErr)
	}
	appLogger.Info("Shutdown complete.")
	return err
}
