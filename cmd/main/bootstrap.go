package main

import (
	"context"
	"errors"
	"time"

	"cheese-stick/src/analysis"
	"cheese-stick/src/dashboard"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
)

const bootstrapTimeout = 2 * time.Minute

// performInitialLoad values the stored competition once so the first
// websocket client gets a chart. A missing competition is not an error: the
// dashboard waits for the admin page.
func performInitialLoad(ctx context.Context, dash *dashboard.Controller, source interfaces.IPerformanceSource, appLogger *logger.Logger) error {
	appLogger.Info("Fetching initial data...")

	ctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
	defer cancel()

	err := dash.Refresh(ctx, source)
	switch {
	case err == nil:
		appLogger.Info("Initialization complete.")
		return nil
	case errors.Is(err, analysis.ErrNoCompetition):
		appLogger.Info("No competition configured yet.")
		return nil
	default:
		return err
	}
}
