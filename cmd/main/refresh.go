package main

import (
	"context"
	"time"

	"cheese-stick/src/dashboard"
	"cheese-stick/src/helpers"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
)

// marketClock reports whether any tracked exchange is trading.
type marketClock interface {
	AnyMarketOpen() bool
}

// -----------------------------------------------------------------------------

// runRefreshLoop revalues the competition every refresh interval while a
// tracked market is open, then prunes the price cache. It returns when ctx
// ends.
func runRefreshLoop(
	ctx context.Context,
	dash *dashboard.Controller,
	source interfaces.IPerformanceSource,
	market marketClock,
	db interfaces.IDatabase,
	cfg *models.MConfig,
	appLogger *logger.Logger,
) {
	interval := time.Duration(cfg.DataSource.RefreshMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	errs := helpers.NewErrorHandler(appLogger)
	appLogger.Info("Starting refresh loop (every %s)...", interval)

	for {
		select {
		case <-ctx.Done():
			appLogger.Info("Refresh loop stopped.")
			return

		case <-ticker.C:
			if market != nil && !market.AnyMarketOpen() {
				appLogger.Debug("All markets closed, skipping refresh")
				continue
			}

			start := time.Now()
			refreshCtx, cancel := context.WithTimeout(ctx, interval)
			err := dash.Refresh(refreshCtx, source)
			cancel()
			if err != nil {
				// the dashboard keeps the previous data
				errs.Handle(err, "scheduled refresh")
				continue
			}
			appLogger.Info("Performance refreshed in %s", time.Since(start).Round(time.Millisecond))

			if err := db.CleanupOldData(cfg.DataSource.CacheKeepDays); err != nil {
				errs.Handle(helpers.Classify("database cleanup", err), "price cache")
				continue
			}
			errs.ResetErrorCount()
		}
	}
}
