package interfaces

import (
	"context"

	"cheese-stick/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource interface for fetching quotes and headlines from external sources.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchDailyCloses returns the daily closes of symbols between start and
	// end (inclusive, YYYY-MM-DD).
	FetchDailyCloses(ctx context.Context, symbols []string, start, end string) (models.MPriceTable, error)

	// -----------------------------------------------------------------------------

	// FetchNews returns recent headlines for symbol, newest first.
	FetchNews(ctx context.Context, symbol string, limit int) ([]models.MNewsItem, error)

	// -----------------------------------------------------------------------------

	// ValidateSymbol reports whether the symbol has recent trading data.
	ValidateSymbol(ctx context.Context, symbol string) (bool, error)
}
