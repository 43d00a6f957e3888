package interfaces

import (
	"context"

	"cheese-stick/src/models"
)

// -----------------------------------------------------------------------------
// ICloseFetcher is the quote half of a data source.
// -----------------------------------------------------------------------------

type ICloseFetcher interface {
	FetchDailyCloses(ctx context.Context, symbols []string, start, end string) (models.MPriceTable, error)
}

// -----------------------------------------------------------------------------
// IPriceService serves daily closes, cached where the range is final.
// -----------------------------------------------------------------------------

type IPriceService interface {

	// GetPrices returns closes for symbols between start and end (inclusive).
	GetPrices(ctx context.Context, symbols []string, start, end string) (models.MPriceTable, error)

	// UpdateSymbols remaps the market calendars used for cache freshness.
	UpdateSymbols(symbols []string)
}

// -----------------------------------------------------------------------------
// INewsService gathers headlines and checks tickers.
// -----------------------------------------------------------------------------

type INewsService interface {

	// FetchNews returns merged headlines for symbols, newest first.
	FetchNews(ctx context.Context, symbols []string) ([]models.MNewsItem, error)

	// ValidateSymbol reports whether any source knows the symbol.
	ValidateSymbol(ctx context.Context, symbol string) (bool, error)
}

// -----------------------------------------------------------------------------
// IPerformanceSource values the stored competition.
// -----------------------------------------------------------------------------

type IPerformanceSource interface {

	// Performance returns the valued competition and the competition itself.
	Performance(ctx context.Context) (*models.MPerformance, *models.MCompetition, error)
}
