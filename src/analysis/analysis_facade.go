package analysis

import (
	"context"
	"strings"
	"time"

	"cheese-stick/src/helpers"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
)

// PortfolioFacade loads the stored competition, fetches its closes and values
// it. It backs the HTTP API, the gRPC control plane and the CLI.
type PortfolioFacade struct {
	Config *models.MConfig
	DB     interfaces.IDatabase
	Prices interfaces.IPriceService
	News   interfaces.INewsService
	Logger *logger.Logger

	// Today is the inclusive end of every price range.
	Today func() string
}

// -----------------------------------------------------------------------------

func NewPortfolioFacade(cfg *models.MConfig, db interfaces.IDatabase, prices interfaces.IPriceService, news interfaces.INewsService, log *logger.Logger) *PortfolioFacade {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &PortfolioFacade{
		Config: cfg,
		DB:     db,
		Prices: prices,
		News:   news,
		Logger: log,
		Today:  func() string { return time.Now().Format(time.DateOnly) },
	}
}

// -----------------------------------------------------------------------------
// Competition
// -----------------------------------------------------------------------------

// Competition returns the stored competition, or nil when none was saved.
func (a *PortfolioFacade) Competition() (*models.MCompetition, error) {
	comp, err := a.DB.LoadCompetition()
	if err != nil {
		return nil, helpers.NewDatabaseError(err, "load competition")
	}
	return comp, nil
}

// SaveCompetition normalizes and stores comp, then points the price cache
// calendars at its symbols.
func (a *PortfolioFacade) SaveCompetition(comp *models.MCompetition) error {
	if err := NormalizeCompetition(comp); err != nil {
		return err
	}
	if err := a.DB.SaveCompetition(comp); err != nil {
		return helpers.NewDatabaseError(err, "save competition")
	}
	a.Prices.UpdateSymbols(comp.AllSymbols())
	a.Logger.Info("Competition %q saved with %d players from %s", comp.Name, len(comp.Players), comp.StartDate)
	return nil
}

// loaded returns the stored competition or ErrNoCompetition.
func (a *PortfolioFacade) loaded() (*models.MCompetition, error) {
	comp, err := a.Competition()
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, ErrNoCompetition
	}
	return comp, nil
}

func (a *PortfolioFacade) prices(ctx context.Context, comp *models.MCompetition) (models.MPriceTable, error) {
	table, err := a.Prices.GetPrices(ctx, comp.AllSymbols(), comp.StartDate, a.Today())
	if err != nil {
		return nil, helpers.NewDataSourceError(err, "fetch stock data")
	}
	return table, nil
}

// -----------------------------------------------------------------------------
// Valuation
// -----------------------------------------------------------------------------

// Performance values every player over every trading day since the start.
func (a *PortfolioFacade) Performance(ctx context.Context) (*models.MPerformance, *models.MCompetition, error) {
	comp, err := a.loaded()
	if err != nil {
		return nil, nil, err
	}
	table, err := a.prices(ctx, comp)
	if err != nil {
		return nil, comp, err
	}
	perf, err := Performance(comp, table)
	if err != nil {
		return nil, comp, err
	}
	a.Logger.Debug("Valued %d players over %d trading days", len(perf.Players), len(perf.TradingDays))
	return perf, comp, nil
}

// PlayerDetails returns the period breakdown for the player at index.
func (a *PortfolioFacade) PlayerDetails(ctx context.Context, index int) (*models.MPlayerDetails, error) {
	comp, err := a.loaded()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(comp.Players) {
		return nil, ErrPlayerIndex
	}
	table, err := a.prices(ctx, comp)
	if err != nil {
		return nil, err
	}
	return PlayerDetails(comp, table, index)
}

// StockDetails returns every player's positions as of the last trading day.
func (a *PortfolioFacade) StockDetails(ctx context.Context) (*models.MStockDetails, error) {
	comp, err := a.loaded()
	if err != nil {
		return nil, err
	}
	table, err := a.prices(ctx, comp)
	if err != nil {
		return nil, err
	}
	return StockDetails(comp, table)
}

// -----------------------------------------------------------------------------
// Market lookups
// -----------------------------------------------------------------------------

// NewsFor returns headlines for a comma separated symbol list.
func (a *PortfolioFacade) NewsFor(ctx context.Context, symbols string) ([]models.MNewsItem, error) {
	var list []string
	for _, s := range strings.Split(symbols, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			list = append(list, s)
		}
	}
	if len(list) == 0 {
		return []models.MNewsItem{}, nil
	}
	return a.News.FetchNews(ctx, list)
}

// ValidateSymbol upper-cases symbol and asks the sources about it. Source
// failures count as unknown.
func (a *PortfolioFacade) ValidateSymbol(ctx context.Context, symbol string) (string, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	ok, err := a.News.ValidateSymbol(ctx, symbol)
	if err != nil {
		a.Logger.Warning("Symbol check for %s failed: %v", symbol, err)
		return symbol, false
	}
	return symbol, ok
}
