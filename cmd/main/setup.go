package main

import (
	"fmt"
	"time"

	"cheese-stick/src/analysis"
	datasource "cheese-stick/src/data_source"
	"cheese-stick/src/data_source/yahoo"
	"cheese-stick/src/helpers"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
	"cheese-stick/src/network"
	"cheese-stick/src/storage"
)

const dbOpenAttempts = 3

// components is everything a command needs to value the competition.
type components struct {
	DB        interfaces.IDatabase
	Sources   *datasource.MultiSourceManager
	Prices    *datasource.PriceService
	Portfolio *analysis.PortfolioFacade
}

// Close releases the database.
func (c *components) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the database connection based on config. A
// postgres server that is still starting gets a few attempts.
func setupDatabase(cfg *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	dbLogger := logger.NewLogger(cfg, "Storage")
	db, err := helpers.RetryWithBackoff("open database", dbOpenAttempts, time.Second, func() (interfaces.IDatabase, error) {
		return storage.Open(cfg, dbLogger)
	})
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(cfg *models.MConfig) interfaces.INetworkManager {
	return network.NewAsyncNetworkManager(cfg, logger.NewLogger(cfg, "NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupDataSources builds the configured sources behind a MultiSourceManager.
func setupDataSources(cfg *models.MConfig, appLogger *logger.Logger, netMgr interfaces.INetworkManager) (*datasource.MultiSourceManager, error) {
	var sources []interfaces.IDataSource
	appLogger.Info("Initializing data sources...")

	for _, srcCfg := range cfg.DataSource.Sources {
		switch srcCfg.Type {
		case "yahoo":
			sources = append(sources, yahoo.NewYahooFinanceSource(cfg, srcCfg, netMgr))
			appLogger.Info("Added source: %s", srcCfg.Name)
		default:
			appLogger.Warning("Unknown source type in config: %s", srcCfg.Type)
		}
	}
	if len(sources) == 0 {
		appLogger.Critical("No valid data sources initialized.")
		return nil, fmt.Errorf("no valid data sources")
	}

	multi := datasource.NewMultiSourceManager(sources, logger.NewLogger(cfg, "Sources"))
	multi.NewsSymbolsMax = cfg.DataSource.NewsSymbolsMax
	multi.NewsItemsMax = cfg.DataSource.NewsItemsMax
	return multi, nil
}

// -----------------------------------------------------------------------------

// setupComponents wires storage, sources, the price cache and the portfolio
// facade. The price cache starts with the stored competition's symbols.
func setupComponents(cfg *models.MConfig, appLogger *logger.Logger) (*components, error) {
	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}
	sources, err := setupDataSources(cfg, appLogger, setupNetwork(cfg))
	if err != nil {
		db.Close()
		return nil, err
	}

	var symbols []string
	if comp, err := db.LoadCompetition(); err != nil {
		appLogger.Warning("Could not read stored competition: %v", err)
	} else if comp != nil {
		symbols = comp.AllSymbols()
	}

	prices := datasource.NewPriceService(sources, db, symbols, logger.NewLogger(cfg, "Prices"))
	portfolio := analysis.NewPortfolioFacade(cfg, db, prices, sources, logger.NewLogger(cfg, "Portfolio"))

	return &components{DB: db, Sources: sources, Prices: prices, Portfolio: portfolio}, nil
}
