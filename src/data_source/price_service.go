package datasource

import (
	"context"
	"sort"
	"strings"
	"sync"

	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
	"cheese-stick/src/utils"
)

// FreshnessChecker decides whether a cached range can be served as is.
type FreshnessChecker interface {
	IsFinal(endDate string) bool
}

// PriceService puts the persistent price cache in front of the sources.
type PriceService struct {
	Source    interfaces.ICloseFetcher
	DB        interfaces.IDatabase
	Freshness FreshnessChecker
	Logger    *logger.Logger

	mu sync.Mutex
}

// -----------------------------------------------------------------------------

func NewPriceService(source interfaces.ICloseFetcher, db interfaces.IDatabase, symbols []string, log *logger.Logger) *PriceService {
	return &PriceService{
		Source:    source,
		DB:        db,
		Freshness: utils.NewMarketScheduler(symbols, log),
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// CacheKey is the sorted symbol list joined by commas, then start and end.
func CacheKey(symbols []string, start, end string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",") + "_" + start + "_" + end
}

// -----------------------------------------------------------------------------

// GetPrices returns closes for symbols in [start, end], from the cache when
// the range is final, otherwise from the sources.
func (p *PriceService) GetPrices(ctx context.Context, symbols []string, start, end string) (models.MPriceTable, error) {
	key := CacheKey(symbols, start, end)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.DB != nil && p.Freshness.IsFinal(end) {
		cached, ok, err := p.DB.LoadPriceCache(key)
		if err != nil {
			p.Logger.Warning("Price cache read failed: %v", err)
		} else if ok {
			p.Logger.Debug("Price cache hit for %s", key)
			return cached, nil
		}
	}

	table, err := p.Source.FetchDailyCloses(ctx, symbols, start, end)
	if err != nil {
		return nil, err
	}

	// Intraday closes are never cached.
	if p.DB != nil && len(table) > 0 && p.Freshness.IsFinal(end) {
		if err := p.DB.SavePriceCache(key, table); err != nil {
			p.Logger.Warning("Price cache write failed: %v", err)
		}
	}
	return table, nil
}

// -----------------------------------------------------------------------------

// UpdateSymbols remaps the freshness calendars when the competition changes.
func (p *PriceService) UpdateSymbols(symbols []string) {
	if ms, ok := p.Freshness.(*utils.MarketScheduler); ok {
		ms.UpdateSymbols(symbols)
	}
}
