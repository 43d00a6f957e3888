package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cheese-stick/src/helpers"
	"cheese-stick/src/interfaces"
	"cheese-stick/src/logger"
	"cheese-stick/src/models"
)

// MultiSourceManager queries an ordered list of IDataSource instances.
// Earlier sources take precedence.
type MultiSourceManager struct {
	sources []interfaces.IDataSource
	Logger  *logger.Logger
	mu      sync.RWMutex

	NewsSymbolsMax int
	NewsItemsMax   int
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IDataSource, log *logger.Logger) *MultiSourceManager {
	return &MultiSourceManager{
		sources:        append([]interfaces.IDataSource(nil), sources...),
		Logger:         log,
		NewsSymbolsMax: 6,
		NewsItemsMax:   12,
	}
}

// -----------------------------------------------------------------------------

// AddSource appends a source with the lowest precedence.
func (m *MultiSourceManager) AddSource(source interfaces.IDataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.sources {
		if s.Name() == source.Name() {
			return fmt.Errorf("source %s already exists", source.Name())
		}
	}
	m.sources = append(m.sources, source)
	m.Logger.Info("Added source: %s", source.Name())
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource removes a source by name
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.sources {
		if s.Name() == name {
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			m.Logger.Info("Removed source: %s", name)
			return nil
		}
	}
	return fmt.Errorf("source %s not found", name)
}

// -----------------------------------------------------------------------------

// GetAllSources returns the sources in precedence order.
func (m *MultiSourceManager) GetAllSources() []interfaces.IDataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]interfaces.IDataSource(nil), m.sources...)
}

// -----------------------------------------------------------------------------

// Name returns "MultiSourceManager"
func (m *MultiSourceManager) Name() string {
	return "MultiSourceManager"
}

// -----------------------------------------------------------------------------

// FetchDailyCloses asks each source in turn for the symbols still missing.
func (m *MultiSourceManager) FetchDailyCloses(ctx context.Context, symbols []string, start, end string) (models.MPriceTable, error) {
	results := models.MPriceTable{}
	missing := append([]string(nil), symbols...)
	var lastErr error

	for _, src := range m.GetAllSources() {
		if len(missing) == 0 {
			break
		}
		data, err := src.FetchDailyCloses(ctx, missing, start, end)
		if err != nil {
			if helpers.IsValidation(err) {
				return nil, err
			}
			m.Logger.Warning("Source %s failed daily closes: %v", src.Name(), err)
			lastErr = err
			continue
		}

		var still []string
		for _, sym := range missing {
			if days, ok := data[sym]; ok && len(days) > 0 {
				results[sym] = days
			} else {
				still = append(still, sym)
			}
		}
		missing = still
	}

	if len(results) == 0 && lastErr != nil {
		return nil, lastErr
	}
	if len(missing) > 0 {
		m.Logger.Warning("No prices for %s", strings.Join(missing, ","))
	}
	return results, nil
}

// -----------------------------------------------------------------------------

// FetchNews gathers headlines for up to NewsSymbolsMax symbols, removes
// duplicate titles and returns the newest NewsItemsMax.
func (m *MultiSourceManager) FetchNews(ctx context.Context, symbols []string) ([]models.MNewsItem, error) {
	if len(symbols) > m.NewsSymbolsMax {
		symbols = symbols[:m.NewsSymbolsMax]
	}

	var all []models.MNewsItem
	seen := make(map[string]bool)

	for _, sym := range symbols {
		for _, src := range m.GetAllSources() {
			items, err := src.FetchNews(ctx, sym, 0)
			if err != nil {
				m.Logger.Warning("Source %s failed news for %s: %v", src.Name(), sym, err)
				continue
			}
			for _, it := range items {
				if seen[it.Title] {
					continue
				}
				seen[it.Title] = true
				all = append(all, it)
			}
			if len(items) > 0 {
				break
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Published > all[j].Published })
	if len(all) > m.NewsItemsMax {
		all = all[:m.NewsItemsMax]
	}
	if all == nil {
		all = []models.MNewsItem{}
	}
	return all, nil
}

// -----------------------------------------------------------------------------

// ValidateSymbol returns true as soon as one source knows the symbol.
func (m *MultiSourceManager) ValidateSymbol(ctx context.Context, symbol string) (bool, error) {
	var lastErr error
	for _, src := range m.GetAllSources() {
		ok, err := src.ValidateSymbol(ctx, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, lastErr
}
