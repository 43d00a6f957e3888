package utils

import (
	"sync"
	"time"

	"cheese-stick/src/logger"
)

// MarketScheduler tracks the exchanges of the competition symbols and decides
// whether cached closes can still change.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	// Now is overridable in tests.
	Now func() time.Time
	mu  sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		Now:       time.Now,
	}
	ms.MapSymbolsToCalendars(symbols)
	return ms
}

// -----------------------------------------------------------------------------

// MapSymbolsToCalendars replaces the symbol to calendar mapping.
func (ms *MarketScheduler) MapSymbolsToCalendars(symbols []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	byMIC := make(map[string]*TradingCalendar)
	ms.Calendars = make(map[string]*TradingCalendar)

	for _, symbol := range symbols {
		mic := MICForSymbol(symbol)
		cal, ok := byMIC[mic]
		if !ok {
			cal = GetCalendar(symbol)
			byMIC[mic] = cal
		}
		ms.Calendars[symbol] = cal
	}

	ms.Logger.Debug("Mapped %d symbols to %d unique calendars", len(symbols), len(byMIC))
}

// UpdateSymbols updates the scheduler with a new list of symbols
func (ms *MarketScheduler) UpdateSymbols(symbols []string) {
	ms.MapSymbolsToCalendars(symbols)
}

// -----------------------------------------------------------------------------

func (ms *MarketScheduler) uniqueCalendars() []*TradingCalendar {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	seen := make(map[*TradingCalendar]bool)
	var out []*TradingCalendar
	for _, cal := range ms.Calendars {
		if !seen[cal] {
			seen[cal] = true
			out = append(out, cal)
		}
	}
	return out
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := ms.Now().UTC()
	for _, cal := range ms.uniqueCalendars() {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// IsFinal reports whether closes up to endDate (YYYY-MM-DD) can no longer
// change: the range ends before today, or every tracked market has closed.
func (ms *MarketScheduler) IsFinal(endDate string) bool {
	today := ms.Now().Format(time.DateOnly)
	if endDate < today {
		return true
	}
	return !ms.AnyMarketOpen()
}
