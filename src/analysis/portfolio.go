package analysis

import (
	"errors"
	"sort"
	"time"

	"cheese-stick/src/analysis/core"
	"cheese-stick/src/models"
)

// Errors returned when a competition cannot be valued.
var (
	ErrNoCompetition = errors.New("no competition configured")
	ErrNoTradingData = errors.New("no trading data available")
	ErrPlayerIndex   = errors.New("invalid player index")
)

// periodLookback is how far back each period's reference day lies.
var periodLookback = map[string]int{
	"month": 30,
	"week":  7,
	"day":   1,
}

// -----------------------------------------------------------------------------

// TradingDays returns the sorted union of dates priced for any of symbols.
// With no symbols, every symbol in the table counts.
func TradingDays(prices models.MPriceTable, symbols ...string) []string {
	seen := make(map[string]struct{})
	add := func(days map[string]float64) {
		for d := range days {
			seen[d] = struct{}{}
		}
	}
	if len(symbols) == 0 {
		for _, days := range prices {
			add(days)
		}
	} else {
		for _, s := range symbols {
			add(prices[s])
		}
	}

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// -----------------------------------------------------------------------------

// PeriodReferenceDay returns the trading day a period is measured from: the
// first day for "all", otherwise the closest day on or before the last day
// minus 30, 7 or 1 calendar days. Falls back to the first day.
func PeriodReferenceDay(tradingDays []string, period string) string {
	if len(tradingDays) == 0 {
		return ""
	}
	lookback, ok := periodLookback[period]
	if !ok {
		return tradingDays[0]
	}

	last, err := time.Parse(time.DateOnly, tradingDays[len(tradingDays)-1])
	if err != nil {
		return tradingDays[0]
	}
	target := last.AddDate(0, 0, -lookback).Format(time.DateOnly)

	for i := len(tradingDays) - 1; i >= 0; i-- {
		if tradingDays[i] <= target {
			return tradingDays[i]
		}
	}
	return tradingDays[0]
}

// -----------------------------------------------------------------------------

// Performance values every player on every trading day. Long shares are
// bought on the first trading day; the short is a P&L-only bet.
func Performance(comp *models.MCompetition, prices models.MPriceTable) (*models.MPerformance, error) {
	if comp == nil {
		return nil, ErrNoCompetition
	}
	days := TradingDays(prices)
	if len(days) == 0 {
		return nil, ErrNoTradingData
	}

	first := days[0]
	allocation := comp.StockAllocation

	perf := &models.MPerformance{
		StartDate:         comp.StartDate,
		TradingDays:       days,
		InitialInvestment: comp.InitialInvestment,
		Players:           make([]models.MPlayerPerformance, 0, len(comp.Players)),
	}

	for _, player := range comp.Players {
		shares := make(map[string]float64, len(player.Longs))
		for _, sym := range player.Longs {
			if start, ok := prices.Lookup(sym, first); ok {
				shares[sym] = core.SharesFor(allocation, start)
			}
		}
		shortStart, _ := prices.Lookup(player.Short, first)

		history := make([]models.MHistorySample, 0, len(days))
		for _, day := range days {
			value := 0.0
			for _, sym := range player.Longs {
				n, held := shares[sym]
				if !held {
					continue
				}
				if px, ok := prices.Lookup(sym, day); ok {
					value += n * px
				}
			}

			shortPnl := 0.0
			if px, ok := prices.Lookup(player.Short, day); ok {
				shortPnl = core.ShortPnl(allocation, shortStart, px)
			}

			history = append(history, models.MHistorySample{
				Date:           day,
				Value:          core.Round2(value),
				ValueWithShort: core.Round2(value + shortPnl),
				ShortPnl:       core.Round2(shortPnl),
			})
		}

		perf.Players = append(perf.Players, models.MPlayerPerformance{
			Name:    player.Name,
			Color:   player.Color,
			History: history,
		})
	}

	return perf, nil
}

// -----------------------------------------------------------------------------

// totalValue is the player's longs plus short P&L on day, with shares fixed
// on first.
func totalValue(player models.MPlayer, prices models.MPriceTable, allocation float64, first, day string) float64 {
	total := 0.0
	for _, sym := range player.Longs {
		start, ok1 := prices.Lookup(sym, first)
		px, ok2 := prices.Lookup(sym, day)
		if ok1 && ok2 {
			total += core.SharesFor(allocation, start) * px
		}
	}
	start, ok1 := prices.Lookup(player.Short, first)
	px, ok2 := prices.Lookup(player.Short, day)
	if ok1 && ok2 {
		total += core.ShortPnl(allocation, start, px)
	}
	return total
}

// -----------------------------------------------------------------------------

// positions lists the player's long and short legs as of last, optionally
// with per-period returns.
func positions(player models.MPlayer, prices models.MPriceTable, allocation float64, days []string, withPeriods bool) []models.MPosition {
	first, last := days[0], days[len(days)-1]

	periodsFor := func(sym string, current float64, invert bool) map[string]float64 {
		if !withPeriods {
			return nil
		}
		out := make(map[string]float64, len(models.Periods))
		for _, period := range models.Periods {
			ref := PeriodReferenceDay(days, period)
			refPx, ok := prices.Lookup(sym, ref)
			if !ok || refPx == 0 {
				continue
			}
			pct := core.CalculateChangePercent(current, refPx) * 100
			if invert {
				pct = -pct
			}
			out[period] = core.Round2(pct)
		}
		return out
	}

	out := make([]models.MPosition, 0, len(player.Longs)+1)
	for _, sym := range player.Longs {
		start, ok1 := prices.Lookup(sym, first)
		current, ok2 := prices.Lookup(sym, last)
		if !ok1 || !ok2 || start == 0 {
			continue
		}
		shares := core.SharesFor(allocation, start)
		out = append(out, models.MPosition{
			Symbol:       sym,
			Type:         "long",
			Shares:       core.Round(shares, 4),
			StartPrice:   core.Round2(start),
			CurrentPrice: core.Round2(current),
			CurrentValue: core.Round2(shares * current),
			GainPct:      core.Round2(core.CalculateChangePercent(current, start) * 100),
			Periods:      periodsFor(sym, current, false),
		})
	}

	start, ok1 := prices.Lookup(player.Short, first)
	current, ok2 := prices.Lookup(player.Short, last)
	if ok1 && ok2 && start != 0 {
		out = append(out, models.MPosition{
			Symbol:       player.Short,
			Type:         "short",
			StartPrice:   core.Round2(start),
			CurrentPrice: core.Round2(current),
			CurrentValue: core.Round2(core.ShortPnl(allocation, start, current)),
			GainPct:      core.Round2(-core.CalculateChangePercent(current, start) * 100),
			Periods:      periodsFor(player.Short, current, true),
		})
	}
	return out
}

// -----------------------------------------------------------------------------

// PlayerDetails computes period performance and positions for one player.
// Trading days are those on which the player's own symbols traded.
func PlayerDetails(comp *models.MCompetition, prices models.MPriceTable, index int) (*models.MPlayerDetails, error) {
	if comp == nil {
		return nil, ErrNoCompetition
	}
	if index < 0 || index >= len(comp.Players) {
		return nil, ErrPlayerIndex
	}

	player := comp.Players[index]
	days := TradingDays(prices, player.Symbols()...)
	if len(days) == 0 {
		return nil, ErrNoTradingData
	}

	first, last := days[0], days[len(days)-1]
	allocation := comp.StockAllocation
	initial := comp.InitialInvestment
	endValue := totalValue(player, prices, allocation, first, last)

	performance := make(map[string]models.MPeriodPerformance, len(models.Periods))
	for _, period := range models.Periods {
		var change, changePct float64
		if period == "all" {
			change = endValue - initial
			changePct = core.CalculateChangePercent(endValue, initial) * 100
		} else {
			startValue := totalValue(player, prices, allocation, first, PeriodReferenceDay(days, period))
			change = endValue - startValue
			if startValue > 0 {
				changePct = change / startValue * 100
			}
		}
		performance[period] = models.MPeriodPerformance{
			Value:     core.Round2(endValue),
			Change:    core.Round2(change),
			ChangePct: core.Round2(changePct),
		}
	}

	return &models.MPlayerDetails{
		Name:        player.Name,
		Color:       player.Color,
		Symbols:     player.Symbols(),
		Performance: performance,
		Positions:   positions(player, prices, allocation, days, true),
		AsOf:        last,
	}, nil
}

// -----------------------------------------------------------------------------

// StockDetails lists every player's positions as of the last trading day.
func StockDetails(comp *models.MCompetition, prices models.MPriceTable) (*models.MStockDetails, error) {
	if comp == nil {
		return nil, ErrNoCompetition
	}
	days := TradingDays(prices)
	if len(days) == 0 {
		return nil, ErrNoTradingData
	}

	out := &models.MStockDetails{
		Players: make([]models.MPlayerPositions, 0, len(comp.Players)),
		AsOf:    days[len(days)-1],
	}
	for _, player := range comp.Players {
		out.Players = append(out.Players, models.MPlayerPositions{
			Name:      player.Name,
			Positions: positions(player, prices, comp.StockAllocation, days, false),
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// HistoryRows flattens a performance snapshot for export.
func HistoryRows(perf *models.MPerformance) []models.MHistoryRow {
	var rows []models.MHistoryRow
	for _, p := range perf.Players {
		for _, s := range p.History {
			rows = append(rows, models.MHistoryRow{
				Player:         p.Name,
				Date:           s.Date,
				Value:          s.Value,
				ValueWithShort: s.ValueWithShort,
				ShortPnl:       s.ShortPnl,
			})
		}
	}
	return rows
}
