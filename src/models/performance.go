package models

// MHistorySample is one trading day of a player's portfolio.
type MHistorySample struct {
	Date           string  `json:"date" parquet:"date"`
	Value          float64 `json:"value" parquet:"value"`
	ValueWithShort float64 `json:"value_with_short" parquet:"value_with_short"`
	ShortPnl       float64 `json:"short_pnl" parquet:"short_pnl"`
}

// MPlayerPerformance is the per-player series returned by /api/performance.
type MPlayerPerformance struct {
	Name    string           `json:"name"`
	Color   string           `json:"color"`
	History []MHistorySample `json:"history"`
}

// MPerformance is the payload of /api/performance.
type MPerformance struct {
	StartDate         string               `json:"start_date"`
	TradingDays       []string             `json:"trading_days"`
	Players           []MPlayerPerformance `json:"players"`
	InitialInvestment float64              `json:"initial_investment"`
	Error             string               `json:"error,omitempty"`
}

// LastIndex returns the index of the last trading day, or -1 when empty.
func (p *MPerformance) LastIndex() int {
	return len(p.TradingDays) - 1
}

// MHistoryRow is the flattened export row (parquet/json history export).
type MHistoryRow struct {
	Player         string  `json:"player" parquet:"player"`
	Date           string  `json:"date" parquet:"date"`
	Value          float64 `json:"value" parquet:"value"`
	ValueWithShort float64 `json:"value_with_short" parquet:"value_with_short"`
	ShortPnl       float64 `json:"short_pnl" parquet:"short_pnl"`
}
