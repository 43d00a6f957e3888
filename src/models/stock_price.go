package models

// MDailyClose is one adjusted close for a symbol.
type MDailyClose struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"` // YYYY-MM-DD, exchange local
	Close  float64 `json:"close"`
}

// MPriceTable maps symbol -> date -> close.
type MPriceTable map[string]map[string]float64

// Set records a close, creating the inner map if needed.
func (t MPriceTable) Set(symbol, date string, close float64) {
	if t[symbol] == nil {
		t[symbol] = make(map[string]float64)
	}
	t[symbol][date] = close
}

// Lookup returns the close for symbol on date.
func (t MPriceTable) Lookup(symbol, date string) (float64, bool) {
	days, ok := t[symbol]
	if !ok {
		return 0, false
	}
	v, ok := days[date]
	return v, ok
}

// MNewsItem is one headline for a symbol.
type MNewsItem struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Publisher string `json:"publisher"`
	Symbol    string `json:"symbol"`
	Published int64  `json:"published"` // unix seconds
}
