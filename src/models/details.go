package models

// Periods in display order.
var Periods = []string{"all", "month", "week", "day"}

// MPeriodPerformance is a portfolio value and its change over one period.
type MPeriodPerformance struct {
	Value     float64 `json:"value"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
}

// MPosition is one long or short leg as of the last trading day.
type MPosition struct {
	Symbol       string             `json:"symbol"`
	Type         string             `json:"type"` // "long" or "short"
	Shares       float64            `json:"shares,omitempty"`
	StartPrice   float64            `json:"start_price"`
	CurrentPrice float64            `json:"current_price"`
	CurrentValue float64            `json:"current_value"`
	GainPct      float64            `json:"gain_pct"`
	Periods      map[string]float64 `json:"periods,omitempty"`
}

// MPlayerDetails is the payload of /api/player-details/{index}.
type MPlayerDetails struct {
	Name        string                        `json:"name"`
	Color       string                        `json:"color"`
	Symbols     []string                      `json:"symbols"`
	Performance map[string]MPeriodPerformance `json:"performance"`
	Positions   []MPosition                   `json:"positions"`
	AsOf        string                        `json:"as_of"`
}

// MPlayerPositions is one entry of /api/stock-details.
type MPlayerPositions struct {
	Name      string      `json:"name"`
	Positions []MPosition `json:"positions"`
}

// MStockDetails is the payload of /api/stock-details.
type MStockDetails struct {
	Players []MPlayerPositions `json:"players"`
	AsOf    string             `json:"as_of"`
}
