package models

// -----------------------------------------------------------------------------
// Competition constants (shared by admin validation, portfolio math and charts)
// -----------------------------------------------------------------------------

const (
	NumPlayers        = 5
	NumLongs          = 5
	InitialInvestment = 100000.0
	StockAllocation   = 20000.0
	DefaultName       = "Cheese Stick"
)

// PlayerColors are assigned by slot, in order.
var PlayerColors = []string{"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0", "#9966FF"}

// -----------------------------------------------------------------------------

// MCompetition is the single competition document edited by the admin.
type MCompetition struct {
	Name              string    `json:"name"`
	StartDate         string    `json:"start_date"`
	InitialInvestment float64   `json:"initial_investment"`
	StockAllocation   float64   `json:"stock_allocation"`
	Players           []MPlayer `json:"players"`
}

// MPlayer holds one player's positions. Icon is a PNG data URL (circular, 100px).
type MPlayer struct {
	Name  string   `json:"name"`
	Color string   `json:"color"`
	Longs []string `json:"longs"`
	Short string   `json:"short"`
	Icon  string   `json:"icon,omitempty"`
}

// Symbols returns longs followed by the short, as the original ordering.
func (p MPlayer) Symbols() []string {
	out := make([]string, 0, len(p.Longs)+1)
	out = append(out, p.Longs...)
	return append(out, p.Short)
}

// AllSymbols returns the unique symbols of every player.
func (c *MCompetition) AllSymbols() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range c.Players {
		for _, s := range p.Symbols() {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
