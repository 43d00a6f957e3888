package dashboard

import (
	"sort"

	"cheese-stick/src/analysis/core"
	"cheese-stick/src/models"
)

// Standings ranks every player by value at index. index < 0 means each
// player's last sample. A player without a sample at index is valued at the
// initial investment.
func Standings(perf *models.MPerformance, includeShort bool, index int) []models.MStanding {
	if perf == nil {
		return nil
	}
	initial := perf.InitialInvestment
	if initial == 0 {
		initial = models.InitialInvestment
	}

	out := make([]models.MStanding, 0, len(perf.Players))
	for i, p := range perf.Players {
		at := index
		if at < 0 {
			at = len(p.History) - 1
		}
		value := initial
		if at >= 0 && at < len(p.History) {
			value = ValueAt(p.History[at], includeShort)
		}
		out = append(out, models.MStanding{
			Index:     i,
			Name:      p.Name,
			Color:     p.Color,
			Value:     value,
			ChangePct: core.Round2(core.CalculateChangePercent(value, initial) * 100),
		})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Value > out[b].Value })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
