package analysis

import (
	"fmt"
	"strings"
	"time"

	"cheese-stick/src/helpers"
	"cheese-stick/src/models"
)

// NormalizeCompetition applies the admin form rules in place: default names,
// slot colours, upper-cased symbols, exactly NumLongs longs and one short
// per player, and a valid start date.
func NormalizeCompetition(comp *models.MCompetition) error {
	if comp == nil {
		return helpers.NewValidationError("competition is empty")
	}

	comp.Name = strings.TrimSpace(comp.Name)
	if comp.Name == "" {
		comp.Name = models.DefaultName
	}
	if comp.StartDate == "" {
		return helpers.NewValidationError("please select a start date")
	}
	if _, err := time.Parse(time.DateOnly, comp.StartDate); err != nil {
		return helpers.NewValidationError("invalid start date %q", comp.StartDate)
	}
	if comp.InitialInvestment <= 0 {
		comp.InitialInvestment = models.InitialInvestment
	}
	if comp.StockAllocation <= 0 {
		comp.StockAllocation = models.StockAllocation
	}
	if len(comp.Players) == 0 || len(comp.Players) > models.NumPlayers {
		return helpers.NewValidationError("competition needs 1 to %d players, got %d", models.NumPlayers, len(comp.Players))
	}

	for i := range comp.Players {
		p := &comp.Players[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			p.Name = fmt.Sprintf("Player %d", i+1)
		}
		if p.Color == "" {
			p.Color = models.PlayerColors[i%len(models.PlayerColors)]
		}

		longs := make([]string, 0, len(p.Longs))
		for _, s := range p.Longs {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				longs = append(longs, s)
			}
		}
		if len(longs) != models.NumLongs {
			return helpers.NewValidationError("player %d must have exactly %d long positions", i+1, models.NumLongs)
		}
		p.Longs = longs

		p.Short = strings.ToUpper(strings.TrimSpace(p.Short))
		if p.Short == "" {
			return helpers.NewValidationError("player %d must have a short position", i+1)
		}
	}
	return nil
}
