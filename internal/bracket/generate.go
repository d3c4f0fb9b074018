package bracket

import (
	"github.com/google/uuid"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// wildcardPairings are the fixed first-round seed pairings. Seed 1 has a bye.
var wildcardPairings = [3][2]int{{2, 7}, {3, 6}, {4, 5}}

// Generate builds the full 13-game bracket for a season from its seeds.
// Wildcard games are real matchups; every later round starts as a TBD placeholder.
// Nothing is returned unless both conferences are fully seeded.
func Generate(season int, seeds []models.Seed) ([]models.Game, error) {
	table := NewSeedTable(seeds)
	if err := table.Complete(); err != nil {
		return nil, err
	}

	games := make([]models.Game, 0, models.TotalGames)

	slot := 1
	for _, conf := range models.Conferences {
		for _, pair := range wildcardPairings {
			home, _ := table.Team(conf, pair[0])
			away, _ := table.Team(conf, pair[1])
			games = append(games, models.Game{
				ID:              uuid.NewString(),
				Season:          season,
				Round:           models.RoundWildcard,
				Slot:            slot,
				HomeTeam:        home,
				AwayTeam:        away,
				HomeSeed:        models.IntPtr(pair[0]),
				AwaySeed:        models.IntPtr(pair[1]),
				IsActualMatchup: true,
			})
			slot++
		}
	}

	for _, round := range models.Rounds[1:] {
		for s := 1; s <= round.SlotCount(); s++ {
			games = append(games, placeholder(season, round, s))
		}
	}

	return games, nil
}

func placeholder(season int, round models.Round, slot int) models.Game {
	return models.Game{
		ID:       uuid.NewString(),
		Season:   season,
		Round:    round,
		Slot:     slot,
		HomeTeam: models.TBD,
		AwayTeam: models.TBD,
	}
}
