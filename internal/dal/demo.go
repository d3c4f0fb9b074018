package dal

import (
	"context"
	"fmt"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// DemoSeeds returns the 2024 playoff field, AFC as conference A and NFC as B
func DemoSeeds(season int) []models.Seed {
	afc := []string{"KC", "BUF", "BAL", "HOU", "LAC", "PIT", "DEN"}
	nfc := []string{"DET", "PHI", "TB", "LAR", "MIN", "WAS", "GB"}

	seeds := make([]models.Seed, 0, 2*models.SeedsPerConference)
	for i, team := range afc {
		seeds = append(seeds, models.Seed{Season: season, Conference: models.ConferenceA, Rank: i + 1, Team: team})
	}
	for i, team := range nfc {
		seeds = append(seeds, models.Seed{Season: season, Conference: models.ConferenceB, Rank: i + 1, Team: team})
	}
	return seeds
}

// SeedDemo stores the demo field for a season when it has no seeds yet.
// It reports whether anything was written.
func SeedDemo(ctx context.Context, d PlayoffDAL, season int) (bool, error) {
	existing, err := d.GetSeeds(ctx, season)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	for _, seed := range DemoSeeds(season) {
		if _, err := d.SetSeed(ctx, seed); err != nil {
			return false, fmt.Errorf("failed to seed %s #%d: %w", seed.Conference, seed.Rank, err)
		}
	}
	return true, nil
}
