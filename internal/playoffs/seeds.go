package playoffs

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
)

// SetSeed upserts one seed. Seeds are frozen once the season has a bracket;
// use CorrectSeeds to change them after that.
func (s *Service) SetSeed(ctx context.Context, seed models.Seed) (*models.Seed, error) {
	seed.Team = strings.TrimSpace(seed.Team)
	if err := bracket.ValidateSeed(seed); err != nil {
		return nil, err
	}

	unlock := s.lockSeason(seed.Season)
	defer unlock()

	if err := s.requireNoBracket(ctx, seed.Season); err != nil {
		return nil, err
	}

	stored, err := s.store.SetSeed(ctx, seed)
	if err != nil {
		return nil, err
	}

	s.publish(pubsub.EventSeedsSet, seed.Season, map[string]any{
		"conference": string(seed.Conference),
		"rank":       seed.Rank,
		"team":       seed.Team,
	})
	return stored, nil
}

// GetSeeds returns a season's seeds ordered by conference then rank
func (s *Service) GetSeeds(ctx context.Context, season int) ([]models.Seed, error) {
	return s.store.GetSeeds(ctx, season)
}

// CorrectSeeds applies seed corrections to a season that may already have a
// bracket and regenerates the whole bracket from the corrected field.
// Recorded winners are discarded. Nothing is written unless the corrected
// field is complete, and the seeds and bracket are then written together.
// The caller's slice is left untouched.
func (s *Service) CorrectSeeds(ctx context.Context, season int, corrections []models.Seed) (*bracket.Bracket, error) {
	if len(corrections) == 0 {
		return nil, models.Validationf("no seed corrections given")
	}
	normalized := slices.Clone(corrections)
	for i := range normalized {
		seed := &normalized[i]
		seed.Team = strings.TrimSpace(seed.Team)
		if seed.Season == 0 {
			seed.Season = season
		}
		if seed.Season != season {
			return nil, models.Validationf("seed for %s #%d belongs to season %d, not %d",
				seed.Conference, seed.Rank, seed.Season, season)
		}
		if err := bracket.ValidateSeed(*seed); err != nil {
			return nil, err
		}
	}

	unlock := s.lockSeason(season)
	defer unlock()

	current, err := s.store.GetSeeds(ctx, season)
	if err != nil {
		return nil, err
	}
	merged := mergeSeeds(current, normalized)

	games, err := bracket.Generate(season, merged)
	if err != nil {
		return nil, err
	}

	b, err := s.store.ReplaceSeason(ctx, season, normalized, games)
	if err != nil {
		return nil, err
	}

	s.publish(pubsub.EventSeedsSet, season, map[string]any{"corrected": len(normalized)})
	s.announceGenerated(ctx, b)
	return b, nil
}

// ResetSeason deletes a season's seeds and bracket
func (s *Service) ResetSeason(ctx context.Context, season int) error {
	unlock := s.lockSeason(season)
	defer unlock()

	if err := s.store.DeleteSeason(ctx, season); err != nil {
		return err
	}
	s.publish(pubsub.EventSeasonReset, season, nil)
	return nil
}

func (s *Service) requireNoBracket(ctx context.Context, season int) error {
	_, err := s.store.GetBracket(ctx, season)
	switch {
	case err == nil:
		return models.Validationf("season %d already has a bracket; seeds can only be changed through a correction", season)
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		return err
	}
}

// mergeSeeds overlays corrections onto the stored field by (conference, rank)
func mergeSeeds(current, corrections []models.Seed) []models.Seed {
	type key struct {
		conf models.Conference
		rank int
	}
	byKey := make(map[key]models.Seed, len(current)+len(corrections))
	var order []key
	for _, list := range [][]models.Seed{current, corrections} {
		for _, seed := range list {
			k := key{seed.Conference, seed.Rank}
			if _, ok := byKey[k]; !ok {
				order = append(order, k)
			}
			byKey[k] = seed
		}
	}
	out := make([]models.Seed, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}
