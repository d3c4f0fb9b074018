package bracket

import (
	"strings"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// ValidateSeed checks a single seed entry before it is stored
func ValidateSeed(s models.Seed) error {
	if s.Season <= 0 {
		return models.Validationf("season must be positive, got %d", s.Season)
	}
	if !s.Conference.Valid() {
		return models.Validationf("unknown conference %q", s.Conference)
	}
	if s.Rank < 1 || s.Rank > models.SeedsPerConference {
		return models.Validationf("rank must be between 1 and %d, got %d", models.SeedsPerConference, s.Rank)
	}
	team := strings.TrimSpace(s.Team)
	if team == "" || team == models.TBD {
		return models.Validationf("team name %q is not allowed", s.Team)
	}
	return nil
}

type seedRef struct {
	conference models.Conference
	rank       int
}

// SeedTable indexes one season's seeds by rank and by team.
type SeedTable struct {
	byRank map[models.Conference]map[int]string
	byTeam map[string]seedRef
	dupes  []string
}

// NewSeedTable builds a lookup table from registry rows
func NewSeedTable(seeds []models.Seed) *SeedTable {
	t := &SeedTable{
		byRank: map[models.Conference]map[int]string{},
		byTeam: map[string]seedRef{},
	}
	for _, s := range seeds {
		if t.byRank[s.Conference] == nil {
			t.byRank[s.Conference] = map[int]string{}
		}
		t.byRank[s.Conference][s.Rank] = s.Team
		if prev, ok := t.byTeam[s.Team]; ok && prev != (seedRef{s.Conference, s.Rank}) {
			t.dupes = append(t.dupes, s.Team)
		}
		t.byTeam[s.Team] = seedRef{conference: s.Conference, rank: s.Rank}
	}
	return t
}

// Team returns the team holding rank in conference
func (t *SeedTable) Team(conf models.Conference, rank int) (string, bool) {
	team, ok := t.byRank[conf][rank]
	return team, ok
}

// Rank returns the conference and rank of a seeded team
func (t *SeedTable) Rank(team string) (models.Conference, int, bool) {
	ref, ok := t.byTeam[team]
	return ref.conference, ref.rank, ok
}

// Complete fails with a validation error unless both conferences hold
// exactly ranks 1..7 and no team is seeded twice.
func (t *SeedTable) Complete() error {
	for _, conf := range models.Conferences {
		have := 0
		for rank := 1; rank <= models.SeedsPerConference; rank++ {
			if _, ok := t.byRank[conf][rank]; ok {
				have++
			}
		}
		if have != models.SeedsPerConference || len(t.byRank[conf]) != models.SeedsPerConference {
			return models.Validationf("seeds incomplete: conference %s has %d of %d seeds", conf, have, models.SeedsPerConference)
		}
	}
	if len(t.dupes) > 0 {
		return models.Validationf("team %s is seeded more than once", t.dupes[0])
	}
	return nil
}
