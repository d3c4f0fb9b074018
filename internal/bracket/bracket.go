package bracket

import (
	"cmp"
	"slices"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// Matchup is the pair of teams (and their seeds) assigned to a game
type Matchup struct {
	Home     string
	Away     string
	HomeSeed *int
	AwaySeed *int
}

// Bracket is the versioned set of games for one season.
// All winner and matchup mutations go through it so the store can persist
// exactly the rows that changed in one transaction.
type Bracket struct {
	season  int
	version int64
	games   []*models.Game
	byID    map[string]*models.Game
	dirty   map[string]bool
}

// New wraps stored games into a bracket. Games are copied and ordered by round then slot.
func New(season int, version int64, games []models.Game) *Bracket {
	b := &Bracket{
		season:  season,
		version: version,
		games:   make([]*models.Game, 0, len(games)),
		byID:    make(map[string]*models.Game, len(games)),
		dirty:   map[string]bool{},
	}
	for _, g := range games {
		c := g.Clone()
		b.games = append(b.games, &c)
		b.byID[c.ID] = &c
	}
	slices.SortFunc(b.games, func(x, y *models.Game) int {
		if d := cmp.Compare(x.Round.Index(), y.Round.Index()); d != 0 {
			return d
		}
		return cmp.Compare(x.Slot, y.Slot)
	})
	return b
}

// Season returns the season the bracket belongs to
func (b *Bracket) Season() int { return b.season }

// Version is bumped by the store on every committed change
func (b *Bracket) Version() int64 { return b.version }

// Len returns the number of games
func (b *Bracket) Len() int { return len(b.games) }

// Games returns copies of every game, ordered by round then slot
func (b *Bracket) Games() []models.Game {
	out := make([]models.Game, len(b.games))
	for i, g := range b.games {
		out[i] = g.Clone()
	}
	return out
}

// RoundGames returns copies of the games in one round, ordered by slot
func (b *Bracket) RoundGames(round models.Round) []models.Game {
	var out []models.Game
	for _, g := range b.games {
		if g.Round == round {
			out = append(out, g.Clone())
		}
	}
	return out
}

// GameByID returns a copy of the game with the given id
func (b *Bracket) GameByID(id string) (models.Game, bool) {
	g, ok := b.byID[id]
	if !ok {
		return models.Game{}, false
	}
	return g.Clone(), true
}

// GameBySlot returns a copy of the game at round/slot
func (b *Bracket) GameBySlot(round models.Round, slot int) (models.Game, bool) {
	g := b.game(round, slot)
	if g == nil {
		return models.Game{}, false
	}
	return g.Clone(), true
}

// UpdateGameMatchup writes teams and seeds into a slot and marks it as a real matchup.
// It does not touch the winner; use ApplyMatchup on the engine for invalidation semantics.
func (b *Bracket) UpdateGameMatchup(round models.Round, slot int, m Matchup) error {
	g := b.game(round, slot)
	if g == nil {
		return models.Consistencyf("season %d has no %s game in slot %d", b.season, round, slot)
	}
	g.HomeTeam = m.Home
	g.AwayTeam = m.Away
	g.HomeSeed = cloneSeed(m.HomeSeed)
	g.AwaySeed = cloneSeed(m.AwaySeed)
	g.IsActualMatchup = true
	b.markDirty(g)
	return nil
}

// SetWinner records team as the winner of a game. Recording the current
// winner again reports changed=false and leaves the game untouched.
func (b *Bracket) SetWinner(gameID, team string) (bool, error) {
	g, ok := b.byID[gameID]
	if !ok {
		return false, models.NotFoundf("game %s", gameID)
	}
	if !g.HasTeam(team) {
		return false, models.Validationf("team %q is not playing in game %s (%s vs %s)", team, gameID, g.HomeTeam, g.AwayTeam)
	}
	if g.Decided() && *g.Winner == team {
		return false, nil
	}
	g.Winner = models.StringPtr(team)
	g.Completed = true
	b.markDirty(g)
	return true, nil
}

// ClearWinner removes a recorded result from a single game
func (b *Bracket) ClearWinner(gameID string) (bool, error) {
	g, ok := b.byID[gameID]
	if !ok {
		return false, models.NotFoundf("game %s", gameID)
	}
	return b.clear(g), nil
}

// ClearDownstreamWinners clears winner and completed on every game in every
// round strictly after from, in both conferences. It returns the ids of games
// that actually changed.
func (b *Bracket) ClearDownstreamWinners(from models.Round) []string {
	var cleared []string
	for _, g := range b.games {
		if g.Round.Index() <= from.Index() {
			continue
		}
		if b.clear(g) {
			cleared = append(cleared, g.ID)
		}
	}
	return cleared
}

// Validate checks that every round holds exactly its format's slots
func (b *Bracket) Validate() error {
	seen := map[models.Round]map[int]bool{}
	for _, g := range b.games {
		if g.Season != b.season {
			return models.Consistencyf("game %s belongs to season %d, not %d", g.ID, g.Season, b.season)
		}
		if !g.Round.Valid() {
			return models.Consistencyf("game %s has unknown round %q", g.ID, g.Round)
		}
		if g.Slot < 1 || g.Slot > g.Round.SlotCount() {
			return models.Consistencyf("game %s has slot %d outside %s round", g.ID, g.Slot, g.Round)
		}
		if seen[g.Round] == nil {
			seen[g.Round] = map[int]bool{}
		}
		if seen[g.Round][g.Slot] {
			return models.Consistencyf("season %d has two %s games in slot %d", b.season, g.Round, g.Slot)
		}
		seen[g.Round][g.Slot] = true
		if g.Winner != nil && !g.HasTeam(*g.Winner) {
			return models.Consistencyf("game %s winner %q is not one of its teams", g.ID, *g.Winner)
		}
	}
	for _, round := range models.Rounds {
		if len(seen[round]) != round.SlotCount() {
			return models.Consistencyf("season %d %s round has %d games, want %d", b.season, round, len(seen[round]), round.SlotCount())
		}
	}
	return nil
}

// Dirty returns copies of the games changed since the bracket was loaded
func (b *Bracket) Dirty() []models.Game {
	var out []models.Game
	for _, g := range b.games {
		if b.dirty[g.ID] {
			out = append(out, g.Clone())
		}
	}
	return out
}

// Committed records a successful write at the given version and resets change tracking
func (b *Bracket) Committed(version int64) {
	b.version = version
	b.dirty = map[string]bool{}
}

func (b *Bracket) game(round models.Round, slot int) *models.Game {
	for _, g := range b.games {
		if g.Round == round && g.Slot == slot {
			return g
		}
	}
	return nil
}

func (b *Bracket) clear(g *models.Game) bool {
	if g.Winner == nil && !g.Completed {
		return false
	}
	g.Winner = nil
	g.Completed = false
	b.markDirty(g)
	return true
}

func (b *Bracket) markDirty(g *models.Game) {
	b.dirty[g.ID] = true
}

func cloneSeed(p *int) *int {
	if p == nil {
		return nil
	}
	return models.IntPtr(*p)
}
