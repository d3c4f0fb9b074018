package analytics

import (
	"time"

	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// GameEvent builds an audit row for a single game of a committed bracket
func GameEvent(b *bracket.Bracket, kind string, g models.Game, at time.Time) BracketEvent {
	e := BracketEvent{
		Time:    at,
		Season:  b.Season(),
		Version: b.Version(),
		Kind:    kind,
		GameID:  g.ID,
		Round:   string(g.Round),
		Slot:    g.Slot,
	}
	switch kind {
	case KindWinner:
		if g.Winner != nil {
			e.Team = *g.Winner
		}
	case KindRevealed, KindChanged:
		e.Team = g.HomeTeam + "-" + g.AwayTeam
	}
	return e
}

// ResultEvents turns a re-seed result into audit rows, one per touched game
func ResultEvents(b *bracket.Bracket, res bracket.Result, at time.Time) []BracketEvent {
	var out []BracketEvent
	add := func(kind string, ids []string) {
		for _, id := range ids {
			if g, ok := b.GameByID(id); ok {
				out = append(out, GameEvent(b, kind, g, at))
			}
		}
	}
	add(KindRevealed, res.Revealed)
	add(KindChanged, res.Changed)
	add(KindInvalidated, res.Invalidated)
	return out
}
