package playoffs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ZBugge/nfl-playoff-predictor/internal/analytics"
	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
)

// Outcomes reported to the winner write metric
const (
	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeRejected  = "rejected"
	outcomeError     = "error"
)

// WinnerResult is the outcome of a committed winner write or undo
type WinnerResult struct {
	Game    models.Game    `json:"game"`
	Changed bool           `json:"changed"`
	Cascade bracket.Result `json:"cascade"`
	Version int64          `json:"version"`
}

// GenerateBracket builds the wildcard round from the season's seeds and
// replaces every game of the season with it.
func (s *Service) GenerateBracket(ctx context.Context, season int) (*bracket.Bracket, error) {
	if season <= 0 {
		return nil, models.Validationf("season must be positive, got %d", season)
	}

	unlock := s.lockSeason(season)
	defer unlock()

	seeds, err := s.store.GetSeeds(ctx, season)
	if err != nil {
		return nil, err
	}
	games, err := bracket.Generate(season, seeds)
	if err != nil {
		return nil, err
	}
	b, err := s.store.ReplaceBracket(ctx, season, games)
	if err != nil {
		return nil, err
	}

	logger.Info("Generated bracket", "season", season, "version", b.Version())
	s.announceGenerated(ctx, b)
	return b, nil
}

// GetBracket returns the season's current bracket
func (s *Service) GetBracket(ctx context.Context, season int) (*bracket.Bracket, error) {
	return s.store.GetBracket(ctx, season)
}

// RecordWinner stores the result of one game and re-derives every matchup
// that depends on it, in a single bracket transaction.
func (s *Service) RecordWinner(ctx context.Context, gameID, team string) (*WinnerResult, error) {
	start := time.Now()
	team = strings.TrimSpace(team)

	res, err := s.recordWinner(ctx, gameID, team)
	switch {
	case err == nil && res.Changed:
		s.metrics.RecordWinnerWrite(outcomeChanged, time.Since(start))
	case err == nil:
		s.metrics.RecordWinnerWrite(outcomeUnchanged, time.Since(start))
	case errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrNotFound):
		s.metrics.RecordWinnerWrite(outcomeRejected, time.Since(start))
	default:
		s.metrics.RecordWinnerWrite(outcomeError, time.Since(start))
	}
	return res, err
}

func (s *Service) recordWinner(ctx context.Context, gameID, team string) (*WinnerResult, error) {
	found, err := s.store.FindGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	season := found.Season

	unlock := s.lockSeason(season)
	defer unlock()

	seeds, err := s.store.GetSeeds(ctx, season)
	if err != nil {
		return nil, err
	}

	var (
		changed bool
		cascade bracket.Result
	)
	b, err := s.store.UpdateBracket(ctx, season, func(b *bracket.Bracket) error {
		g, ok := b.GameByID(gameID)
		if !ok {
			return models.NotFoundf("game %s", gameID)
		}
		if !g.HasTeam(team) {
			return models.Validationf("team %q is not playing in game %s (%s vs %s)", team, gameID, g.HomeTeam, g.AwayTeam)
		}
		if err := s.engine.CanDecide(b, g); err != nil {
			return err
		}
		var err error
		if changed, err = b.SetWinner(gameID, team); err != nil {
			return err
		}
		if !changed {
			return nil
		}
		cascade, err = s.engine.Reseed(b, seeds)
		return err
	})
	if err != nil {
		return nil, err
	}

	g, _ := b.GameByID(gameID)
	out := &WinnerResult{Game: g, Changed: changed, Cascade: cascade, Version: b.Version()}
	if !changed {
		return out, nil
	}

	logger.Info("Recorded winner",
		"season", season,
		"game", gameID,
		"team", team,
		"version", b.Version(),
		"revealed", len(cascade.Revealed),
		"changed", len(cascade.Changed),
		"invalidated", len(cascade.Invalidated),
	)

	now := time.Now().UTC()
	events := append([]analytics.BracketEvent{analytics.GameEvent(b, analytics.KindWinner, g, now)},
		analytics.ResultEvents(b, cascade, now)...)
	s.record(ctx, events)
	s.metrics.RecordCascade(len(cascade.Revealed), len(cascade.Changed), len(cascade.Invalidated))

	s.publish(pubsub.EventBracketWinner, season, map[string]any{
		"gameId":  gameID,
		"round":   string(g.Round),
		"slot":    g.Slot,
		"winner":  team,
		"version": b.Version(),
	})
	s.announceCascade(b, cascade)
	return out, nil
}

// ClearWinner undoes a recorded result. Every game in every later round loses
// its result too and the matchups are re-derived from what remains.
func (s *Service) ClearWinner(ctx context.Context, gameID string) (*WinnerResult, error) {
	found, err := s.store.FindGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	season := found.Season

	unlock := s.lockSeason(season)
	defer unlock()

	seeds, err := s.store.GetSeeds(ctx, season)
	if err != nil {
		return nil, err
	}

	var (
		changed bool
		cascade bracket.Result
	)
	b, err := s.store.UpdateBracket(ctx, season, func(b *bracket.Bracket) error {
		g, ok := b.GameByID(gameID)
		if !ok {
			return models.NotFoundf("game %s", gameID)
		}
		var err error
		if changed, err = b.ClearWinner(gameID); err != nil {
			return err
		}
		if !changed {
			return nil
		}
		cascade.Invalidated = b.ClearDownstreamWinners(g.Round)

		reseeded, err := s.engine.Reseed(b, seeds)
		if err != nil {
			return err
		}
		cascade.Revealed = reseeded.Revealed
		cascade.Changed = reseeded.Changed
		cascade.Invalidated = append(cascade.Invalidated, reseeded.Invalidated...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	g, _ := b.GameByID(gameID)
	out := &WinnerResult{Game: g, Changed: changed, Cascade: cascade, Version: b.Version()}
	if !changed {
		return out, nil
	}

	logger.Info("Cleared winner", "season", season, "game", gameID, "version", b.Version(),
		"invalidated", len(cascade.Invalidated))

	now := time.Now().UTC()
	events := append([]analytics.BracketEvent{analytics.GameEvent(b, analytics.KindCleared, g, now)},
		analytics.ResultEvents(b, cascade, now)...)
	s.record(ctx, events)
	s.metrics.RecordCascade(len(cascade.Revealed), len(cascade.Changed), len(cascade.Invalidated))

	s.publish(pubsub.EventBracketCleared, season, map[string]any{
		"gameId":  gameID,
		"round":   string(g.Round),
		"slot":    g.Slot,
		"version": b.Version(),
	})
	s.announceCascade(b, cascade)
	return out, nil
}

func (s *Service) announceGenerated(ctx context.Context, b *bracket.Bracket) {
	now := time.Now().UTC()
	events := make([]analytics.BracketEvent, 0, b.Len())
	for _, g := range b.Games() {
		events = append(events, analytics.GameEvent(b, analytics.KindGenerated, g, now))
	}
	s.record(ctx, events)
	s.publish(pubsub.EventBracketGenerated, b.Season(), map[string]any{
		"version": b.Version(),
		"games":   b.Len(),
	})
}

// announceCascade publishes one event per revealed or changed matchup and a
// single event listing every invalidated game.
func (s *Service) announceCascade(b *bracket.Bracket, cascade bracket.Result) {
	for _, ids := range []struct {
		kind string
		ids  []string
	}{
		{analytics.KindRevealed, cascade.Revealed},
		{analytics.KindChanged, cascade.Changed},
	} {
		for _, id := range ids.ids {
			g, ok := b.GameByID(id)
			if !ok {
				continue
			}
			s.publish(pubsub.EventBracketMatchup, b.Season(), map[string]any{
				"gameId":   g.ID,
				"round":    string(g.Round),
				"slot":     g.Slot,
				"homeTeam": g.HomeTeam,
				"awayTeam": g.AwayTeam,
				"kind":     ids.kind,
				"version":  b.Version(),
			})
		}
	}
	if len(cascade.Invalidated) > 0 {
		s.publish(pubsub.EventBracketInvalidated, b.Season(), map[string]any{
			"gameIds": cascade.Invalidated,
			"version": b.Version(),
		})
	}
}
