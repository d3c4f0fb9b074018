package playoffs

import (
	"context"
	"errors"
	"time"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// Leaderboard is a ranked contest standing computed against one bracket version
type Leaderboard struct {
	Contest        models.Contest            `json:"contest"`
	BracketVersion int64                     `json:"bracketVersion"`
	Entries        []models.LeaderboardEntry `json:"entries"`
}

// GetLeaderboard ranks a contest's participants. Concurrent requests for the
// same contest share one computation.
func (s *Service) GetLeaderboard(ctx context.Context, contestID string) (*Leaderboard, error) {
	start := time.Now()
	v, err, shared := s.boards.Do(contestID, func() (any, error) {
		return s.computeLeaderboard(context.WithoutCancel(ctx), contestID)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLeaderboard(time.Since(start), shared)

	board := v.(*Leaderboard)
	out := *board
	out.Entries = append([]models.LeaderboardEntry(nil), board.Entries...)
	return &out, nil
}

func (s *Service) computeLeaderboard(ctx context.Context, contestID string) (*Leaderboard, error) {
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, contestID)
	if err != nil {
		return nil, err
	}
	preds, err := s.store.ListContestPredictions(ctx, contestID)
	if err != nil {
		return nil, err
	}

	board := &Leaderboard{Contest: *contest}
	b, err := s.store.GetBracket(ctx, contest.Season)
	switch {
	case err == nil:
		board.BracketVersion = b.Version()
		board.Entries = s.calculator(contest).Leaderboard(b.Games(), participants, preds)
	case errors.Is(err, models.ErrNotFound):
		board.Entries = s.calculator(contest).Leaderboard(nil, participants, preds)
	default:
		return nil, err
	}
	return board, nil
}
