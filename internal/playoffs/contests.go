package playoffs

import (
	"context"
	"errors"
	"strings"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
	"github.com/ZBugge/nfl-playoff-predictor/internal/scoring"
)

// CreateContest opens a prediction contest over one season's bracket.
// An empty policy selects scoring.DefaultPolicy.
func (s *Service) CreateContest(ctx context.Context, name string, season int, policy string) (*models.Contest, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.Validationf("contest name is required")
	}
	if season <= 0 {
		return nil, models.Validationf("season must be positive, got %d", season)
	}
	p, err := scoring.ParsePolicy(policy)
	if err != nil {
		return nil, err
	}

	contest, err := s.store.CreateContest(ctx, &models.Contest{Name: name, Season: season, Policy: string(p)})
	if err != nil {
		return nil, err
	}
	s.publish(pubsub.EventContestCreated, season, map[string]any{
		"contestId": contest.ID,
		"name":      contest.Name,
		"policy":    contest.Policy,
	})
	return contest, nil
}

func (s *Service) GetContest(ctx context.Context, id string) (*models.Contest, error) {
	return s.store.GetContest(ctx, id)
}

func (s *Service) ListContests(ctx context.Context) ([]models.Contest, error) {
	return s.store.ListContests(ctx)
}

func (s *Service) ListParticipants(ctx context.Context, contestID string) ([]models.Participant, error) {
	if _, err := s.store.GetContest(ctx, contestID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, contestID)
}

// JoinContest enters a named participant. Names are unique within a contest.
func (s *Service) JoinContest(ctx context.Context, contestID, name string) (*models.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.Validationf("participant name is required")
	}
	contest, err := s.store.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListParticipants(ctx, contestID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if strings.EqualFold(p.Name, name) {
			return nil, models.Validationf("name %q is already taken in contest %s", name, contestID)
		}
	}

	participant, err := s.store.AddParticipant(ctx, &models.Participant{ContestID: contestID, Name: name})
	if err != nil {
		return nil, err
	}
	s.publish(pubsub.EventContestJoined, contest.Season, map[string]any{
		"contestId":     contestID,
		"participantId": participant.ID,
		"name":          participant.Name,
	})
	return participant, nil
}

// SubmitPrediction stores or replaces a participant's pick for one game.
// Picks on placeholder games are accepted for any team since the matchup is
// not known yet; picks on decided games are refused.
func (s *Service) SubmitPrediction(ctx context.Context, participantID, gameID, winner string, opponent *string) (*models.Prediction, error) {
	winner = strings.TrimSpace(winner)
	if winner == "" || winner == models.TBD {
		return nil, models.Validationf("predicted winner %q is not allowed", winner)
	}
	if opponent != nil {
		o := strings.TrimSpace(*opponent)
		switch {
		case o == "":
			opponent = nil
		case o == models.TBD:
			return nil, models.Validationf("predicted opponent %q is not allowed", o)
		case o == winner:
			return nil, models.Validationf("predicted opponent must differ from the predicted winner")
		default:
			opponent = &o
		}
	}

	participant, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	contest, err := s.store.GetContest(ctx, participant.ContestID)
	if err != nil {
		return nil, err
	}
	game, err := s.store.FindGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Season != contest.Season {
		return nil, models.Validationf("game %s belongs to season %d, contest %s plays season %d",
			gameID, game.Season, contest.ID, contest.Season)
	}
	if game.Completed {
		return nil, models.Validationf("game %s is already decided", gameID)
	}
	if game.IsActualMatchup && !game.HasTeam(winner) {
		return nil, models.Validationf("team %q is not playing in game %s (%s vs %s)", winner, gameID, game.HomeTeam, game.AwayTeam)
	}
	if game.IsActualMatchup && opponent != nil && !game.HasTeam(*opponent) {
		return nil, models.Validationf("team %q is not playing in game %s (%s vs %s)", *opponent, gameID, game.HomeTeam, game.AwayTeam)
	}

	stored, err := s.store.UpsertPrediction(ctx, &models.Prediction{
		ParticipantID:     participantID,
		GameID:            gameID,
		PredictedWinner:   winner,
		PredictedOpponent: opponent,
	})
	if err != nil {
		return nil, err
	}
	s.publish(pubsub.EventPredictionSubmit, contest.Season, map[string]any{
		"contestId":     contest.ID,
		"participantId": participantID,
		"gameId":        gameID,
	})
	return stored, nil
}

// ListPredictions returns a participant's picks graded against the current
// bracket under the contest's policy.
func (s *Service) ListPredictions(ctx context.Context, participantID string) ([]scoring.GradedPrediction, error) {
	participant, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	contest, err := s.store.GetContest(ctx, participant.ContestID)
	if err != nil {
		return nil, err
	}
	preds, err := s.store.ListPredictions(ctx, participantID)
	if err != nil {
		return nil, err
	}
	games, err := s.seasonGames(ctx, contest.Season)
	if err != nil {
		return nil, err
	}
	return s.calculator(contest).GradeAll(games, preds), nil
}

// seasonGames returns the season's games, or none when no bracket exists yet
func (s *Service) seasonGames(ctx context.Context, season int) ([]models.Game, error) {
	b, err := s.store.GetBracket(ctx, season)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b.Games(), nil
}

func (s *Service) calculator(contest *models.Contest) *scoring.Calculator {
	p, err := scoring.ParsePolicy(contest.Policy)
	if err != nil {
		p = scoring.DefaultPolicy
	}
	return scoring.NewCalculator(p, s.weights)
}
