package dal

import (
	"context"

	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// PlayoffDAL defines the interface for the data access layer
type PlayoffDAL interface {
	// SetSeed upserts a seed keyed by (season, conference, rank).
	SetSeed(ctx context.Context, seed models.Seed) (*models.Seed, error)
	// GetSeeds returns a season's seeds ordered by conference then rank.
	GetSeeds(ctx context.Context, season int) ([]models.Seed, error)
	// DeleteSeason removes a season's seeds and bracket.
	DeleteSeason(ctx context.Context, season int) error

	// ReplaceBracket atomically deletes every game of the season and stores games.
	ReplaceBracket(ctx context.Context, season int, games []models.Game) (*bracket.Bracket, error)
	// ReplaceSeason upserts seeds and replaces the season's games in one
	// transaction. Either both land or neither does.
	ReplaceSeason(ctx context.Context, season int, seeds []models.Seed, games []models.Game) (*bracket.Bracket, error)
	GetBracket(ctx context.Context, season int) (*bracket.Bracket, error)
	// UpdateBracket loads the season's bracket, runs fn and persists every
	// changed game plus a version bump in one transaction. If fn fails nothing is written.
	UpdateBracket(ctx context.Context, season int, fn func(*bracket.Bracket) error) (*bracket.Bracket, error)
	FindGame(ctx context.Context, gameID string) (*models.Game, error)

	CreateContest(ctx context.Context, contest *models.Contest) (*models.Contest, error)
	GetContest(ctx context.Context, id string) (*models.Contest, error)
	ListContests(ctx context.Context) ([]models.Contest, error)
	AddParticipant(ctx context.Context, participant *models.Participant) (*models.Participant, error)
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
	ListParticipants(ctx context.Context, contestID string) ([]models.Participant, error)
	// UpsertPrediction stores a pick, replacing any earlier pick for the same game.
	UpsertPrediction(ctx context.Context, prediction *models.Prediction) (*models.Prediction, error)
	ListPredictions(ctx context.Context, participantID string) ([]models.Prediction, error)
	ListContestPredictions(ctx context.Context, contestID string) ([]models.Prediction, error)

	Ping(ctx context.Context) error
	Close() error
}
