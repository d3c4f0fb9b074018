package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// sqlStore holds the queries shared by the SQLite and Postgres backends.
// Queries are written with ? placeholders and rebound per dialect.
type sqlStore struct {
	db        *sql.DB
	numbered  bool   // $1, $2 ... placeholders
	forUpdate string // row lock suffix for the bracket version read
}

const gameColumns = `id, season, round, slot, home_team, away_team, home_seed, away_seed, winner, completed, is_actual_matchup`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *sqlStore) q(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *sqlStore) SetSeed(ctx context.Context, seed models.Seed) (*models.Seed, error) {
	if err := s.upsertSeed(ctx, s.db, seed); err != nil {
		return nil, err
	}
	return &seed, nil
}

func (s *sqlStore) upsertSeed(ctx context.Context, db execer, seed models.Seed) error {
	_, err := db.ExecContext(ctx, s.q(`
		INSERT INTO seeds (season, conference, seed_rank, team)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (season, conference, seed_rank) DO UPDATE SET team = excluded.team
	`), seed.Season, string(seed.Conference), seed.Rank, seed.Team)
	if err != nil {
		return fmt.Errorf("failed to upsert seed: %w", err)
	}
	return nil
}

func (s *sqlStore) GetSeeds(ctx context.Context, season int) ([]models.Seed, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT season, conference, seed_rank, team
		FROM seeds WHERE season = ?
	`), season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seeds := []models.Seed{}
	for rows.Next() {
		var seed models.Seed
		var conf string
		if err := rows.Scan(&seed.Season, &conf, &seed.Rank, &seed.Team); err != nil {
			return nil, err
		}
		seed.Conference = models.Conference(conf)
		seeds = append(seeds, seed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortSeeds(seeds)
	return seeds, nil
}

func (s *sqlStore) DeleteSeason(ctx context.Context, season int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"seeds", "games", "brackets"} {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM `+table+` WHERE season = ?`), season); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *sqlStore) ReplaceBracket(ctx context.Context, season int, games []models.Game) (*bracket.Bracket, error) {
	return s.ReplaceSeason(ctx, season, nil, games)
}

func (s *sqlStore) ReplaceSeason(ctx context.Context, season int, seeds []models.Seed, games []models.Game) (*bracket.Bracket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	for _, seed := range seeds {
		if err := s.upsertSeed(ctx, tx, seed); err != nil {
			return nil, err
		}
	}
	version, err := s.replaceGames(ctx, tx, season, games)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return bracket.New(season, version, games), nil
}

// replaceGames swaps the season's games inside tx and returns the bumped version
func (s *sqlStore) replaceGames(ctx context.Context, tx *sql.Tx, season int, games []models.Game) (int64, error) {
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM games WHERE season = ?`), season); err != nil {
		return 0, fmt.Errorf("failed to clear games: %w", err)
	}

	insert := s.q(`INSERT INTO games (` + gameColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, g := range games {
		_, err := tx.ExecContext(ctx, insert,
			g.ID, g.Season, string(g.Round), g.Slot, g.HomeTeam, g.AwayTeam,
			nullInt(g.HomeSeed), nullInt(g.AwaySeed), nullString(g.Winner),
			boolInt(g.Completed), boolInt(g.IsActualMatchup))
		if err != nil {
			return 0, fmt.Errorf("failed to insert game %s: %w", g.ID, err)
		}
	}

	var version int64
	err := tx.QueryRowContext(ctx, s.q(`
		INSERT INTO brackets (season, version) VALUES (?, 1)
		ON CONFLICT (season) DO UPDATE SET version = brackets.version + 1
		RETURNING version
	`), season).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to bump bracket version: %w", err)
	}
	return version, nil
}

func (s *sqlStore) GetBracket(ctx context.Context, season int) (*bracket.Bracket, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, s.q(`SELECT version FROM brackets WHERE season = ?`), season).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("no bracket for season %d", season)
	}
	if err != nil {
		return nil, err
	}

	games, err := s.loadGames(ctx, s.db, season)
	if err != nil {
		return nil, err
	}
	return bracket.New(season, version, games), nil
}

func (s *sqlStore) UpdateBracket(ctx context.Context, season int, fn func(*bracket.Bracket) error) (*bracket.Bracket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx, s.q(`SELECT version FROM brackets WHERE season = ?`+s.forUpdate), season).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("no bracket for season %d", season)
	}
	if err != nil {
		return nil, err
	}

	games, err := s.loadGames(ctx, tx, season)
	if err != nil {
		return nil, err
	}

	b := bracket.New(season, version, games)
	if err := fn(b); err != nil {
		return nil, err
	}

	dirty := b.Dirty()
	if len(dirty) == 0 {
		return b, nil
	}

	update := s.q(`
		UPDATE games
		SET home_team = ?, away_team = ?, home_seed = ?, away_seed = ?, winner = ?, completed = ?, is_actual_matchup = ?
		WHERE id = ?
	`)
	for _, g := range dirty {
		_, err := tx.ExecContext(ctx, update,
			g.HomeTeam, g.AwayTeam, nullInt(g.HomeSeed), nullInt(g.AwaySeed), nullString(g.Winner),
			boolInt(g.Completed), boolInt(g.IsActualMatchup), g.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update game %s: %w", g.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.q(`UPDATE brackets SET version = ? WHERE season = ?`), version+1, season); err != nil {
		return nil, fmt.Errorf("failed to bump bracket version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	b.Committed(version + 1)
	return b, nil
}

func (s *sqlStore) FindGame(ctx context.Context, gameID string) (*models.Game, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+gameColumns+` FROM games WHERE id = ?`), gameID)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("game %s", gameID)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *sqlStore) loadGames(ctx context.Context, db querier, season int) ([]models.Game, error) {
	rows, err := db.QueryContext(ctx, s.q(`SELECT `+gameColumns+` FROM games WHERE season = ?`), season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *sqlStore) CreateContest(ctx context.Context, contest *models.Contest) (*models.Contest, error) {
	if contest.ID == "" {
		contest.ID = newID()
	}
	if contest.CreatedAt.IsZero() {
		contest.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO contests (id, name, season, policy, created_at) VALUES (?, ?, ?, ?, ?)
	`), contest.ID, contest.Name, contest.Season, contest.Policy, contest.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert contest: %w", err)
	}
	return contest, nil
}

func (s *sqlStore) GetContest(ctx context.Context, id string) (*models.Contest, error) {
	var c models.Contest
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, name, season, policy, created_at FROM contests WHERE id = ?
	`), id).Scan(&c.ID, &c.Name, &c.Season, &c.Policy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("contest %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *sqlStore) ListContests(ctx context.Context) ([]models.Contest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, season, policy, created_at FROM contests ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contests := []models.Contest{}
	for rows.Next() {
		var c models.Contest
		if err := rows.Scan(&c.ID, &c.Name, &c.Season, &c.Policy, &c.CreatedAt); err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

func (s *sqlStore) AddParticipant(ctx context.Context, participant *models.Participant) (*models.Participant, error) {
	if _, err := s.GetContest(ctx, participant.ContestID); err != nil {
		return nil, err
	}
	if participant.ID == "" {
		participant.ID = newID()
	}
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO participants (id, contest_id, name, created_at) VALUES (?, ?, ?, ?)
	`), participant.ID, participant.ContestID, participant.Name, participant.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert participant: %w", err)
	}
	return participant, nil
}

func (s *sqlStore) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	var p models.Participant
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, contest_id, name, created_at FROM participants WHERE id = ?
	`), id).Scan(&p.ID, &p.ContestID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("participant %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *sqlStore) ListParticipants(ctx context.Context, contestID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, contest_id, name, created_at FROM participants
		WHERE contest_id = ? ORDER BY created_at, id
	`), contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.ContestID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *sqlStore) UpsertPrediction(ctx context.Context, prediction *models.Prediction) (*models.Prediction, error) {
	if _, err := s.GetParticipant(ctx, prediction.ParticipantID); err != nil {
		return nil, err
	}
	if prediction.SubmittedAt.IsZero() {
		prediction.SubmittedAt = now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO predictions (participant_id, game_id, predicted_winner, predicted_opponent, submitted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (participant_id, game_id) DO UPDATE SET
			predicted_winner = excluded.predicted_winner,
			predicted_opponent = excluded.predicted_opponent,
			submitted_at = excluded.submitted_at
	`), prediction.ParticipantID, prediction.GameID, prediction.PredictedWinner,
		nullString(prediction.PredictedOpponent), prediction.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert prediction: %w", err)
	}
	return prediction, nil
}

func (s *sqlStore) ListPredictions(ctx context.Context, participantID string) ([]models.Prediction, error) {
	return s.queryPredictions(ctx, `
		SELECT participant_id, game_id, predicted_winner, predicted_opponent, submitted_at
		FROM predictions WHERE participant_id = ? ORDER BY game_id
	`, participantID)
}

func (s *sqlStore) ListContestPredictions(ctx context.Context, contestID string) ([]models.Prediction, error) {
	return s.queryPredictions(ctx, `
		SELECT pr.participant_id, pr.game_id, pr.predicted_winner, pr.predicted_opponent, pr.submitted_at
		FROM predictions pr
		JOIN participants pa ON pa.id = pr.participant_id
		WHERE pa.contest_id = ?
		ORDER BY pa.created_at, pa.id, pr.game_id
	`, contestID)
}

func (s *sqlStore) queryPredictions(ctx context.Context, query string, arg any) ([]models.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := []models.Prediction{}
	for rows.Next() {
		var p models.Prediction
		var opponent sql.NullString
		if err := rows.Scan(&p.ParticipantID, &p.GameID, &p.PredictedWinner, &opponent, &p.SubmittedAt); err != nil {
			return nil, err
		}
		if opponent.Valid {
			p.PredictedOpponent = models.StringPtr(opponent.String)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func scanGame(row rowScanner) (models.Game, error) {
	var g models.Game
	var round string
	var homeSeed, awaySeed sql.NullInt64
	var winner sql.NullString
	var completed, actual int
	err := row.Scan(&g.ID, &g.Season, &round, &g.Slot, &g.HomeTeam, &g.AwayTeam,
		&homeSeed, &awaySeed, &winner, &completed, &actual)
	if err != nil {
		return models.Game{}, err
	}
	g.Round = models.Round(round)
	if homeSeed.Valid {
		g.HomeSeed = models.IntPtr(int(homeSeed.Int64))
	}
	if awaySeed.Valid {
		g.AwaySeed = models.IntPtr(int(awaySeed.Int64))
	}
	if winner.Valid {
		g.Winner = models.StringPtr(winner.String)
	}
	g.Completed = completed == 1
	g.IsActualMatchup = actual == 1
	return g, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
