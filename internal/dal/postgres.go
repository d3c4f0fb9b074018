package dal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresDAL implements PlayoffDAL using PostgreSQL
type PostgresDAL struct {
	sqlStore
}

// NewPostgresDAL creates a new PostgreSQL data access layer optimized for CloudNativePG
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// CloudNativePG default max_connections is 100
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	// Recycle connections so failovers are picked up
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Kubernetes DNS can take a while to resolve a fresh cluster service
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{sqlStore: sqlStore{db: db, numbered: true, forUpdate: " FOR UPDATE"}}
	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (p *PostgresDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seeds (
		season INTEGER NOT NULL,
		conference TEXT NOT NULL,
		seed_rank INTEGER NOT NULL,
		team TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (season, conference, seed_rank)
	);

	CREATE TABLE IF NOT EXISTS brackets (
		season INTEGER PRIMARY KEY,
		version BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		season INTEGER NOT NULL,
		round TEXT NOT NULL,
		slot INTEGER NOT NULL,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		home_seed INTEGER,
		away_seed INTEGER,
		winner TEXT,
		completed INTEGER NOT NULL DEFAULT 0,
		is_actual_matchup INTEGER NOT NULL DEFAULT 0,
		UNIQUE (season, round, slot)
	);

	CREATE TABLE IF NOT EXISTS contests (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		season INTEGER NOT NULL,
		policy TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		contest_id TEXT NOT NULL REFERENCES contests(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (contest_id, name)
	);

	CREATE TABLE IF NOT EXISTS predictions (
		participant_id TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
		game_id TEXT NOT NULL,
		predicted_winner TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (participant_id, game_id)
	);

	CREATE INDEX IF NOT EXISTS idx_games_season ON games(season);
	CREATE INDEX IF NOT EXISTS idx_participants_contest_id ON participants(contest_id);
	CREATE INDEX IF NOT EXISTS idx_predictions_game_id ON predictions(game_id);
	`

	if _, err := p.db.Exec(schema); err != nil {
		return err
	}

	// predicted_opponent arrived with the matchup bonus policy
	_, err := p.db.Exec(`
		ALTER TABLE predictions
		ADD COLUMN IF NOT EXISTS predicted_opponent TEXT
	`)
	if err != nil {
		return fmt.Errorf("failed to add predicted_opponent column: %w", err)
	}

	return nil
}
