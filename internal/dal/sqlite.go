package dal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDAL implements PlayoffDAL using SQLite
type SQLiteDAL struct {
	sqlStore
}

// NewSQLiteDAL creates a new SQLite data access layer
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	dal := &SQLiteDAL{sqlStore: sqlStore{db: db}}
	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seeds (
		season INTEGER NOT NULL,
		conference TEXT NOT NULL,
		seed_rank INTEGER NOT NULL,
		team TEXT NOT NULL,
		PRIMARY KEY (season, conference, seed_rank)
	);

	CREATE TABLE IF NOT EXISTS brackets (
		season INTEGER PRIMARY KEY,
		version INTEGER NOT NULL
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
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		contest_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (contest_id, name),
		FOREIGN KEY (contest_id) REFERENCES contests(id)
	);

	CREATE TABLE IF NOT EXISTS predictions (
		participant_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		predicted_winner TEXT NOT NULL,
		submitted_at TIMESTAMP NOT NULL,
		PRIMARY KEY (participant_id, game_id),
		FOREIGN KEY (participant_id) REFERENCES participants(id)
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// predicted_opponent arrived with the matchup bonus policy.
	// SQLite doesn't support IF NOT EXISTS for ALTER TABLE, so we check first
	var opponentExists int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info('predictions')
		WHERE name='predicted_opponent'
	`).Scan(&opponentExists)
	if err != nil {
		return fmt.Errorf("failed to check predicted_opponent column existence: %w", err)
	}

	if opponentExists == 0 {
		if _, err := s.db.Exec(`ALTER TABLE predictions ADD COLUMN predicted_opponent TEXT`); err != nil {
			return fmt.Errorf("failed to add predicted_opponent column: %w", err)
		}
	}

	return nil
}
