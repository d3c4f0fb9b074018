package mocks

import (
	"github.com/ZBugge/nfl-playoff-predictor/internal/dal"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// MockPostgresDAL stands in for Postgres with a SQLite file, so DB_DRIVER=postgres
// works on a laptop without a database server.
type MockPostgresDAL struct {
	dal.PlayoffDAL
}

// NewMockPostgresDAL creates a mock Postgres DAL using SQLite
func NewMockPostgresDAL(sqliteFile string) (*MockPostgresDAL, error) {
	logger.Info("Using MOCK Postgres (SQLite) for local development", "file", sqliteFile)

	sqliteDAL, err := dal.NewSQLiteDAL(sqliteFile)
	if err != nil {
		return nil, err
	}

	return &MockPostgresDAL{PlayoffDAL: sqliteDAL}, nil
}
