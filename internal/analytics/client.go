package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Event kinds written to the audit table
const (
	KindGenerated   = "generated"
	KindWinner      = "winner"
	KindCleared     = "cleared"
	KindRevealed    = "revealed"
	KindChanged     = "changed"
	KindInvalidated = "invalidated"
)

// BracketEvent is one row of the bracket audit trail
type BracketEvent struct {
	Time    time.Time
	Season  int
	Version int64
	Kind    string
	GameID  string
	Round   string
	Slot    int
	Team    string
}

// CascadeStats summarizes how much churn a season's results caused
type CascadeStats struct {
	Season        int       `json:"season"`
	Winners       uint64    `json:"winners"`
	Revealed      uint64    `json:"revealed"`
	Changed       uint64    `json:"changed"`
	Invalidations uint64    `json:"invalidations"`
	LastEvent     time.Time `json:"lastEvent"`
}

// Sink receives bracket audit events
type Sink interface {
	RecordBracketEvents(ctx context.Context, events []BracketEvent) error
	CascadeStats(ctx context.Context, season int) (*CascadeStats, error)
	Close() error
}

// Client provides ClickHouse integration for the bracket audit trail
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client and makes sure the audit table exists
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// EnsureSchema creates the audit table if it does not exist
func (c *Client) EnsureSchema(ctx context.Context) error {
	err := c.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bracket_events (
			ts DateTime64(3),
			season UInt16,
			version Int64,
			kind LowCardinality(String),
			game_id String,
			round LowCardinality(String),
			slot UInt8,
			team String
		)
		ENGINE = MergeTree
		ORDER BY (season, ts)
	`)
	if err != nil {
		return fmt.Errorf("failed to create bracket_events: %w", err)
	}
	return nil
}

// RecordBracketEvents writes events in a single batch
func (c *Client) RecordBracketEvents(ctx context.Context, events []BracketEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO bracket_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	defer batch.Abort()

	for _, e := range events {
		err := batch.Append(e.Time, uint16(e.Season), e.Version, e.Kind, e.GameID, e.Round, uint8(e.Slot), e.Team)
		if err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
	}
	return batch.Send()
}

// CascadeStats counts results and cascade effects recorded for a season
func (c *Client) CascadeStats(ctx context.Context, season int) (*CascadeStats, error) {
	stats := &CascadeStats{Season: season}

	query := `
		SELECT
			countIf(kind = 'winner'),
			countIf(kind = 'revealed'),
			countIf(kind = 'changed'),
			countIf(kind = 'invalidated'),
			max(ts)
		FROM bracket_events
		WHERE season = ?
	`

	row := c.conn.QueryRow(ctx, query, uint16(season))
	if err := row.Scan(&stats.Winners, &stats.Revealed, &stats.Changed, &stats.Invalidations, &stats.LastEvent); err != nil {
		return nil, err
	}
	return stats, nil
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
