package mocks

import (
	"context"
	"sync"

	"github.com/ZBugge/nfl-playoff-predictor/internal/analytics"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
)

// MockAnalytics keeps the bracket audit trail in memory for local development
type MockAnalytics struct {
	mu     sync.RWMutex
	events []analytics.BracketEvent
}

// NewMockAnalytics creates a mock analytics sink
func NewMockAnalytics() *MockAnalytics {
	logger.Info("Using MOCK ClickHouse analytics for local development")
	return &MockAnalytics{}
}

// RecordBracketEvents appends events to the in-memory trail
func (m *MockAnalytics) RecordBracketEvents(ctx context.Context, events []analytics.BracketEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// CascadeStats aggregates the recorded events the same way the ClickHouse query does
func (m *MockAnalytics) CascadeStats(ctx context.Context, season int) (*analytics.CascadeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &analytics.CascadeStats{Season: season}
	for _, e := range m.events {
		if e.Season != season {
			continue
		}
		switch e.Kind {
		case analytics.KindWinner:
			stats.Winners++
		case analytics.KindRevealed:
			stats.Revealed++
		case analytics.KindChanged:
			stats.Changed++
		case analytics.KindInvalidated:
			stats.Invalidations++
		}
		if e.Time.After(stats.LastEvent) {
			stats.LastEvent = e.Time
		}
	}
	return stats, nil
}

// Events returns a copy of everything recorded so far
func (m *MockAnalytics) Events() []analytics.BracketEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]analytics.BracketEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Close is a no-op for mock client
func (m *MockAnalytics) Close() error {
	return nil
}
