// Package scores pulls final results from an upstream scoreboard and records
// them as bracket winners.
package scores

import (
	"context"
	"fmt"
	"net/http"
)

// Final is one completed game as reported by a feed
type Final struct {
	ExternalID string
	Home       string
	Away       string
	HomeScore  int
	AwayScore  int
	Winner     string
}

// Provider fetches the completed playoff games of a season
type Provider interface {
	FetchFinals(ctx context.Context, season int) ([]Final, error)
}

// StatusError is an unexpected HTTP status from a feed
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
}

// Temporary reports whether retrying may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
