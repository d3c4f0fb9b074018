package handlers

import (
	"context"
	"net/http"
	"time"
)

// Check reports whether one dependency is reachable
type Check func(ctx context.Context) error

const healthTimeout = 3 * time.Second

// Health serves the aggregate health report. Every named check runs; any
// failure marks the service degraded.
func Health(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := "ok"
		httpStatus := http.StatusOK
		results := make(map[string]any, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = "degraded"
				httpStatus = http.StatusServiceUnavailable
				results[name] = map[string]any{"status": "unhealthy", "error": err.Error()}
				continue
			}
			results[name] = map[string]any{"status": "healthy"}
		}

		writeJSON(w, httpStatus, map[string]any{
			"status":    status,
			"timestamp": time.Now().Unix(),
			"checks":    results,
		})
	}
}

// Liveness handles Kubernetes liveness probes.
// Returns 200 if the process is running, without checking dependencies.
func Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness handles Kubernetes readiness probes. Only the database is critical.
func Readiness(database Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := database(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    "not_ready",
				"reason":    "database_unavailable",
				"timestamp": time.Now().Unix(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ready",
			"timestamp": time.Now().Unix(),
		})
	}
}
