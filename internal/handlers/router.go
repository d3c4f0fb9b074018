package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ZBugge/nfl-playoff-predictor/internal/auth"
	"github.com/ZBugge/nfl-playoff-predictor/internal/metrics"
)

// RouterConfig collects what the HTTP API is built from
type RouterConfig struct {
	API     *APIHandlers
	Guard   *auth.Guard
	Metrics *metrics.Recorder
	// Checks feed /api/health. "database" also drives /readyz.
	Checks map[string]Check
}

// NewRouter builds the HTTP API. Reads are public; every write that changes
// seeds, the bracket or contests requires an admin.
func NewRouter(cfg RouterConfig) http.Handler {
	api := cfg.API
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(cfg.Metrics))

	provider := cfg.Guard.Provider()
	r.Get("/auth/login", provider.LoginHandler)
	r.Get("/auth/callback", provider.CallbackHandler)
	r.HandleFunc("/auth/logout", provider.LogoutHandler)

	r.Get("/healthz", Liveness)
	r.Get("/readyz", Readiness(databaseCheck(cfg.Checks)))
	r.Get("/api/health", Health(cfg.Checks))

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", api.EventsSSE)

		r.Route("/seasons/{season}", func(r chi.Router) {
			r.Get("/seeds", api.GetSeeds)
			r.Get("/bracket", api.GetBracket)
			r.Get("/stats", api.CascadeStats)

			r.Group(func(r chi.Router) {
				r.Use(cfg.Guard.RequireAdmin)
				r.Put("/seeds", api.SetSeeds)
				r.Post("/seeds/corrections", api.CorrectSeeds)
				r.Post("/bracket/generate", api.GenerateBracket)
				r.Delete("/", api.ResetSeason)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.Guard.RequireAdmin)
			r.Post("/games/{id}/winner", api.RecordWinner)
			r.Delete("/games/{id}/winner", api.ClearWinner)
			r.Post("/contests", api.CreateContest)
		})

		r.Get("/contests", api.ListContests)
		r.Get("/contests/{id}", api.GetContest)
		r.Get("/contests/{id}/participants", api.ListParticipants)
		r.Post("/contests/{id}/participants", api.JoinContest)
		r.Get("/contests/{id}/leaderboard", api.GetLeaderboard)

		r.Post("/participants/{id}/predictions", api.SubmitPrediction)
		r.Get("/participants/{id}/predictions", api.ListPredictions)
	})

	return r
}

// instrument records request counts and latency by route pattern, so path
// parameters do not explode label cardinality.
func instrument(rec *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.RecordHTTPRequest(r.Method, route, status, time.Since(start))
		})
	}
}

func databaseCheck(checks map[string]Check) Check {
	if c, ok := checks["database"]; ok {
		return c
	}
	return func(ctx context.Context) error { return nil }
}
