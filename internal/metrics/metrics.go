package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "playoffs"

// Recorder owns the service's Prometheus instruments. A nil Recorder is
// valid and records nothing, so tests and tools can skip metrics entirely.
type Recorder struct {
	registry *prometheus.Registry

	winnerWrites     *prometheus.CounterVec
	cascadeGames     *prometheus.CounterVec
	bracketWriteTime prometheus.Histogram
	leaderboardTime  prometheus.Histogram
	leaderboardCalls *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	feedPolls        *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry, including Go runtime collectors
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		winnerWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "winner_writes_total",
			Help:      "Winner writes by outcome (changed, unchanged, rejected, error).",
		}, []string{"outcome"}),
		cascadeGames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_games_total",
			Help:      "Games touched by re-seeding, by effect (revealed, changed, invalidated).",
		}, []string{"effect"}),
		bracketWriteTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bracket_write_seconds",
			Help:      "Time spent in a bracket write transaction, re-seeding included.",
			Buckets:   prometheus.DefBuckets,
		}),
		leaderboardTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "leaderboard_compute_seconds",
			Help:      "Time spent computing a leaderboard.",
			Buckets:   prometheus.DefBuckets,
		}),
		leaderboardCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_requests_total",
			Help:      "Leaderboard requests, split by whether they shared an in-flight computation.",
		}, []string{"shared"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		feedPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_feed_polls_total",
			Help:      "Score feed poll cycles by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		r.winnerWrites,
		r.cascadeGames,
		r.bracketWriteTime,
		r.leaderboardTime,
		r.leaderboardCalls,
		r.httpRequests,
		r.httpLatency,
		r.feedPolls,
	)
	return r
}

// Registry exposes the underlying registry, mainly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordWinnerWrite counts one winner write and its outcome
func (r *Recorder) RecordWinnerWrite(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.winnerWrites.WithLabelValues(outcome).Inc()
	r.bracketWriteTime.Observe(duration.Seconds())
}

// RecordCascade adds the games a re-seed pass revealed, changed and invalidated
func (r *Recorder) RecordCascade(revealed, changed, invalidated int) {
	if r == nil {
		return
	}
	r.cascadeGames.WithLabelValues("revealed").Add(float64(revealed))
	r.cascadeGames.WithLabelValues("changed").Add(float64(changed))
	r.cascadeGames.WithLabelValues("invalidated").Add(float64(invalidated))
}

// RecordLeaderboard tracks a leaderboard request. Shared requests reused an
// in-flight computation, so their duration is not observed.
func (r *Recorder) RecordLeaderboard(duration time.Duration, shared bool) {
	if r == nil {
		return
	}
	r.leaderboardCalls.WithLabelValues(strconv.FormatBool(shared)).Inc()
	if !shared {
		r.leaderboardTime.Observe(duration.Seconds())
	}
}

// RecordHTTPRequest tracks basic HTTP metrics
func (r *Recorder) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordFeedPoll tracks a score feed poll cycle
func (r *Recorder) RecordFeedPoll(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.feedPolls.WithLabelValues(result).Inc()
}
