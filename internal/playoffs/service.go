// Package playoffs is the application layer: it serializes writes per season,
// runs the re-seeding engine inside bracket transactions, scores contests and
// announces every committed change.
package playoffs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ZBugge/nfl-playoff-predictor/internal/analytics"
	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/dal"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
	"github.com/ZBugge/nfl-playoff-predictor/internal/metrics"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
	"github.com/ZBugge/nfl-playoff-predictor/internal/scoring"
)

const auditTimeout = 5 * time.Second

// Options wires optional collaborators. Zero values are valid.
type Options struct {
	Gate      bracket.GatePolicy
	Weights   scoring.Weights
	Publisher pubsub.Publisher
	Audit     analytics.Sink
	Metrics   *metrics.Recorder
}

// Service implements the playoff operations on top of a PlayoffDAL
type Service struct {
	store     dal.PlayoffDAL
	engine    *bracket.Engine
	publisher pubsub.Publisher
	audit     analytics.Sink
	metrics   *metrics.Recorder
	weights   scoring.Weights

	locksMu sync.Mutex
	locks   map[int]*sync.Mutex

	boards singleflight.Group
}

// New creates a service over store
func New(store dal.PlayoffDAL, opts Options) *Service {
	return &Service{
		store:     store,
		engine:    bracket.NewEngine(opts.Gate),
		publisher: opts.Publisher,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		weights:   opts.Weights,
		locks:     make(map[int]*sync.Mutex),
	}
}

// Store returns the underlying data access layer
func (s *Service) Store() dal.PlayoffDAL { return s.store }

// Gate returns the engine's gate policy
func (s *Service) Gate() bracket.GatePolicy { return s.engine.Gate() }

// lockSeason serializes bracket and seed writes for one season.
// The returned func releases the lock.
func (s *Service) lockSeason(season int) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[season]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[season] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (s *Service) publish(eventType string, season int, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(pubsub.NewEvent(eventType, season, payload))
}

// record writes audit rows after a commit. Failures are logged, never returned:
// the bracket is already durable and the trail is best effort.
func (s *Service) record(ctx context.Context, events []analytics.BracketEvent) {
	if s.audit == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := s.audit.RecordBracketEvents(ctx, events); err != nil {
		logger.Warn("Failed to record bracket audit events", "error", err, "count", len(events))
	}
}

// CascadeStats returns the audit summary for a season
func (s *Service) CascadeStats(ctx context.Context, season int) (*analytics.CascadeStats, error) {
	if s.audit == nil {
		return nil, models.NotFoundf("analytics is not configured")
	}
	return s.audit.CascadeStats(ctx, season)
}
