package scores

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
	"github.com/ZBugge/nfl-playoff-predictor/internal/metrics"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
)

const defaultInterval = 2 * time.Minute

// Bracket is the part of the playoff service the poller drives
type Bracket interface {
	GetBracket(ctx context.Context, season int) (*bracket.Bracket, error)
	RecordWinner(ctx context.Context, gameID, team string) (*playoffs.WinnerResult, error)
}

// Status describes the recent health of the poll loop
type Status struct {
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastError           string    `json:"lastError,omitempty"`
	LastAttempt         time.Time `json:"lastAttempt"`
	LastSuccess         time.Time `json:"lastSuccess"`
	Applied             int       `json:"applied"`
}

// Healthy reports whether the poller is not failing repeatedly
func (s Status) Healthy() bool {
	return s.ConsecutiveFailures < 3
}

// Poller records feed results as winners on an interval. It only fills in
// games that have no winner yet; a result already entered is never
// overwritten, only reported when the feed disagrees.
type Poller struct {
	provider Provider
	bracket  Bracket
	metrics  *metrics.Recorder
	season   int
	interval time.Duration

	done     chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool

	statusMu sync.RWMutex
	status   Status
}

// NewPoller creates a poller for one season
func NewPoller(provider Provider, b Bracket, rec *metrics.Recorder, season int, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		provider: provider,
		bracket:  b,
		metrics:  rec,
		season:   season,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start polls until ctx is cancelled or Stop is called
func (p *Poller) Start(ctx context.Context) {
	p.startMu.Lock()
	if p.started {
		p.startMu.Unlock()
		return
	}
	p.started = true
	p.startMu.Unlock()

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		logger.Info("Score poller started", "season", p.season, "interval", p.interval)

		p.pollAndRecord(ctx)
		for {
			select {
			case <-ctx.Done():
				logger.Info("Score poller stopped")
				return
			case <-p.done:
				logger.Info("Score poller stopped")
				return
			case <-ticker.C:
				p.pollAndRecord(ctx)
			}
		}
	}()
}

// Stop halts the poll loop
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// Status returns a snapshot of the poller's recent health
func (p *Poller) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

// Check is a health check failing after repeated poll errors
func (p *Poller) Check(ctx context.Context) error {
	if s := p.Status(); !s.Healthy() {
		return errors.New("score feed failing: " + s.LastError)
	}
	return nil
}

func (p *Poller) pollAndRecord(ctx context.Context) {
	start := time.Now()
	applied, err := p.Poll(ctx)
	p.metrics.RecordFeedPoll(err)

	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastAttempt = start
	p.status.Applied += applied
	if err != nil {
		p.status.ConsecutiveFailures++
		p.status.LastError = err.Error()
		logger.Error("Score poll failed", "error", err, "season", p.season)
		return
	}
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = start
}

// Poll runs one fetch and records every final that maps onto an undecided
// bracket game. It returns the number of winners recorded.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	finals, err := p.provider.FetchFinals(ctx, p.season)
	if err != nil {
		return 0, err
	}

	// Later-round matchups only exist once their feeder results are in, so
	// keep passing over the finals while each pass makes progress.
	applied := 0
	pending := finals
	for len(pending) > 0 {
		b, err := p.bracket.GetBracket(ctx, p.season)
		if errors.Is(err, models.ErrNotFound) {
			return applied, nil
		}
		if err != nil {
			return applied, err
		}

		var next []Final
		progressed := false
		for _, f := range pending {
			g, ok := matchFinal(b, f)
			if !ok {
				next = append(next, f)
				continue
			}
			if g.Winner != nil {
				if *g.Winner != f.Winner {
					logger.Warn("Score feed disagrees with recorded winner",
						"game", g.ID, "recorded", *g.Winner, "feed", f.Winner)
				}
				continue
			}
			if _, err := p.bracket.RecordWinner(ctx, g.ID, f.Winner); err != nil {
				if errors.Is(err, models.ErrValidation) {
					logger.Warn("Score feed result rejected", "game", g.ID, "winner", f.Winner, "error", err)
					continue
				}
				return applied, err
			}
			logger.Info("Recorded winner from score feed", "game", g.ID, "winner", f.Winner, "feed_id", f.ExternalID)
			applied++
			progressed = true
		}
		if !progressed {
			break
		}
		pending = next
	}
	return applied, nil
}

// matchFinal finds the real matchup between the final's two teams
func matchFinal(b *bracket.Bracket, f Final) (models.Game, bool) {
	for _, g := range b.Games() {
		if !g.IsActualMatchup {
			continue
		}
		if g.HasTeam(f.Home) && g.HasTeam(f.Away) && f.Home != f.Away {
			return g, true
		}
	}
	return models.Game{}, false
}
