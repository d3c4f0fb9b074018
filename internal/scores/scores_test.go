package scores

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZBugge/nfl-playoff-predictor/internal/dal"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
)

func init() {
	logger.Init()
}

func competitor(homeAway, team string, score int, winner bool) string {
	return fmt.Sprintf(`{"homeAway":%q,"winner":%t,"score":"%d","team":{"abbreviation":%q}}`, homeAway, winner, score, team)
}

func event(id string, completed bool, home string, hs int, away string, as int) string {
	return fmt.Sprintf(`{"id":%q,"status":{"type":{"completed":%t,"state":"post"}},"competitions":[{"competitors":[%s,%s]}]}`,
		id, completed,
		competitor("home", home, hs, completed && hs > as),
		competitor("away", away, as, completed && as > hs))
}

func scoreboard(events ...string) string {
	return `{"events":[` + strings.Join(events, ",") + `]}`
}

func TestESPNProviderParsesFinals(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, scoreboard(
			event("1", true, "BUF", 31, "DEN", 7),
			event("2", true, "TB", 20, "WSH", 23),
			event("3", false, "BAL", 0, "PIT", 0),
		))
	}))
	defer srv.Close()

	finals, err := NewESPNProvider(srv.URL, nil).FetchFinals(context.Background(), 2024)
	if err != nil {
		t.Fatalf("FetchFinals() failed: %v", err)
	}
	if !strings.Contains(query, "seasontype=3") || !strings.Contains(query, "dates=2024") {
		t.Errorf("unexpected query %q", query)
	}
	if len(finals) != 2 {
		t.Fatalf("expected 2 finals, got %+v", finals)
	}
	if f := finals[0]; f.Home != "BUF" || f.Away != "DEN" || f.Winner != "BUF" || f.HomeScore != 31 {
		t.Errorf("unexpected first final %+v", f)
	}
	if f := finals[1]; f.Away != "WAS" || f.Winner != "WAS" {
		t.Errorf("expected WSH to map to WAS, got %+v", f)
	}
}

func TestMapFinalsFallsBackToScore(t *testing.T) {
	board := espnScoreboard{Events: []espnEvent{{ID: "9"}}}
	board.Events[0].Status.Type.Completed = true
	home := espnCompetitor{HomeAway: "home", Score: "17"}
	home.Team.Abbreviation = "kc"
	away := espnCompetitor{HomeAway: "away", Score: "10"}
	away.Team.Abbreviation = "HOU"
	board.Events[0].Competitions = []espnCompetition{{Competitors: []espnCompetitor{home, away}}}

	finals := mapFinals(board)
	if len(finals) != 1 || finals[0].Winner != "KC" {
		t.Errorf("expected KC to win on score, got %+v", finals)
	}
}

func TestESPNProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewESPNProvider(srv.URL, nil).FetchFinals(context.Background(), 2024)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable || !se.Temporary() {
		t.Errorf("expected temporary StatusError, got %v", err)
	}
}

type flakyProvider struct {
	failures int32
	err      error
	calls    atomic.Int32
}

func (f *flakyProvider) FetchFinals(ctx context.Context, season int) ([]Final, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, f.err
	}
	return []Final{{Home: "BUF", Away: "DEN", Winner: "BUF"}}, nil
}

func TestRetryingProvider(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		err       error
		wantErr   bool
		wantCalls int32
	}{
		{"succeeds first try", 0, nil, false, 1},
		{"recovers from temporary errors", 2, &StatusError{Provider: "test", StatusCode: 503}, false, 3},
		{"gives up after retries", 10, &StatusError{Provider: "test", StatusCode: 502}, true, 4},
		{"does not retry permanent errors", 10, &StatusError{Provider: "test", StatusCode: 404}, true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &flakyProvider{failures: tt.failures, err: tt.err}
			p := NewRetryingProvider(inner, 3, time.Millisecond)

			finals, err := p.FetchFinals(context.Background(), 2024)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FetchFinals() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(finals) != 1 {
				t.Errorf("expected 1 final, got %d", len(finals))
			}
			if got := inner.calls.Load(); got != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, got)
			}
		})
	}
}

type staticProvider struct {
	finals []Final
	err    error
}

func (s *staticProvider) FetchFinals(ctx context.Context, season int) ([]Final, error) {
	return s.finals, s.err
}

func newService(t *testing.T, generate bool) *playoffs.Service {
	t.Helper()
	ctx := context.Background()
	store := dal.NewMemoryDAL()
	if _, err := dal.SeedDemo(ctx, store, 2024); err != nil {
		t.Fatalf("SeedDemo() failed: %v", err)
	}
	svc := playoffs.New(store, playoffs.Options{})
	if generate {
		if _, err := svc.GenerateBracket(ctx, 2024); err != nil {
			t.Fatalf("GenerateBracket() failed: %v", err)
		}
	}
	return svc
}

func TestPollRecordsWinnersAcrossRounds(t *testing.T) {
	svc := newService(t, true)
	provider := &staticProvider{finals: []Final{
		// The divisional game comes first to exercise the repeat pass.
		{Home: "KC", Away: "HOU", Winner: "KC"},
		{Home: "BUF", Away: "DEN", Winner: "BUF"},
		{Home: "BAL", Away: "PIT", Winner: "BAL"},
		{Home: "HOU", Away: "LAC", Winner: "HOU"},
		{Home: "PHI", Away: "GB", Winner: "PHI"},
		{Home: "TB", Away: "WAS", Winner: "TB"},
		{Home: "LAR", Away: "MIN", Winner: "LAR"},
		{Home: "NYJ", Away: "MIA", Winner: "NYJ"},
	}}
	p := NewPoller(provider, svc, nil, 2024, time.Minute)

	applied, err := p.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll() failed: %v", err)
	}
	if applied != 7 {
		t.Errorf("expected 7 winners recorded, got %d", applied)
	}

	b, err := svc.GetBracket(context.Background(), 2024)
	if err != nil {
		t.Fatalf("GetBracket() failed: %v", err)
	}
	div, _ := b.GameBySlot(models.RoundDivisional, 1)
	if div.Winner == nil || *div.Winner != "KC" {
		t.Errorf("expected KC to win the divisional game, got %+v", div)
	}

	// A second poll finds nothing new.
	applied, err = p.Poll(context.Background())
	if err != nil || applied != 0 {
		t.Errorf("expected an idempotent second poll, got %d, %v", applied, err)
	}
}

func TestPollDoesNotOverwriteRecordedWinner(t *testing.T) {
	svc := newService(t, true)
	b, _ := svc.GetBracket(context.Background(), 2024)
	g, _ := b.GameBySlot(models.RoundWildcard, 1)
	if _, err := svc.RecordWinner(context.Background(), g.ID, "DEN"); err != nil {
		t.Fatalf("RecordWinner() failed: %v", err)
	}

	p := NewPoller(&staticProvider{finals: []Final{{Home: "BUF", Away: "DEN", Winner: "BUF"}}}, svc, nil, 2024, time.Minute)
	applied, err := p.Poll(context.Background())
	if err != nil || applied != 0 {
		t.Fatalf("expected nothing applied, got %d, %v", applied, err)
	}
	b, _ = svc.GetBracket(context.Background(), 2024)
	g, _ = b.GameBySlot(models.RoundWildcard, 1)
	if *g.Winner != "DEN" {
		t.Errorf("expected DEN to remain the winner, got %s", *g.Winner)
	}
}

func TestPollWithoutBracket(t *testing.T) {
	svc := newService(t, false)
	p := NewPoller(&staticProvider{finals: []Final{{Home: "BUF", Away: "DEN", Winner: "BUF"}}}, svc, nil, 2024, time.Minute)
	if applied, err := p.Poll(context.Background()); err != nil || applied != 0 {
		t.Errorf("expected a no-op poll, got %d, %v", applied, err)
	}
}

func TestPollerStatusTracksFailures(t *testing.T) {
	svc := newService(t, true)
	p := NewPoller(&staticProvider{err: errors.New("feed down")}, svc, nil, 2024, time.Minute)

	for range 3 {
		p.pollAndRecord(context.Background())
	}
	s := p.Status()
	if s.ConsecutiveFailures != 3 || s.LastError != "feed down" || s.Healthy() {
		t.Errorf("unexpected status %+v", s)
	}
	if err := p.Check(context.Background()); err == nil {
		t.Error("expected Check to fail")
	}
}

func TestPollerStartAndStop(t *testing.T) {
	svc := newService(t, true)
	p := NewPoller(&staticProvider{finals: []Final{{Home: "BUF", Away: "DEN", Winner: "BUF"}}}, svc, nil, 2024, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for p.Status().LastSuccess.IsZero() {
		if time.Now().After(deadline) {
			t.Fatal("poller never succeeded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
	p.Stop()

	if s := p.Status(); s.Applied != 1 || !s.Healthy() {
		t.Errorf("unexpected status %+v", s)
	}
}
