package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZBugge/nfl-playoff-predictor/internal/auth"
	"github.com/ZBugge/nfl-playoff-predictor/internal/dal"
	"github.com/ZBugge/nfl-playoff-predictor/internal/metrics"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
)

type testServer struct {
	handler http.Handler
	svc     *playoffs.Service
	bus     *pubsub.PubSub
	metrics *metrics.Recorder
	admin   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := dal.NewMemoryDAL()
	bus := pubsub.New()
	t.Cleanup(bus.Close)
	rec := metrics.NewRecorder()
	svc := playoffs.New(store, playoffs.Options{Publisher: bus, Metrics: rec})
	mock := auth.NewMockAuth()

	return &testServer{
		handler: NewRouter(RouterConfig{
			API:     NewAPIHandlers(svc, bus),
			Guard:   auth.NewGuard(mock, nil),
			Metrics: rec,
			Checks:  map[string]Check{"database": store.Ping},
		}),
		svc:     svc,
		bus:     bus,
		metrics: rec,
		admin:   mock.IssueToken(nil),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if admin {
		req.Header.Set("Authorization", "Bearer "+s.admin)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (s *testServer) seedAndGenerate(t *testing.T) playoffs.BracketView {
	t.Helper()
	rec := s.do(t, http.MethodPut, "/api/seasons/2024/seeds", seedsRequest{Seeds: dal.DemoSeeds(2024)}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT seeds: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/api/seasons/2024/bracket/generate", nil, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[playoffs.BracketView](t, rec)
}

func TestBracketFlow(t *testing.T) {
	s := newTestServer(t)
	view := s.seedAndGenerate(t)
	if len(view.Games) != models.TotalGames {
		t.Fatalf("expected %d games, got %d", models.TotalGames, len(view.Games))
	}

	for _, g := range view.Games {
		if g.Round != models.RoundWildcard {
			continue
		}
		rec := s.do(t, http.MethodPost, "/api/games/"+g.ID+"/winner", map[string]string{"team": g.HomeTeam}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("record winner: expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := s.do(t, http.MethodGet, "/api/seasons/2024/bracket", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("get bracket: expected 200, got %d", rec.Code)
	}
	view = decode[playoffs.BracketView](t, rec)
	for _, g := range view.Games {
		if g.Round == models.RoundDivisional && !g.IsActualMatchup {
			t.Errorf("divisional slot %d should be revealed", g.Slot)
		}
	}

	first := view.Games[0]
	rec = s.do(t, http.MethodDelete, "/api/games/"+first.ID+"/winner", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear winner: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[playoffs.WinnerResult](t, rec)
	if !res.Changed || res.Game.Winner != nil {
		t.Errorf("expected the winner to be cleared, got %+v", res)
	}
}

func TestContestEndpoints(t *testing.T) {
	s := newTestServer(t)
	view := s.seedAndGenerate(t)

	rec := s.do(t, http.MethodPost, "/api/contests", map[string]any{"name": "office", "season": 2024, "policy": "weighted"}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create contest: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	contest := decode[models.Contest](t, rec)

	rec = s.do(t, http.MethodPost, "/api/contests/"+contest.ID+"/participants", map[string]string{"name": "alice"}, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("join: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	alice := decode[models.Participant](t, rec)

	wc := view.Games[0]
	rec = s.do(t, http.MethodPost, "/api/participants/"+alice.ID+"/predictions",
		map[string]string{"gameId": wc.ID, "predictedWinner": wc.HomeTeam}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	s.do(t, http.MethodPost, "/api/games/"+wc.ID+"/winner", map[string]string{"team": wc.HomeTeam}, true)

	rec = s.do(t, http.MethodGet, "/api/contests/"+contest.ID+"/leaderboard", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: expected 200, got %d", rec.Code)
	}
	board := decode[playoffs.Leaderboard](t, rec)
	if len(board.Entries) != 1 || board.Entries[0].Score != 1 || board.Entries[0].Rank != 1 {
		t.Errorf("unexpected leaderboard %+v", board.Entries)
	}

	rec = s.do(t, http.MethodGet, "/api/participants/"+alice.ID+"/predictions", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("list predictions: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"outcome":"correct"`) {
		t.Errorf("expected a graded correct pick, got %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/contests", nil, false)
	if got := decode[[]models.Contest](t, rec); len(got) != 1 {
		t.Errorf("expected one contest, got %d", len(got))
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	s.seedAndGenerate(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		admin  bool
		status int
	}{
		{"write without auth", http.MethodPost, "/api/seasons/2024/bracket/generate", nil, false, http.StatusUnauthorized},
		{"bad season", http.MethodGet, "/api/seasons/abc/bracket", nil, false, http.StatusBadRequest},
		{"unknown season", http.MethodGet, "/api/seasons/1999/bracket", nil, false, http.StatusNotFound},
		{"unknown game", http.MethodPost, "/api/games/nope/winner", map[string]string{"team": "KC"}, true, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/api/games/nope/winner", "{", true, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/contests", nil, true, http.StatusBadRequest},
		{"seeds after generation", http.MethodPut, "/api/seasons/2024/seeds", seedsRequest{Seeds: dal.DemoSeeds(2024)[:1]}, true, http.StatusBadRequest},
		{"seed for another season", http.MethodPut, "/api/seasons/2025/seeds", seedsRequest{Seeds: dal.DemoSeeds(2024)[:1]}, true, http.StatusBadRequest},
		{"unknown contest", http.MethodGet, "/api/contests/nope/leaderboard", nil, false, http.StatusNotFound},
		{"stats without analytics", http.MethodGet, "/api/seasons/2024/stats", nil, false, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, tt.admin)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON error, got content type %q", ct)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.Validationf("x"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", models.NotFoundf("x")), http.StatusNotFound},
		{models.Consistencyf("x"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestResetSeasonEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedAndGenerate(t)

	if rec := s.do(t, http.MethodDelete, "/api/seasons/2024", nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("reset: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodGet, "/api/seasons/2024/bracket", nil, false); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after reset, got %d", rec.Code)
	}
}

func TestCorrectSeedsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.seedAndGenerate(t)

	body := seedsRequest{Seeds: []models.Seed{{Conference: models.ConferenceA, Rank: 7, Team: "MIA"}}}
	rec := s.do(t, http.MethodPost, "/api/seasons/2024/seeds/corrections", body, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("correct seeds: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	view := decode[playoffs.BracketView](t, rec)
	if view.Games[0].AwayTeam != "MIA" {
		t.Errorf("expected MIA in the first wildcard game, got %s", view.Games[0].AwayTeam)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz", "/api/health"} {
		if rec := s.do(t, http.MethodGet, path, nil, false); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	failing := NewRouter(RouterConfig{
		API:    NewAPIHandlers(s.svc, s.bus),
		Guard:  auth.NewGuard(auth.NewMockAuth(), nil),
		Checks: map[string]Check{"database": func(context.Context) error { return errors.New("down") }},
	})
	for _, path := range []string{"/readyz", "/api/health"} {
		rec := httptest.NewRecorder()
		failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, rec.Code)
		}
	}
}

func TestRequestsAreInstrumented(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/api/contests", nil, false)

	families, err := s.metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "playoffs_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" && l.GetValue() == "/api/contests" {
					return
				}
			}
		}
	}
	t.Errorf("expected a request counter labelled with the route pattern")
}

func TestEventsSSE(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events?season=2024", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events failed: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil || !strings.Contains(line, "connected") {
		t.Fatalf("expected connected message, got %q (%v)", line, err)
	}

	s.bus.Publish(pubsub.NewEvent(pubsub.EventBracketWinner, 2023, nil))
	s.bus.Publish(pubsub.NewEvent(pubsub.EventBracketWinner, 2024, map[string]any{"gameId": "g1"}))

	for {
		line, err = reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			break
		}
	}
	var event pubsub.Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event); err != nil {
		t.Fatalf("bad event payload %q: %v", line, err)
	}
	if event.Season != 2024 || event.Payload["gameId"] != "g1" {
		t.Errorf("season filter should skip 2023, got %+v", event)
	}
}
