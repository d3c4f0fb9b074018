package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordWinnerWrite("changed", time.Millisecond)
	r.RecordCascade(1, 2, 3)
	r.RecordLeaderboard(time.Millisecond, false)
	r.RecordHTTPRequest("GET", "/api/contests", 200, time.Millisecond)
	r.RecordFeedPoll(nil)
	if r.Registry() != nil {
		t.Error("nil recorder should have no registry")
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("expected 404 from nil handler, got %d", rec.Code)
	}
}

func TestRecordWinnerWriteAndCascade(t *testing.T) {
	r := NewRecorder()
	r.RecordWinnerWrite("changed", 5*time.Millisecond)
	r.RecordWinnerWrite("changed", 5*time.Millisecond)
	r.RecordWinnerWrite("rejected", time.Millisecond)
	r.RecordCascade(2, 1, 4)

	if got := testutil.ToFloat64(r.winnerWrites.WithLabelValues("changed")); got != 2 {
		t.Errorf("expected 2 changed writes, got %v", got)
	}
	if got := testutil.ToFloat64(r.winnerWrites.WithLabelValues("rejected")); got != 1 {
		t.Errorf("expected 1 rejected write, got %v", got)
	}
	if got := testutil.ToFloat64(r.cascadeGames.WithLabelValues("invalidated")); got != 4 {
		t.Errorf("expected 4 invalidated games, got %v", got)
	}
}

func TestRecordLeaderboardShared(t *testing.T) {
	r := NewRecorder()
	r.RecordLeaderboard(time.Millisecond, false)
	r.RecordLeaderboard(0, true)
	r.RecordLeaderboard(0, true)

	if got := testutil.ToFloat64(r.leaderboardCalls.WithLabelValues("true")); got != 2 {
		t.Errorf("expected 2 shared requests, got %v", got)
	}
	if got := testutil.CollectAndCount(r.leaderboardTime); got != 1 {
		t.Errorf("expected one histogram series, got %d", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.RecordHTTPRequest("POST", "/api/games/{id}/winner", 200, time.Millisecond)
	r.RecordFeedPoll(errors.New("timeout"))

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`playoffs_http_requests_total{method="POST",route="/api/games/{id}/winner",status="200"} 1`,
		`playoffs_score_feed_polls_total{result="error"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
