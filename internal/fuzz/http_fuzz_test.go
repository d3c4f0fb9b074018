package fuzz

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZBugge/nfl-playoff-predictor/internal/auth"
	"github.com/ZBugge/nfl-playoff-predictor/internal/dal"
	"github.com/ZBugge/nfl-playoff-predictor/internal/handlers"
	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
)

func init() {
	logger.Init()
}

type target struct {
	handler http.Handler
	svc     *playoffs.Service
	token   string
	games   []models.Game
	contest *models.Contest
	player  *models.Participant
}

// newTarget builds a router over a generated demo bracket with one contest
// and one participant.
func newTarget(t *testing.T) *target {
	ctx := context.Background()
	store := dal.NewMemoryDAL()
	if _, err := dal.SeedDemo(ctx, store, 2024); err != nil {
		t.Fatalf("SeedDemo() failed: %v", err)
	}
	bus := pubsub.New()
	t.Cleanup(bus.Close)
	svc := playoffs.New(store, playoffs.Options{Publisher: bus})

	b, err := svc.GenerateBracket(ctx, 2024)
	if err != nil {
		t.Fatalf("GenerateBracket() failed: %v", err)
	}
	contest, err := svc.CreateContest(ctx, "fuzz", 2024, "")
	if err != nil {
		t.Fatalf("CreateContest() failed: %v", err)
	}
	player, err := svc.JoinContest(ctx, contest.ID, "fuzzer")
	if err != nil {
		t.Fatalf("JoinContest() failed: %v", err)
	}

	mock := auth.NewMockAuth()
	return &target{
		handler: handlers.NewRouter(handlers.RouterConfig{
			API:   handlers.NewAPIHandlers(svc, bus),
			Guard: auth.NewGuard(mock, nil),
		}),
		svc:     svc,
		token:   mock.IssueToken(nil),
		games:   b.Games(),
		contest: contest,
		player:  player,
	}
}

func (tg *target) serve(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tg.token)
	w := httptest.NewRecorder()
	tg.handler.ServeHTTP(w, req)
	return w
}

// checkStatus fails on a 500: arbitrary input must never surface as an
// internal error.
func checkStatus(t *testing.T, w *httptest.ResponseRecorder, body string) {
	if w.Code >= http.StatusInternalServerError {
		t.Errorf("status %d for body %q: %s", w.Code, body, w.Body.String())
	}
}

// FuzzHTTPRecordWinner fuzzes the winner endpoint of a wildcard game
func FuzzHTTPRecordWinner(f *testing.F) {
	f.Add(`{"team":"BUF"}`)
	f.Add(`{"team":"DEN"}`)
	f.Add(`{"team":"TBD"}`)
	f.Add(`{"team":""}`)
	f.Add(`{"team":12}`)
	f.Add(`not json`)

	f.Fuzz(func(t *testing.T, data string) {
		tg := newTarget(t)
		w := tg.serve(http.MethodPost, "/api/games/"+tg.games[0].ID+"/winner", data)
		checkStatus(t, w, data)
	})
}

// FuzzHTTPSetSeeds fuzzes seed upserts into an empty season
func FuzzHTTPSetSeeds(f *testing.F) {
	f.Add(`{"seeds":[{"conference":"A","rank":1,"team":"KC"}]}`)
	f.Add(`{"seeds":[{"conference":"C","rank":1,"team":"KC"}]}`)
	f.Add(`{"seeds":[{"conference":"A","rank":9,"team":"KC"}]}`)
	f.Add(`{"seeds":[{"season":1999,"conference":"A","rank":1,"team":"KC"}]}`)
	f.Add(`{"seeds":[]}`)
	f.Add(`{}`)

	f.Fuzz(func(t *testing.T, data string) {
		tg := newTarget(t)
		w := tg.serve(http.MethodPut, "/api/seasons/2025/seeds", data)
		checkStatus(t, w, data)
	})
}

// FuzzHTTPCorrectSeeds fuzzes corrections against a generated season
func FuzzHTTPCorrectSeeds(f *testing.F) {
	f.Add(`{"seeds":[{"conference":"A","rank":7,"team":"MIA"}]}`)
	f.Add(`{"seeds":[{"conference":"A","rank":7,"team":"KC"}]}`)
	f.Add(`{"seeds":[{"conference":"B","rank":0,"team":"DET"}]}`)

	f.Fuzz(func(t *testing.T, data string) {
		tg := newTarget(t)
		w := tg.serve(http.MethodPost, "/api/seasons/2024/seeds/corrections", data)
		checkStatus(t, w, data)
	})
}

// FuzzHTTPSubmitPrediction fuzzes picks against the first wildcard game
func FuzzHTTPSubmitPrediction(f *testing.F) {
	f.Add("BUF", "")
	f.Add("DEN", "BUF")
	f.Add("BUF", "BUF")
	f.Add("TBD", "")
	f.Add("KC", "DET")

	f.Fuzz(func(t *testing.T, winner, opponent string) {
		tg := newTarget(t)
		body := `{"gameId":"` + tg.games[0].ID + `","predictedWinner":` + quote(winner)
		if opponent != "" {
			body += `,"predictedOpponent":` + quote(opponent)
		}
		body += "}"

		w := tg.serve(http.MethodPost, "/api/participants/"+tg.player.ID+"/predictions", body)
		checkStatus(t, w, body)
	})
}

// FuzzHTTPContests fuzzes contest creation and joining
func FuzzHTTPContests(f *testing.F) {
	f.Add(`{"name":"office","season":2024}`, `{"name":"bob"}`)
	f.Add(`{"name":"","season":0}`, `{"name":""}`)
	f.Add(`{"name":"x","season":2024,"policy":"nope"}`, `{"name":"FUZZER"}`)

	f.Fuzz(func(t *testing.T, contest, join string) {
		tg := newTarget(t)
		checkStatus(t, tg.serve(http.MethodPost, "/api/contests", contest), contest)
		checkStatus(t, tg.serve(http.MethodPost, "/api/contests/"+tg.contest.ID+"/participants", join), join)
	})
}
