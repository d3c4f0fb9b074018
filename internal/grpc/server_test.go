package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ZBugge/nfl-playoff-predictor/internal/auth"
	"github.com/ZBugge/nfl-playoff-predictor/internal/dal"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
)

type harness struct {
	client *Client
	svc    *playoffs.Service
	admin  context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	store := dal.NewMemoryDAL()
	if _, err := dal.SeedDemo(ctx, store, 2024); err != nil {
		t.Fatalf("SeedDemo() failed: %v", err)
	}
	bus := pubsub.New()
	svc := playoffs.New(store, playoffs.Options{Publisher: bus})

	mock := auth.NewMockAuth()
	guard := auth.NewGuard(mock, nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(guard.UnaryInterceptor(AdminMethods...)))
	RegisterBracketServiceServer(srv, NewServer(svc, bus))
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient() failed: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		bus.Close()
	})

	return &harness{
		client: NewClient(conn),
		svc:    svc,
		admin:  metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+mock.IssueToken(nil)),
	}
}

func TestGenerateAndGetBracket(t *testing.T) {
	h := newHarness(t)

	view, err := h.client.GenerateBracket(h.admin, 2024)
	if err != nil {
		t.Fatalf("GenerateBracket() failed: %v", err)
	}
	if len(view.Games) != models.TotalGames || view.Season != 2024 {
		t.Fatalf("unexpected bracket %+v", view)
	}

	got, err := h.client.GetBracket(context.Background(), 2024)
	if err != nil {
		t.Fatalf("GetBracket() failed: %v", err)
	}
	if got.Version != view.Version || got.Games[0].ID != view.Games[0].ID {
		t.Errorf("GetBracket returned a different bracket: %+v", got)
	}
	if got.Games[0].HomeSeed == nil || *got.Games[0].HomeSeed != 2 {
		t.Errorf("expected seeds to survive the round trip, got %+v", got.Games[0])
	}
}

func TestRecordWinnerOverGRPC(t *testing.T) {
	h := newHarness(t)
	view, err := h.client.GenerateBracket(h.admin, 2024)
	if err != nil {
		t.Fatalf("GenerateBracket() failed: %v", err)
	}
	g := view.Games[0]

	if _, err := h.client.RecordWinner(context.Background(), g.ID, g.HomeTeam); status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated without a token, got %v", err)
	}

	res, err := h.client.RecordWinner(h.admin, g.ID, g.HomeTeam)
	if err != nil {
		t.Fatalf("RecordWinner() failed: %v", err)
	}
	if !res.Changed || res.Game.Winner == nil || *res.Game.Winner != g.HomeTeam {
		t.Errorf("unexpected result %+v", res)
	}

	if _, err := h.client.RecordWinner(h.admin, g.ID, "NOPE"); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
	if _, err := h.client.RecordWinner(h.admin, "missing", "KC"); status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestGetLeaderboardOverGRPC(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	contest, err := h.svc.CreateContest(ctx, "office", 2024, "")
	if err != nil {
		t.Fatalf("CreateContest() failed: %v", err)
	}
	if _, err := h.svc.JoinContest(ctx, contest.ID, "alice"); err != nil {
		t.Fatalf("JoinContest() failed: %v", err)
	}

	board, err := h.client.GetLeaderboard(ctx, contest.ID)
	if err != nil {
		t.Fatalf("GetLeaderboard() failed: %v", err)
	}
	if board.Contest.ID != contest.ID || len(board.Entries) != 1 || board.Entries[0].Name != "alice" {
		t.Errorf("unexpected leaderboard %+v", board)
	}

	if _, err := h.client.GetLeaderboard(ctx, "missing"); status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestStreamEvents(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := h.client.StreamEvents(ctx, 2024)
	if err != nil {
		t.Fatalf("StreamEvents() failed: %v", err)
	}

	// The subscription is registered asynchronously; keep generating until
	// the stream sees an event.
	received := make(chan pubsub.Event, 1)
	go func() {
		event, err := stream.Recv()
		if err == nil {
			received <- event
		}
	}()

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case event := <-received:
			if event.Type != pubsub.EventBracketGenerated || event.Season != 2024 {
				t.Errorf("unexpected event %+v", event)
			}
			return
		case <-tick.C:
			if _, err := h.client.GenerateBracket(h.admin, 2024); err != nil {
				t.Fatalf("GenerateBracket() failed: %v", err)
			}
		case <-ctx.Done():
			t.Fatalf("no event received")
		}
	}
}
