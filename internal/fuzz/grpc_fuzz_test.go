package fuzz

import (
	"context"
	"encoding/json"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcserver "github.com/ZBugge/nfl-playoff-predictor/internal/grpc"
)

func quote(s string) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

func newGRPCServer(t *testing.T) (*grpcserver.Server, *target) {
	tg := newTarget(t)
	return grpcserver.NewServer(tg.svc, nil), tg
}

func checkCode(t *testing.T, err error) {
	if code := status.Code(err); code == codes.Internal || code == codes.Unknown {
		t.Errorf("unexpected %s: %v", code, err)
	}
}

// FuzzGRPCRecordWinner fuzzes RecordWinner with arbitrary game ids and teams
func FuzzGRPCRecordWinner(f *testing.F) {
	f.Add("", "BUF", true)
	f.Add("", "DEN", true)
	f.Add("missing", "KC", false)
	f.Add("", "", true)
	f.Add("", "TBD", true)

	f.Fuzz(func(t *testing.T, gameID, team string, useReal bool) {
		server, tg := newGRPCServer(t)
		if useReal {
			gameID = tg.games[0].ID
		}
		req, err := structpb.NewStruct(map[string]any{"gameId": gameID, "team": team})
		if err != nil {
			t.Skip()
		}
		_, err = server.RecordWinner(context.Background(), req)
		checkCode(t, err)
	})
}

// FuzzGRPCGetBracket fuzzes the season argument
func FuzzGRPCGetBracket(f *testing.F) {
	f.Add(int64(2024))
	f.Add(int64(0))
	f.Add(int64(-1))
	f.Add(int64(1 << 40))

	f.Fuzz(func(t *testing.T, season int64) {
		server, _ := newGRPCServer(t)
		_, err := server.GetBracket(context.Background(), wrapperspb.Int64(season))
		checkCode(t, err)
		_, err = server.GenerateBracket(context.Background(), wrapperspb.Int64(season))
		checkCode(t, err)
	})
}

// FuzzGRPCGetLeaderboard fuzzes contest ids
func FuzzGRPCGetLeaderboard(f *testing.F) {
	f.Add("")
	f.Add("missing")
	f.Add("00000000-0000-0000-0000-000000000000")

	f.Fuzz(func(t *testing.T, id string) {
		server, _ := newGRPCServer(t)
		_, err := server.GetLeaderboard(context.Background(), wrapperspb.String(id))
		checkCode(t, err)
	})
}
