package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
)

// Client is a typed client for the bracket service
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// GetBracket fetches a season's bracket
func (c *Client) GetBracket(ctx context.Context, season int, opts ...grpc.CallOption) (*playoffs.BracketView, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetBracket, wrapperspb.Int64(int64(season)), out, opts...); err != nil {
		return nil, err
	}
	var view playoffs.BracketView
	if err := decode(out, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GenerateBracket builds a season's bracket
func (c *Client) GenerateBracket(ctx context.Context, season int, opts ...grpc.CallOption) (*playoffs.BracketView, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGenerateBracket, wrapperspb.Int64(int64(season)), out, opts...); err != nil {
		return nil, err
	}
	var view playoffs.BracketView
	if err := decode(out, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// RecordWinner stores a game result
func (c *Client) RecordWinner(ctx context.Context, gameID, team string, opts ...grpc.CallOption) (*playoffs.WinnerResult, error) {
	in, err := structpb.NewStruct(map[string]any{"gameId": gameID, "team": team})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodRecordWinner, in, out, opts...); err != nil {
		return nil, err
	}
	var res playoffs.WinnerResult
	if err := decode(out, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetLeaderboard ranks a contest
func (c *Client) GetLeaderboard(ctx context.Context, contestID string, opts ...grpc.CallOption) (*playoffs.Leaderboard, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetLeaderboard, wrapperspb.String(contestID), out, opts...); err != nil {
		return nil, err
	}
	var board playoffs.Leaderboard
	if err := decode(out, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// EventStream receives events from StreamEvents
type EventStream struct {
	stream grpc.ServerStreamingClient[structpb.Struct]
}

// Recv blocks for the next event
func (s *EventStream) Recv() (pubsub.Event, error) {
	msg, err := s.stream.Recv()
	if err != nil {
		return pubsub.Event{}, err
	}
	var event pubsub.Event
	if err := decode(msg, &event); err != nil {
		return pubsub.Event{}, err
	}
	return event, nil
}

// StreamEvents subscribes to events. Season 0 receives every season.
func (c *Client) StreamEvents(ctx context.Context, season int, opts ...grpc.CallOption) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &BracketServiceDesc.Streams[0], MethodStreamEvents, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[wrapperspb.Int64Value, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(wrapperspb.Int64(int64(season))); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: x}, nil
}
