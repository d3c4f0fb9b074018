package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ZBugge/nfl-playoff-predictor/internal/logger"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
	"github.com/ZBugge/nfl-playoff-predictor/internal/playoffs"
	"github.com/ZBugge/nfl-playoff-predictor/internal/pubsub"
)

// EventSource is the subscribe side of the event bus
type EventSource interface {
	Subscribe() chan pubsub.Event
	Unsubscribe(chan pubsub.Event)
}

// Server implements the gRPC BracketService
type Server struct {
	svc    *playoffs.Service
	events EventSource
}

// NewServer creates a new gRPC server
func NewServer(svc *playoffs.Service, events EventSource) *Server {
	return &Server{svc: svc, events: events}
}

// GetBracket returns a season's bracket
func (s *Server) GetBracket(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	logger.Debug("gRPC: Getting bracket", "season", req.GetValue())
	b, err := s.svc.GetBracket(ctx, int(req.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(playoffs.View(b))
}

// GenerateBracket builds a season's bracket from its seeds
func (s *Server) GenerateBracket(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	logger.Info("gRPC: Generating bracket", "season", req.GetValue())
	b, err := s.svc.GenerateBracket(ctx, int(req.GetValue()))
	if err != nil {
		logger.Error("gRPC: Failed to generate bracket", "error", err, "season", req.GetValue())
		return nil, toStatus(err)
	}
	return encode(playoffs.View(b))
}

// RecordWinner expects {"gameId": ..., "team": ...}
func (s *Server) RecordWinner(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	gameID := req.GetFields()["gameId"].GetStringValue()
	team := req.GetFields()["team"].GetStringValue()
	logger.Info("gRPC: Recording winner", "game", gameID, "team", team)

	res, err := s.svc.RecordWinner(ctx, gameID, team)
	if err != nil {
		logger.Warn("gRPC: Failed to record winner", "error", err, "game", gameID, "team", team)
		return nil, toStatus(err)
	}
	return encode(res)
}

// GetLeaderboard ranks a contest
func (s *Server) GetLeaderboard(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	board, err := s.svc.GetLeaderboard(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(board)
}

// StreamEvents streams events to clients. A non-zero season filters out
// events for other seasons.
func (s *Server) StreamEvents(req *wrapperspb.Int64Value, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	logger.Debug("gRPC: New client connected to event stream", "season", req.GetValue())
	season := int(req.GetValue())
	eventChan := s.events.Subscribe()
	defer s.events.Unsubscribe(eventChan)

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return status.Error(codes.Unavailable, "event stream closed")
			}
			if season != 0 && event.Season != 0 && event.Season != season {
				continue
			}
			msg, err := encode(event)
			if err != nil {
				logger.Warn("gRPC: Failed to encode event", "event_type", event.Type, "error", err)
				continue
			}
			if err := stream.Send(msg); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream")
			return nil
		}
	}
}

// toStatus maps the error taxonomy onto gRPC codes
func toStatus(err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		logger.Error("gRPC: Internal error", "error", err)
		return status.Error(codes.Internal, err.Error())
	}
}
