package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "playoffs.v1.BracketService"

// Full method names, as seen by interceptors
const (
	MethodGetBracket      = "/" + ServiceName + "/GetBracket"
	MethodGenerateBracket = "/" + ServiceName + "/GenerateBracket"
	MethodRecordWinner    = "/" + ServiceName + "/RecordWinner"
	MethodGetLeaderboard  = "/" + ServiceName + "/GetLeaderboard"
	MethodStreamEvents    = "/" + ServiceName + "/StreamEvents"
)

// AdminMethods change the bracket and require an admin caller
var AdminMethods = []string{MethodGenerateBracket, MethodRecordWinner}

// BracketServiceServer is the server API for the bracket service.
// Messages are well-known protobuf types so no generated code is needed:
// seasons travel as Int64Value, ids as StringValue and documents as Struct.
type BracketServiceServer interface {
	GetBracket(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	GenerateBracket(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	RecordWinner(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLeaderboard(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	StreamEvents(*wrapperspb.Int64Value, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterBracketServiceServer registers srv on s
func RegisterBracketServiceServer(s grpc.ServiceRegistrar, srv BracketServiceServer) {
	s.RegisterService(&BracketServiceDesc, srv)
}

// BracketServiceDesc describes the service for grpc.Server.RegisterService
var BracketServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BracketServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetBracket", Handler: unary(MethodGetBracket, BracketServiceServer.GetBracket)},
		{MethodName: "GenerateBracket", Handler: unary(MethodGenerateBracket, BracketServiceServer.GenerateBracket)},
		{MethodName: "RecordWinner", Handler: unary(MethodRecordWinner, BracketServiceServer.RecordWinner)},
		{MethodName: "GetLeaderboard", Handler: unary(MethodGetLeaderboard, BracketServiceServer.GetLeaderboard)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamEvents",
			Handler:       streamEventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "playoffs/v1/bracket.proto",
}

// unary adapts a typed method into a grpc.MethodDesc handler, the same shape
// protoc-gen-go-grpc emits per method.
func unary[Req any, Resp any](fullMethod string, call func(BracketServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BracketServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BracketServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func streamEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.Int64Value)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BracketServiceServer).StreamEvents(in, &grpc.GenericServerStream[wrapperspb.Int64Value, structpb.Struct]{ServerStream: stream})
}
