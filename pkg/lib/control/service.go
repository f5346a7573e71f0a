// Package control is the local gRPC control surface of a running shell.
//
// The service listens on a unix socket and only answers peers on that
// socket. A second shell instance uses it to hand its activation over to
// the first; the CLI uses it for status, logs and quit.
//
// There is no generated code: the service is described by hand with the
// protobuf well-known types Empty and Struct as messages.
package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "psidesktop.control.v1.Control"

const (
	statusMethod   = "/" + ServiceName + "/Status"
	activateMethod = "/" + ServiceName + "/Activate"
	quitMethod     = "/" + ServiceName + "/Quit"
	logsMethod     = "/" + ServiceName + "/Logs"
)

// ControlServer is the server API of the control service.
type ControlServer interface {
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Activate(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Quit(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Logs(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the control service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: statusHandler},
		{MethodName: "Activate", Handler: activateHandler},
		{MethodName: "Quit", Handler: quitHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Logs", Handler: logsHandler, ServerStreams: true},
	},
	Metadata: "psidesktop/control/v1/control.proto",
}

func unary[Res any](method string, call func(ControlServer, context.Context, *emptypb.Empty) (Res, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ControlServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	statusHandler   = unary(statusMethod, ControlServer.Status)
	activateHandler = unary(activateMethod, ControlServer.Activate)
	quitHandler     = unary(quitMethod, ControlServer.Quit)
)

func logsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).Logs(in, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}
