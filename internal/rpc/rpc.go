// Package rpc serves the solver over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON documents as the HTTP
// API, so no generated code is needed.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName       = "honing.v1.Solver"
	solveMethod       = "/" + serviceName + "/Solve"
	solveStreamMethod = "/" + serviceName + "/SolveStream"
)

// SolverServer is the server API for honing.v1.Solver.
type SolverServer interface {
	Solve(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// SolveStream sends intermediate results, then one final_result message.
	SolveStream(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes honing.v1.Solver for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SolverServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Solve", Handler: solveHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "SolveStream", Handler: solveStreamHandler, ServerStreams: true},
	},
	Metadata: "honing/v1/solver.proto",
}

// Register adds srv to s.
func Register(s grpc.ServiceRegistrar, srv SolverServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func solveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SolverServer).Solve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: solveMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SolverServer).Solve(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func solveStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SolverServer).SolveStream(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// Client calls honing.v1.Solver.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Solve(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, solveMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SolveStream(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], solveStreamMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
