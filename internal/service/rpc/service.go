package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the gRPC service name registered on the server and
// dialed on the client, in place of a name protoc would otherwise
// generate from a .proto file.
const ServiceName = "andersgo.PointerAnalysis"

func analyzeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AnalyzeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Analyze"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).Analyze(ctx, req.(*AnalyzeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func pointsToHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PointsToRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).PointsTo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/PointsTo"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).PointsTo(ctx, req.(*PointsToRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the service's hand-written stand-in for a
// protoc-generated descriptor, registered on a *grpc.Server with
// RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: analyzeHandler},
		{MethodName: "PointsTo", Handler: pointsToHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/service/rpc/service.go",
}

// RegisterServer registers srv on s using ServiceDesc.
func RegisterServer(s *grpc.Server, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}
