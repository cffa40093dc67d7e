package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "matrix.v1.MatrixService"

// MatrixServiceServer is the gRPC surface of the engine. Requests and
// responses are google.protobuf.Struct documents.
type MatrixServiceServer interface {
	EnqueueActivation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetJobStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RequeueJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListEntries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetProgress(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ClosePlacement(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(srv MatrixServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MatrixServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(MatrixServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var MatrixServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*MatrixServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodHandler("EnqueueActivation", MatrixServiceServer.EnqueueActivation),
		methodHandler("GetJobStatus", MatrixServiceServer.GetJobStatus),
		methodHandler("RequeueJob", MatrixServiceServer.RequeueJob),
		methodHandler("GetBalance", MatrixServiceServer.GetBalance),
		methodHandler("ListEntries", MatrixServiceServer.ListEntries),
		methodHandler("GetProgress", MatrixServiceServer.GetProgress),
		methodHandler("ClosePlacement", MatrixServiceServer.ClosePlacement),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "matrix/v1/matrix.proto",
}

func RegisterMatrixServiceServer(s grpc.ServiceRegistrar, srv MatrixServiceServer) {
	s.RegisterService(&MatrixServiceDesc, srv)
}
