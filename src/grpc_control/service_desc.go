package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// The control plane speaks only well-known protobuf types, so the service
// descriptor is declared here instead of generated.

const ServiceName = "marketstream.control.v1.StreamControl"

const (
	methodGetStatus = "/" + ServiceName + "/GetStatus"
	methodBackfill  = "/" + ServiceName + "/Backfill"
	methodPublish   = "/" + ServiceName + "/Publish"
)

// StreamControlServer is implemented by ControlService.
type StreamControlServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Backfill(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Publish(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
}

func RegisterStreamControlServer(s grpc.ServiceRegistrar, srv StreamControlServer) {
	s.RegisterService(&StreamControlServiceDesc, srv)
}

var StreamControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StreamControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "Backfill", Handler: backfillHandler},
		{MethodName: "Publish", Handler: publishHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "marketstream/control/v1/control.proto",
}

// -----------------------------------------------------------------------------

func getStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StreamControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetStatus}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StreamControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	})
}

func backfillHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StreamControlServer).Backfill(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodBackfill}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StreamControlServer).Backfill(ctx, req.(*structpb.Struct))
	})
}

func publishHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StreamControlServer).Publish(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodPublish}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StreamControlServer).Publish(ctx, req.(*structpb.Struct))
	})
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type StreamControlClient struct {
	cc grpc.ClientConnInterface
}

func NewStreamControlClient(cc grpc.ClientConnInterface) *StreamControlClient {
	return &StreamControlClient{cc: cc}
}

func (c *StreamControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetStatus, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StreamControlClient) Backfill(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodBackfill, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *StreamControlClient) Publish(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, methodPublish, in, new(emptypb.Empty), opts...)
}
