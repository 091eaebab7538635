package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "yapa.v1.FrameStream"

const subscribeMethod = "/" + ServiceName + "/Subscribe"

// FrameStreamServer is the server API for the FrameStream service.
//
//	service FrameStream {
//	  rpc Subscribe(google.protobuf.Struct) returns (stream google.protobuf.Struct);
//	}
//
// The request carries channel, width, height and pixel_ratio. Every
// response is one message envelope ({"type", "data"}) as a Struct.
type FrameStreamServer interface {
	Subscribe(*structpb.Struct, FrameStream_SubscribeServer) error
}

// FrameStream_SubscribeServer is the server side of a Subscribe stream.
type FrameStream_SubscribeServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type frameStreamSubscribeServer struct {
	grpc.ServerStream
}

func (x *frameStreamSubscribeServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func _FrameStream_Subscribe_Handler(srv any, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(FrameStreamServer).Subscribe(m, &frameStreamSubscribeServer{stream})
}

// FrameStream_ServiceDesc describes the service for grpc.ServiceRegistrar.
// It only uses well-known types, so no generated code is involved.
var FrameStream_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FrameStreamServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       _FrameStream_Subscribe_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "yapa/v1/frame_stream.proto",
}

// RegisterFrameStreamServer registers srv on s.
func RegisterFrameStreamServer(s grpc.ServiceRegistrar, srv FrameStreamServer) {
	s.RegisterService(&FrameStream_ServiceDesc, srv)
}

// FrameStream_SubscribeClient is the client side of a Subscribe stream.
type FrameStream_SubscribeClient interface {
	Recv() (*structpb.Struct, error)
	grpc.ClientStream
}

type frameStreamSubscribeClient struct {
	grpc.ClientStream
}

func (x *frameStreamSubscribeClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// FrameStreamClient calls the FrameStream service.
type FrameStreamClient struct {
	cc grpc.ClientConnInterface
}

func NewFrameStreamClient(cc grpc.ClientConnInterface) *FrameStreamClient {
	return &FrameStreamClient{cc: cc}
}

// Subscribe opens a frame stream for the channel described by in.
func (c *FrameStreamClient) Subscribe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (FrameStream_SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &FrameStream_ServiceDesc.Streams[0], subscribeMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &frameStreamSubscribeClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
