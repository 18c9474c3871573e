package receiver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "obsrelay.v1.Ingest"

	// TriggerMethod is the full method path used on the wire.
	TriggerMethod = "/" + ServiceName + "/Trigger"
)

// IngestServer is the server API for the Ingest service.
type IngestServer interface {
	Trigger(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedIngestServer can be embedded to satisfy IngestServer.
type UnimplementedIngestServer struct{}

func (UnimplementedIngestServer) Trigger(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Trigger not implemented")
}

// RegisterIngestServer registers srv on s.
func RegisterIngestServer(s grpc.ServiceRegistrar, srv IngestServer) {
	s.RegisterService(&Ingest_ServiceDesc, srv)
}

func _Ingest_Trigger_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngestServer).Trigger(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TriggerMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IngestServer).Trigger(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Ingest_ServiceDesc is the grpc.ServiceDesc for the Ingest service.
var Ingest_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IngestServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Trigger",
			Handler:    _Ingest_Trigger_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "obsrelay/v1/ingest.proto",
}

// IngestClient is the client API for the Ingest service.
type IngestClient interface {
	Trigger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type ingestClient struct {
	cc grpc.ClientConnInterface
}

// NewIngestClient returns a client bound to cc.
func NewIngestClient(cc grpc.ClientConnInterface) IngestClient {
	return &ingestClient{cc: cc}
}

func (c *ingestClient) Trigger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TriggerMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
