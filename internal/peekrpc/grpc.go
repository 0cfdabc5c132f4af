package peekrpc

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName and methodName name the RPC the way protoc-gen-go-grpc would
// have, had this contract been compiled from a .proto file.
const (
	serviceName = "flowtlog.peek.v1.PeekService"
	methodName  = "Peek"
	fullMethod  = "/" + serviceName + "/" + methodName
)

// PeekServiceServer is the server-side contract a TLog server implements.
// It is the same shape PeekClient exposes to callers; kept as a distinct
// interface so server registration doesn't require satisfying PeekClient's
// (identical, here) method set by coincidence.
type PeekServiceServer interface {
	Peek(ctx context.Context, req *PeekRequest) (*PeekReply, error)
}

// _PeekService_Peek_Handler adapts a PeekServiceServer method to the grpc
// MethodDesc.Handler signature, matching the shape protoc-gen-go-grpc emits
// for a unary RPC.
func _PeekService_Peek_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PeekRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		reply, err := srv.(PeekServiceServer).Peek(ctx, in)
		return reply, toStatusError(err)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		reply, err := srv.(PeekServiceServer).Peek(ctx, req.(*PeekRequest))
		return reply, toStatusError(err)
	}
	return interceptor(ctx, in, info, handler)
}

// _PeekService_serviceDesc is the hand-written equivalent of what
// protoc-gen-go-grpc generates into a _grpc.pb.go file for a single-method
// service.
var _PeekService_serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PeekServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: methodName,
			Handler:    _PeekService_Peek_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "flowtlog/peek/v1/peek.proto",
}

// RegisterPeekServiceServer wires an implementation into a grpc.Server.
func RegisterPeekServiceServer(s grpc.ServiceRegistrar, srv PeekServiceServer) {
	s.RegisterService(&_PeekService_serviceDesc, srv)
}

// grpcClient implements PeekClient over a grpc.ClientConnInterface, calling
// through the codec registered in codec.go via grpc.CallContentSubtype.
type grpcClient struct {
	cc grpc.ClientConnInterface
}

// NewGRPCClient adapts an established grpc connection (or any
// grpc.ClientConnInterface, including one backed by a test bufconn dialer)
// into a PeekClient.
func NewGRPCClient(cc grpc.ClientConnInterface) PeekClient {
	return &grpcClient{cc: cc}
}

func (c *grpcClient) Peek(ctx context.Context, req *PeekRequest) (*PeekReply, error) {
	out := new(PeekReply)
	opts := []grpc.CallOption{grpc.CallContentSubtype(codecName)}
	if err := c.cc.Invoke(ctx, fullMethod, req, out, opts...); err != nil {
		return nil, fromStatusError(err)
	}
	return out, nil
}
