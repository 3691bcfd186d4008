package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/coinscope/coinscope/pkg/types"
)

// Fully qualified names of the snapshot service.
const (
	ServiceName        = "coinscope.v1.SnapshotService"
	SendSnapshotMethod = "/" + ServiceName + "/SendSnapshot"
)

// SnapshotServer is implemented by the server-side receiver.
type SnapshotServer interface {
	SendSnapshot(ctx context.Context, in *types.MarketSnapshot) (*types.SendResponse, error)
}

// SnapshotServiceDesc describes the service to grpc.Server.
var SnapshotServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SnapshotServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendSnapshot", Handler: sendSnapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "coinscope/v1/snapshot",
}

// RegisterSnapshotServer attaches srv to s.
func RegisterSnapshotServer(s grpc.ServiceRegistrar, srv SnapshotServer) {
	s.RegisterService(&SnapshotServiceDesc, srv)
}

func sendSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(types.MarketSnapshot)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SnapshotServer).SendSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SendSnapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SnapshotServer).SendSnapshot(ctx, req.(*types.MarketSnapshot))
	}
	return interceptor(ctx, in, info, handler)
}

// SnapshotClient calls SendSnapshot on a remote server.
type SnapshotClient struct {
	cc grpc.ClientConnInterface
}

// NewSnapshotClient wraps an open connection.
func NewSnapshotClient(cc grpc.ClientConnInterface) *SnapshotClient {
	return &SnapshotClient{cc: cc}
}

// SendSnapshot delivers one snapshot. The JSON content-subtype is always set.
func (c *SnapshotClient) SendSnapshot(ctx context.Context, in *types.MarketSnapshot, opts ...grpc.CallOption) (*types.SendResponse, error) {
	out := new(types.SendResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, SendSnapshotMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
