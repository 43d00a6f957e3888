package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cheesestick.DashboardControl"

// DashboardControlServer drives the shared dashboard. Messages are protobuf
// well-known types, so no generated code is needed on either side.
type DashboardControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Play(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Pause(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SetSpeed(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	SetView(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	TogglePlayer(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	StartCapture(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	CancelCapture(context.Context, *emptypb.Empty) (*wrapperspb.BoolValue, error)
	RefreshPerformance(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// -----------------------------------------------------------------------------

// unary builds a method descriptor that decodes Req and calls fn.
func unary[Req any, Resp any](name string, fn func(DashboardControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(DashboardControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(DashboardControlServer), ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc registers DashboardControlServer implementations.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DashboardControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", DashboardControlServer.GetStatus),
		unary("Play", DashboardControlServer.Play),
		unary("Pause", DashboardControlServer.Pause),
		unary("Reset", DashboardControlServer.Reset),
		unary("SetSpeed", DashboardControlServer.SetSpeed),
		unary("SetView", DashboardControlServer.SetView),
		unary("TogglePlayer", DashboardControlServer.TogglePlayer),
		unary("StartCapture", DashboardControlServer.StartCapture),
		unary("CancelCapture", DashboardControlServer.CancelCapture),
		unary("RefreshPerformance", DashboardControlServer.RefreshPerformance),
	},
	Streams: []grpc.StreamDesc{},
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv DashboardControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// DashboardControlClient calls a remote DashboardControl service.
type DashboardControlClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardControlClient(cc grpc.ClientConnInterface) *DashboardControlClient {
	return &DashboardControlClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardControlClient) GetStatus(ctx context.Context) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "GetStatus", &emptypb.Empty{})
}

func (c *DashboardControlClient) Play(ctx context.Context) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Play", &emptypb.Empty{})
}

func (c *DashboardControlClient) Pause(ctx context.Context) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Pause", &emptypb.Empty{})
}

func (c *DashboardControlClient) Reset(ctx context.Context) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Reset", &emptypb.Empty{})
}

func (c *DashboardControlClient) SetSpeed(ctx context.Context, speed int) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "SetSpeed", wrapperspb.Int32(int32(speed)))
}

func (c *DashboardControlClient) SetView(ctx context.Context, view string) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "SetView", wrapperspb.String(view))
}

func (c *DashboardControlClient) TogglePlayer(ctx context.Context, index int) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "TogglePlayer", wrapperspb.Int32(int32(index)))
}

func (c *DashboardControlClient) StartCapture(ctx context.Context) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "StartCapture", &emptypb.Empty{})
}

func (c *DashboardControlClient) CancelCapture(ctx context.Context) (bool, error) {
	out, err := invoke[wrapperspb.BoolValue](ctx, c.cc, "CancelCapture", &emptypb.Empty{})
	if err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *DashboardControlClient) RefreshPerformance(ctx context.Context) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "RefreshPerformance", &emptypb.Empty{})
}
