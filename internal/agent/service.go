package agent

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName   = "hpcsim.agent.StepRunner"
	runStepMethod = "/" + serviceName + "/RunStep"
)

// StepRunnerServer runs one job step per call. Requests and replies are
// structpb.Struct messages, see encodeStep and encodeResult for their fields.
type StepRunnerServer interface {
	RunStep(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type StepRunnerClient interface {
	RunStep(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type stepRunnerClient struct {
	cc grpc.ClientConnInterface
}

func NewStepRunnerClient(cc grpc.ClientConnInterface) StepRunnerClient {
	return &stepRunnerClient{cc}
}

func (c *stepRunnerClient) RunStep(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, runStepMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterStepRunnerServer(s grpc.ServiceRegistrar, srv StepRunnerServer) {
	s.RegisterService(&stepRunnerServiceDesc, srv)
}

func runStepHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StepRunnerServer).RunStep(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: runStepMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StepRunnerServer).RunStep(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var stepRunnerServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StepRunnerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RunStep",
			Handler:    runStepHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agent/step_runner",
}
