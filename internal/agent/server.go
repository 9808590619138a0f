package agent

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Vincent-lau/hpcsim/internal/launcher"
	"github.com/Vincent-lau/hpcsim/internal/metrics"
)

// Server runs the steps sent to one node. Steps run one at a time, so a node
// is never shared by two steps.
type Server struct {
	grpc_health_v1.UnimplementedHealthServer

	mu     sync.Mutex
	node   string
	exec   launcher.ExecRunner
	logger *log.Entry
}

func NewServer(node string, exec launcher.ExecRunner) *Server {
	return &Server{
		node: node,
		exec: exec,
		logger: log.WithFields(log.Fields{
			"prefix": "agent",
			"node":   node,
		}),
	}
}

func (s *Server) RunStep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	step, err := decodeStep(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.WithFields(log.Fields{
		"seq":  step.Seq,
		"argv": step.Argv,
	}).Debug("running step")

	metrics.StepsInFlight.Inc()
	r := s.exec.Run(ctx, step)
	metrics.StepsInFlight.Dec()
	metrics.StepLatency.Observe(r.Duration.Seconds())
	r.Node = s.node

	if r.Failed() {
		s.logger.WithFields(log.Fields{
			"seq":       step.Seq,
			"exit code": r.ExitCode,
			"error":     r.Err,
		}).Warn("step failed")
	}
	return encodeResult(r)
}

func (s *Server) Check(ctx context.Context, in *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (s *Server) Watch(in *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	return errors.New("not implemented")
}

// Register adds the step runner and health services to g.
func (s *Server) Register(g *grpc.Server) {
	RegisterStepRunnerServer(g, s)
	grpc_health_v1.RegisterHealthServer(g, s)
}

func NewGRPCServer() *grpc.Server {
	return grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time: 30 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	)
}

// Serve serves on lis until ctx is done, then stops gracefully: steps already
// running finish and are answered before Serve returns nil.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	g := NewGRPCServer()
	s.Register(g)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping agent")
			g.GracefulStop()
		case <-done:
		}
	}()

	s.logger.WithFields(log.Fields{
		"at": lis.Addr(),
	}).Info("agent listening")

	// ErrServerStopped when ctx was done before serving started
	if err := g.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
