package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Vincent-lau/hpcsim/internal/launcher"
	"github.com/Vincent-lau/hpcsim/internal/nodes"
	"github.com/Vincent-lau/hpcsim/util"
)

var (
	ErrNoAgents   = errors.New("no agent addresses")
	ErrNotServing = errors.New("agent not serving")
)

// Runner sends steps to node agents. Each step takes an agent no other step
// is using, so steps keep the one-step-per-node placement of srun --exclusive.
type Runner struct {
	conns   []*grpc.ClientConn
	clients map[string]StepRunnerClient
	health  map[string]grpc_health_v1.HealthClient
	pool    *nodes.Pool
	retry   util.Retry
}

// A step is not idempotent: Unavailable may arrive after the agent started
// it, so a failed step call is never repeated. Calls that never left the
// client are still retried transparently by grpc.
var stepRetry = util.Retry{Attempts: 1}

// Dial creates a connection to every agent. Connections are established
// lazily by the first step sent to an agent.
func Dial(addrs []string, opts ...grpc.DialOption) (*Runner, error) {
	if len(addrs) == 0 {
		return nil, ErrNoAgents
	}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	r := &Runner{
		clients: make(map[string]StepRunnerClient, len(addrs)),
		health:  make(map[string]grpc_health_v1.HealthClient, len(addrs)),
		retry:   stepRetry,
	}
	var agents []string
	for _, addr := range addrs {
		if slices.Contains(agents, addr) {
			continue
		}
		cc, err := grpc.NewClient(addr, opts...)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("dial agent %s: %w", addr, err)
		}
		r.conns = append(r.conns, cc)
		r.clients[addr] = NewStepRunnerClient(cc)
		r.health[addr] = grpc_health_v1.NewHealthClient(cc)
		agents = append(agents, addr)
	}
	r.pool = nodes.NewPool(agents)

	log.WithFields(log.Fields{
		"agents": agents,
	}).Info("connected to agents")
	return r, nil
}

// Ping checks that every agent is serving. Health checks are idempotent, so
// they are retried on transport failures.
func (r *Runner) Ping(ctx context.Context) error {
	for _, addr := range r.Agents() {
		resp, err := util.MakeRPC(ctx, &grpc_health_v1.HealthCheckRequest{}, r.health[addr].Check, util.DefaultRetry)
		if err != nil {
			return fmt.Errorf("agent %s: %w", addr, err)
		}
		if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
			return fmt.Errorf("agent %s: %w: %s", addr, ErrNotServing, resp.GetStatus())
		}
	}
	return nil
}

func (r *Runner) Agents() []string {
	return r.pool.Nodes()
}

func (r *Runner) Run(ctx context.Context, step launcher.Step) launcher.Result {
	start := time.Now()
	fail := func(node string, err error) launcher.Result {
		return launcher.Result{
			Step:     step,
			Node:     node,
			Start:    start,
			Duration: time.Since(start),
			ExitCode: -1,
			Err:      err,
		}
	}

	addr, err := r.pool.Acquire(ctx)
	if err != nil {
		return fail("", err)
	}
	defer r.pool.Release(addr)

	in, err := encodeStep(step)
	if err != nil {
		return fail(addr, err)
	}
	out, err := util.MakeRPC(ctx, in, r.clients[addr].RunStep, r.retry)
	if err != nil {
		return fail(addr, fmt.Errorf("run step on %s: %w", addr, err))
	}

	res, err := decodeResult(step, out)
	if err != nil {
		return fail(addr, err)
	}
	if res.Node == "" {
		res.Node = addr
	}
	return res
}

func (r *Runner) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	var errs []error
	for _, cc := range r.conns {
		errs = append(errs, cc.Close())
	}
	return errors.Join(errs...)
}
