package agent

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Vincent-lau/hpcsim/internal/launcher"
)

const bufSize = 1024 * 1024

// startAgents serves one agent per name over in-memory listeners and returns
// a dialer resolving each name to its listener.
func startAgents(t *testing.T, names ...string) grpc.DialOption {
	t.Helper()
	listeners := map[string]*bufconn.Listener{}
	for _, name := range names {
		lis := bufconn.Listen(bufSize)
		listeners[name] = lis

		g := NewGRPCServer()
		NewServer(name, launcher.ExecRunner{}).Register(g)
		go g.Serve(lis)
		t.Cleanup(g.Stop)
	}

	return grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
		lis, ok := listeners[addr]
		if !ok {
			return nil, status.Errorf(codes.Unavailable, "no agent %s", addr)
		}
		return lis.DialContext(ctx)
	})
}

func TestCodecRoundTrip(t *testing.T) {
	step := launcher.Step{Seq: 12, JobNum: 3, Slot: 2, Argv: []string{"python", "RunSimOnCluster.py", "12"}}
	in, err := encodeStep(step)
	require.NoError(t, err)
	got, err := decodeStep(in)
	require.NoError(t, err)
	require.Equal(t, step, got)

	start := time.Now().UTC()
	r := launcher.Result{
		Step:     step,
		Node:     "node03",
		Stdout:   []byte("12,3.14\n"),
		Stderr:   []byte{0xff, 0x00},
		ExitCode: 2,
		Start:    start,
		Duration: 1500 * time.Microsecond,
	}
	out, err := encodeResult(r)
	require.NoError(t, err)
	back, err := decodeResult(step, out)
	require.NoError(t, err)
	require.Equal(t, r.Node, back.Node)
	require.Equal(t, r.Stdout, back.Stdout)
	require.Equal(t, r.Stderr, back.Stderr)
	require.Equal(t, r.ExitCode, back.ExitCode)
	require.Equal(t, r.Duration, back.Duration)
	require.True(t, r.Start.Equal(back.Start))
	require.NoError(t, back.Err)
}

func TestDecodeStepRejectsBadArgv(t *testing.T) {
	_, err := decodeStep(&structpb.Struct{})
	require.ErrorIs(t, err, ErrBadMessage)

	s, err := structpb.NewStruct(map[string]interface{}{"argv": []interface{}{"sim", 3}})
	require.NoError(t, err)
	_, err = decodeStep(s)
	require.ErrorIs(t, err, ErrBadMessage)
}

func TestRunnerRunsStepOnAgent(t *testing.T) {
	dialer := startAgents(t, "node01")
	r, err := Dial([]string{"passthrough:///node01"}, dialer)
	require.NoError(t, err)
	defer r.Close()

	res := r.Run(context.Background(), launcher.Step{Seq: 5, Argv: []string{"sh", "-c", "echo 5,25"}})
	require.NoError(t, res.Err)
	require.Equal(t, "5,25\n", string(res.Stdout))
	require.Equal(t, "node01", res.Node)
}

func TestRunnerReportsExitCode(t *testing.T) {
	dialer := startAgents(t, "node01")
	r, err := Dial([]string{"passthrough:///node01"}, dialer)
	require.NoError(t, err)
	defer r.Close()

	res := r.Run(context.Background(), launcher.Step{Seq: 1, Argv: []string{"sh", "-c", "exit 4"}})
	require.NoError(t, res.Err)
	require.Equal(t, 4, res.ExitCode)
	require.True(t, res.Failed())
}

func TestRunnerWithLauncher(t *testing.T) {
	names := []string{"node01", "node02", "node03"}
	dialer := startAgents(t, names...)

	var addrs []string
	for _, n := range names {
		addrs = append(addrs, "passthrough:///"+n)
	}
	r, err := Dial(addrs, dialer)
	require.NoError(t, err)
	defer r.Close()
	require.Len(t, r.Agents(), 3)

	var busy sync.Map
	obs := observerFunc(func(res launcher.Result) error {
		busy.Store(res.Node, true)
		return nil
	})

	var out bytes.Buffer
	cfg := launcher.Config{First: 1, Last: 9, Jobs: 3, Template: []string{"sh", "-c", "echo {}"}}
	sum, err := launcher.New(cfg, r, &out, launcher.WithObserver(obs)).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 9, sum.Succeeded)

	got := strings.Fields(out.String())
	sort.Strings(got)
	require.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}, got)

	busy.Range(func(k, _ any) bool {
		require.Contains(t, names, k)
		return true
	})
}

func TestHealth(t *testing.T) {
	dialer := startAgents(t, "node01")
	cc, err := grpc.NewClient("passthrough:///node01", dialer,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer cc.Close()

	resp, err := grpc_health_v1.NewHealthClient(cc).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}

func TestServeStopsOnCancel(t *testing.T) {
	lis := bufconn.Listen(bufSize)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- NewServer("node01", launcher.ExecRunner{}).Serve(ctx, lis)
	}()

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent still serving after cancel")
	}
}

func TestPing(t *testing.T) {
	dialer := startAgents(t, "node01", "node02")
	r, err := Dial([]string{"passthrough:///node01", "passthrough:///node02"}, dialer)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Ping(context.Background()))
}

func TestPingUnreachableAgent(t *testing.T) {
	dialer := startAgents(t, "node01")
	r, err := Dial([]string{"passthrough:///node01", "passthrough:///gone"}, dialer)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.ErrorContains(t, r.Ping(ctx), "gone")
}

// A step whose call fails is reported failed and never sent again, even on
// Unavailable.
func TestRunnerDoesNotRepeatSteps(t *testing.T) {
	dialer := startAgents(t, "node01")
	r, err := Dial([]string{"passthrough:///gone"}, dialer)
	require.NoError(t, err)
	defer r.Close()

	res := r.Run(context.Background(), launcher.Step{Seq: 1, Argv: []string{"true"}})
	require.Error(t, res.Err)
	require.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(res.Err)))
	require.Equal(t, "passthrough:///gone", res.Node)
}

func TestDialNoAgents(t *testing.T) {
	_, err := Dial(nil)
	require.ErrorIs(t, err, ErrNoAgents)
}

type observerFunc func(launcher.Result) error

func (f observerFunc) Observe(r launcher.Result) error {
	return f(r)
}
