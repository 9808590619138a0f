package launcher

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/Vincent-lau/hpcsim/internal/nodes"
)

// ExecRunner runs a step as a local process. The step's sequence value and
// slot are exported as PARALLEL_SEQ and PARALLEL_JOBSLOT.
type ExecRunner struct {
	Dir string
	Env []string
}

func (e ExecRunner) Run(ctx context.Context, step Step) Result {
	r := Result{
		Step:  step,
		Node:  hostname(),
		Start: time.Now(),
	}
	if len(step.Argv) == 0 {
		r.Err = ErrEmptyCommand
		r.ExitCode = -1
		return r
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, step.Argv[0], step.Argv[1:]...)
	cmd.Dir = e.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), e.Env...)
	cmd.Env = append(cmd.Env,
		"PARALLEL_SEQ="+strconv.Itoa(step.JobNum),
		"PARALLEL_JOBSLOT="+strconv.Itoa(step.Slot),
	)

	err := cmd.Run()
	r.Duration = time.Since(r.Start)
	r.Stdout = stdout.Bytes()
	r.Stderr = stderr.Bytes()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		r.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			r.Err = ctx.Err()
		}
	default:
		r.Err = err
		r.ExitCode = -1
	}
	return r
}

var defaultSrunArgs = []string{"--exclusive", "-N1", "-n1"}

// SrunRunner runs each step as an exclusive job step of the batch allocation:
// srun --exclusive -N1 -n1 <argv>. With a node pool every step is pinned to a
// node no other step is using.
type SrunRunner struct {
	Srun  string   // srun binary, "srun" if empty
	Args  []string // job step options, --exclusive -N1 -n1 if nil
	Nodes *nodes.Pool
	Exec  ExecRunner
}

func (s SrunRunner) Run(ctx context.Context, step Step) Result {
	srun := s.Srun
	if srun == "" {
		srun = "srun"
	}
	args := s.Args
	if args == nil {
		args = defaultSrunArgs
	}

	argv := append([]string{srun}, args...)

	var node string
	if s.Nodes != nil {
		var err error
		node, err = s.Nodes.Acquire(ctx)
		if err != nil {
			return Result{Step: step, Start: time.Now(), Err: err, ExitCode: -1}
		}
		defer s.Nodes.Release(node)
		argv = append(argv, "-w", node)
	}
	argv = append(argv, step.Argv...)

	wrapped := step
	wrapped.Argv = argv
	r := s.Exec.Run(ctx, wrapped)
	r.Step = step
	// srun picks the node unless it was pinned, and it is not the local host
	r.Node = node
	return r
}

var host string

func init() {
	host, _ = os.Hostname()
}

func hostname() string {
	return host
}
