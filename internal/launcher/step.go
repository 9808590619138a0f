package launcher

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyCommand = errors.New("empty command")

// Step is one invocation of the command template.
type Step struct {
	Seq    int      // value of the sequence
	JobNum int      // 1-based position among the launched steps
	Slot   int      // 1-based worker slot the step runs in
	Argv   []string // template with markers substituted
}

type Result struct {
	Step     Step
	Node     string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Start    time.Time
	Duration time.Duration
	Err      error
}

func (r *Result) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

type Runner interface {
	Run(ctx context.Context, step Step) Result
}

type RunnerFunc func(ctx context.Context, step Step) Result

func (f RunnerFunc) Run(ctx context.Context, step Step) Result {
	return f(ctx, step)
}

// Observer is told about every gathered result, in the order results are
// gathered. Observe is never called concurrently.
type Observer interface {
	Observe(r Result) error
}

type Summary struct {
	Launched  int
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}
