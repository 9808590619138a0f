package sim

import (
	"bytes"
	"context"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Vincent-lau/hpcsim/internal/launcher"
)

// RunSequential simulates seeds 0..runs-1 one after another and exports each
// result under dir.
func RunSequential(ctx context.Context, runs, steps int, dir string) error {
	for seed := 0; seed < runs; seed++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s := NewOneSim(seed)
		s.Simulate(steps)
		if err := s.ExportResults(dir); err != nil {
			return err
		}
	}
	return nil
}

// Runner runs the step's sequence value as a seed in process. The exported
// row is also the step's output.
func Runner(steps int, dir string) launcher.Runner {
	return launcher.RunnerFunc(func(ctx context.Context, step launcher.Step) launcher.Result {
		r := launcher.Result{
			Step:  step,
			Start: time.Now(),
		}
		s := NewOneSim(step.Seq)
		s.Simulate(steps)

		var buf bytes.Buffer
		if err := s.WriteCSV(&buf); err != nil {
			r.Err = err
		} else if dir != "" {
			r.Err = s.ExportResults(dir)
		}
		if r.Err != nil {
			r.ExitCode = 1
		}
		r.Stdout = buf.Bytes()
		r.Duration = time.Since(r.Start)
		return r
	})
}

// RunParallel simulates seeds 0..runs-1 on jobs workers, exporting each result
// under dir. Rows are appended to sink as they finish; sink may be nil.
func RunParallel(ctx context.Context, runs, steps int, dir string, jobs int, sink io.Writer) (launcher.Summary, error) {
	if sink == nil {
		sink = io.Discard
	}
	cfg := launcher.Config{
		First: 0,
		Last:  runs - 1,
		Jobs:  jobs,
	}
	l := launcher.New(cfg, Runner(steps, dir), sink)

	sum, err := l.Run(ctx)
	if err == nil && sum.Failed > 0 {
		log.WithFields(log.Fields{
			"failed": sum.Failed,
		}).Warn("some simulations failed")
	}
	return sum, err
}
