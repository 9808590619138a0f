package launcher

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Vincent-lau/hpcsim/internal/metrics"
)

const pollTimeout = 10 * time.Millisecond

type Config struct {
	First     int
	Last      int
	Jobs      int
	Template  []string
	KeepOrder bool

	// sequence values that are not launched, e.g. completed in an earlier run
	Skip map[int]bool
}

type Option func(*Launcher)

func WithObserver(o Observer) Option {
	return func(l *Launcher) {
		l.observers = append(l.observers, o)
	}
}

// WithProgress draws a progress bar on w.
func WithProgress(w io.Writer) Option {
	return func(l *Launcher) {
		l.progress = w
	}
}

func WithID(id uuid.UUID) Option {
	return func(l *Launcher) {
		l.id = id
	}
}

type Launcher struct {
	cfg       Config
	runner    Runner
	sink      io.Writer
	observers []Observer
	progress  io.Writer
	id        uuid.UUID
	logger    *log.Entry
}

// New creates a launcher. It panics if cfg.Jobs is not positive; callers
// resolve a default degree beforehand.
func New(cfg Config, runner Runner, sink io.Writer, opts ...Option) *Launcher {
	if cfg.Jobs <= 0 {
		panic("launcher: jobs must be positive")
	}
	if runner == nil {
		panic("launcher: runner must be non-nil")
	}
	l := &Launcher{
		cfg:    cfg,
		runner: runner,
		sink:   sink,
		id:     uuid.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = log.WithFields(log.Fields{
		"prefix": "launcher",
		"launch": l.id,
	})
	return l
}

func (l *Launcher) ID() uuid.UUID {
	return l.id
}

// Run launches one step per sequence value and gathers every result before
// returning. If ctx is canceled no further steps are launched, running steps
// see the canceled context, and Run returns ctx.Err() once they are gathered.
func (l *Launcher) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary

	q := queue.New(int64(max(l.cfg.Last-l.cfg.First+1, 1)))
	defer q.Dispose()

	total := 0
	for s := l.cfg.First; s <= l.cfg.Last; s++ {
		if l.cfg.Skip[s] {
			sum.Skipped++
			continue
		}
		total++
		if err := q.Put(Step{Seq: s, JobNum: total}); err != nil {
			return sum, err
		}
	}

	l.logger.WithFields(log.Fields{
		"first":   l.cfg.First,
		"last":    l.cfg.Last,
		"steps":   total,
		"skipped": sum.Skipped,
		"jobs":    l.cfg.Jobs,
	}).Info("launching steps")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Result)
	var wg sync.WaitGroup
	for slot := 1; slot <= min(l.cfg.Jobs, total); slot++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			l.work(runCtx, slot, q, results)
		}(slot)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	bar := newProgress(l.progress, total)
	g := newGatherer(l.sink, l.cfg.KeepOrder)

	var sinkErr error
	for r := range results {
		sum.Launched++
		l.account(&sum, &r)

		if sinkErr == nil {
			if err := g.add(r); err != nil {
				sinkErr = err
				cancel()
			}
		}
		for _, o := range l.observers {
			if err := o.Observe(r); err != nil {
				l.logger.WithFields(log.Fields{
					"seq":   r.Step.Seq,
					"error": err,
				}).Warn("observer failed")
			}
		}
		bar.Add(1)
	}
	if sinkErr == nil {
		sinkErr = g.flush()
	}
	if sum.Launched == total {
		bar.Finish()
	}

	sum.Elapsed = time.Since(start)
	metrics.PipelineDuration.Set(sum.Elapsed.Seconds())

	l.logger.WithFields(log.Fields{
		"launched":  sum.Launched,
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
		"skipped":   sum.Skipped,
		"elapsed":   sum.Elapsed,
	}).Info("all steps gathered")

	if sinkErr != nil {
		return sum, sinkErr
	}
	return sum, ctx.Err()
}

func (l *Launcher) work(ctx context.Context, slot int, q *queue.Queue, results chan<- Result) {
	for {
		if ctx.Err() != nil {
			return
		}
		// all steps are queued up front, so an empty queue means done
		items, err := q.Poll(1, pollTimeout)
		if err != nil {
			if !errors.Is(err, queue.ErrTimeout) && !errors.Is(err, queue.ErrDisposed) {
				l.logger.WithFields(log.Fields{
					"slot":  slot,
					"error": err,
				}).Error("cannot take step from queue")
			}
			return
		}

		step := items[0].(Step)
		step.Slot = slot
		step.Argv = Expand(l.cfg.Template, step)

		l.logger.WithFields(log.Fields{
			"seq":  step.Seq,
			"slot": slot,
			"argv": step.Argv,
		}).Debug("starting step")

		metrics.StepsInFlight.Inc()
		r := l.runner.Run(ctx, step)
		metrics.StepsInFlight.Dec()

		r.Step = step
		results <- r
	}
}

func (l *Launcher) account(sum *Summary, r *Result) {
	metrics.StepLatency.Observe(r.Duration.Seconds())

	if !r.Failed() {
		sum.Succeeded++
		metrics.StepsCompleted.Inc()
		return
	}

	sum.Failed++
	metrics.StepsFailed.Inc()

	fields := log.Fields{
		"seq":       r.Step.Seq,
		"node":      r.Node,
		"exit code": r.ExitCode,
		"stderr":    string(r.Stderr),
	}
	if r.Err != nil {
		fields["error"] = r.Err
	}
	l.logger.WithFields(fields).Warn("step failed")
}
