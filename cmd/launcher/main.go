// Command launcher runs one job step per value of 1..runs with at most -j
// steps at a time and appends their output to a csv file:
//
//	launcher -runs 15 -output file.csv -- python RunSimOnCluster.py {}
//
// is the batch job body seq 1 15 | parallel -j$SLURM_NTASKS "srun --exclusive
// -N1 -n1 python RunSimOnCluster.py {}" >> file.csv, timed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	config "github.com/Vincent-lau/hpcsim/internal/configs"
	"github.com/Vincent-lau/hpcsim/internal/launcher"
	"github.com/Vincent-lau/hpcsim/internal/ledger"
	"github.com/Vincent-lau/hpcsim/internal/metrics"
	"github.com/Vincent-lau/hpcsim/internal/storage"
	"github.com/Vincent-lau/hpcsim/util"
)

// exit status is the number of failed steps, capped like GNU parallel
const maxFailedStatus = 101

var errNoTemplate = errors.New("empty command template")

func main() {
	start := time.Now()
	flag.Parse()
	config.InitLog()

	code := run(start)
	fmt.Fprint(os.Stderr, timeLine(time.Since(start)))
	os.Exit(code)
}

// timeLine is the wall-clock report printed when the pipeline ends.
func timeLine(elapsed time.Duration) string {
	return fmt.Sprintf("Time = %.3f\n", max(elapsed, 0).Seconds())
}

// setupFailed logs err and returns the exit status of a launch that could not
// start. run returns it instead of exiting so deferred cleanup still happens.
func setupFailed(msg string, err error, fields log.Fields) int {
	log.WithFields(fields).WithFields(log.Fields{
		"error": err,
	}).Error(msg)
	return 1
}

func run(start time.Time) int {
	template := flag.Args()
	if len(template) == 0 {
		return setupFailed("no command template given, usage: launcher [flags] -- command {}", errNoTemplate, nil)
	}

	slurm, err := config.LoadSlurm()
	if err != nil {
		return setupFailed("bad scheduler environment", err, nil)
	}

	stopProfile, err := util.StartCPUProfile(*config.CpuProfile)
	if err != nil {
		return setupFailed("error starting cpu profile", err, nil)
	}
	defer stopProfile()
	stopTrace, err := util.StartTrace(*config.Trace)
	if err != nil {
		return setupFailed("error starting trace", err, nil)
	}
	defer stopTrace()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs := *config.Jobs
	if jobs <= 0 {
		jobs = config.DefaultJobs(slurm)
	}

	runner, closeRunner, err := newRunner(ctx, slurm)
	if err != nil {
		return setupFailed("cannot set up job steps", err, log.Fields{
			"wrapper": *config.Wrapper,
		})
	}
	defer closeRunner()

	if *config.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(*config.MetricsAddr); err != nil {
				log.WithFields(log.Fields{
					"error": err,
				}).Error("metrics server stopped")
			}
		}()
	}

	cfg := launcher.Config{
		First:     *config.First,
		Last:      *config.First + *config.Runs - 1,
		Jobs:      jobs,
		Template:  template,
		KeepOrder: *config.KeepOrder,
	}
	id := uuid.New()
	opts := []launcher.Option{launcher.WithID(id)}

	if *config.Ledger != "" {
		l, err := ledger.Open(*config.Ledger)
		if err != nil {
			return setupFailed("cannot open ledger", err, nil)
		}
		defer l.Close()

		command := launcher.CommandKey(template)
		if *config.Resume {
			if cfg.Skip, err = l.Completed(command); err != nil {
				return setupFailed("cannot resume", err, nil)
			}
		}
		opts = append(opts, launcher.WithObserver(l.Observer(id, command)))
	}
	if *config.Progress {
		opts = append(opts, launcher.WithProgress(os.Stderr))
	}

	sink, err := launcher.OpenSink(*config.Output)
	if err != nil {
		return setupFailed("cannot open output", err, nil)
	}

	log.WithFields(log.Fields{
		"slurm job": slurm.JobID,
		"launch":    id,
		"jobs":      jobs,
		"wrapper":   *config.Wrapper,
		"output":    *config.Output,
	}).Info("starting pipeline")

	sum, runErr := launcher.New(cfg, runner, sink, opts...).Run(ctx)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}

	log.WithFields(log.Fields{
		"launched":  sum.Launched,
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
		"skipped":   sum.Skipped,
		"pipeline":  time.Since(start),
	}).Info("pipeline finished")

	if runErr != nil {
		log.WithFields(log.Fields{
			"error": runErr,
		}).Error("pipeline did not complete")
		if errors.Is(runErr, context.Canceled) {
			return 130
		}
		return 1
	}

	if *config.Upload != "" && *config.Output != "" {
		if err := upload(*config.Output, *config.Upload); err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Error("upload failed")
			return 1
		}
	}

	return min(sum.Failed, maxFailedStatus)
}

func upload(path, dest string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := storage.LoadConfig()
	if err != nil {
		return err
	}
	u, err := storage.NewUploader(ctx, cfg)
	if err != nil {
		return err
	}
	return u.UploadFile(ctx, path, dest)
}
