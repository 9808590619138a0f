// Command onesim is the simulation program. In the default mode it runs the
// seed given as its only argument and prints "seed,sum", which is what a
// launcher step appends to the output csv:
//
//	onesim -steps 10000 7
//
// The sequential, parallel and multi modes run seeds 0..sim-runs-1 on their
// own and export the results under -results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/Vincent-lau/hpcsim/internal/configs"
	"github.com/Vincent-lau/hpcsim/internal/sim"
)

func main() {
	flag.Parse()
	config.InitLog()

	mode, err := config.GetSimMode()
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("bad simulation mode")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if mode == config.One {
		runOne()
		return
	}

	t0 := time.Now()
	switch mode {
	case config.Sequential:
		err = sim.RunSequential(ctx, *config.SimRuns, *config.Steps, *config.Results)
	case config.Parallel:
		jobs := *config.Jobs
		if jobs <= 0 {
			jobs = config.CPUCount()
		}
		_, err = sim.RunParallel(ctx, *config.SimRuns, *config.Steps, *config.Results, jobs, nil)
	case config.Multi:
		var m sim.MultiSim
		sum := m.Simulate(*config.Steps, *config.SimRuns)
		fmt.Println(sum.Mean)
		err = m.ExportResults(*config.Results)
	}
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("simulation failed")
	}

	fmt.Printf("Time = %v\n", time.Since(t0).Seconds())
}

func runOne() {
	if flag.NArg() != 1 {
		log.Fatal("usage: onesim [flags] seed")
	}
	seed, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"seed":  flag.Arg(0),
		}).Fatal("seed must be an integer")
	}

	s := sim.NewOneSim(seed)
	s.Simulate(*config.Steps)
	if err := s.WriteCSV(os.Stdout); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("cannot write result")
	}
}
