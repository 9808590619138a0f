package config

import (
	"flag"
	"fmt"
)

type SimMode int

const (
	One SimMode = iota
	Sequential
	Parallel
	Multi
)

var (
	simMode = flag.String("sim-mode", "one", "one, sequential, parallel or multi")
	Steps   = flag.Int("steps", 10000, "number of steps per simulation")
	SimRuns = flag.Int("sim-runs", 100, "number of simulations for the sequential, parallel and multi modes")
	Results = flag.String("results", "Results", "directory simulation results are exported to")
)

func GetSimMode() (SimMode, error) {
	return ParseSimMode(*simMode)
}

func ParseSimMode(s string) (SimMode, error) {
	switch s {
	case "one":
		return One, nil
	case "sequential":
		return Sequential, nil
	case "parallel":
		return Parallel, nil
	case "multi":
		return Multi, nil
	}
	return One, fmt.Errorf("unknown simulation mode %q", s)
}
