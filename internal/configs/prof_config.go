package config

import (
	"flag"
)

var (
	CpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	Trace      = flag.String("trace", "", "write execution trace to file")
)
