package config

import (
	"flag"
)

var (
	JobName    = flag.String("job-name", "hpcsim", "batch job name")
	Partition  = flag.String("partition", "", "resource class (partition) to submit to")
	TimeLimit  = flag.String("time", "01:00:00", "wall-clock time limit")
	NTasks     = flag.Int("ntasks", 1, "number of tasks to allocate")
	Nodes      = flag.Int("nodes", 0, "number of nodes to allocate, 0 lets the scheduler decide")
	JobLog     = flag.String("job-log", "", "scheduler log file for the job")
	Script     = flag.String("script", "", "where to write the batch script, <job-name>.sbatch if empty")
	Launcher   = flag.String("launcher", "launcher", "launcher binary the batch script calls")
	SbatchPath = flag.String("sbatch", "sbatch", "path of the sbatch binary")
	DryRun     = flag.Bool("dry-run", false, "print the batch script instead of submitting it")
)
