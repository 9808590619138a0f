package config

import (
	"flag"
)

var (
	/* sequence */
	First = flag.Int("first", 1, "first value of the run sequence")
	Runs  = flag.Int("runs", 15, "number of runs, the sequence is first..first+runs-1")

	/* fan-out */
	Jobs      = flag.Int("j", 0, "number of steps to run at once, 0 means SLURM_NTASKS or the cpu count")
	KeepOrder = flag.Bool("keep-order", false, "append outputs in sequence order instead of completion order")
	Progress  = flag.Bool("progress", false, "show a progress bar on stderr")

	/* output */
	Output = flag.String("output", "", "csv file to append step output to, stdout if empty")
	Upload = flag.String("upload", "", "s3://bucket/key to upload the output file to when done")

	/* job steps */
	Wrapper  = flag.String("wrapper", "srun", "how to run a step: local, srun or agent")
	SrunPath = flag.String("srun", "srun", "path of the srun binary")
	PinNodes = flag.Bool("pin-nodes", false, "place each srun step on a free node from SLURM_JOB_NODELIST")
	NodeFile = flag.String("nodefile", "", "file listing nodes, one per line, overrides SLURM_JOB_NODELIST")

	/* ledger */
	Ledger = flag.String("ledger", "", "sqlite file recording every step")
	Resume = flag.Bool("resume", false, "skip sequence values that completed in the ledger")

	/* metrics */
	MetricsAddr = flag.String("metrics-addr", "", "address to serve prometheus metrics on")
)
