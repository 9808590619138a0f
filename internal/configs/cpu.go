package config

import (
	"runtime"

	linuxproc "github.com/c9s/goprocinfo/linux"
	log "github.com/sirupsen/logrus"
)

var cpuInfoPath = "/proc/cpuinfo"

// DefaultJobs is the concurrency degree used when none is given: the task
// count of the allocation, else the number of processors.
func DefaultJobs(s Slurm) int {
	if s.NTasks > 0 {
		return s.NTasks
	}
	return CPUCount()
}

func CPUCount() int {
	info, err := linuxproc.ReadCPUInfo(cpuInfoPath)
	if err != nil || len(info.Processors) == 0 {
		log.WithFields(log.Fields{
			"error": err,
			"path":  cpuInfoPath,
		}).Debug("cannot read cpu info, falling back to runtime")
		return runtime.NumCPU()
	}
	return len(info.Processors)
}
