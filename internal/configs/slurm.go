package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Slurm is the part of the batch scheduler's environment the launcher reads.
type Slurm struct {
	JobID    string `env:"SLURM_JOB_ID"`
	JobName  string `env:"SLURM_JOB_NAME"`
	NTasks   int    `env:"SLURM_NTASKS"`
	NodeList string `env:"SLURM_JOB_NODELIST"`
}

// InAllocation reports whether the process runs inside a batch allocation.
func (s Slurm) InAllocation() bool {
	return s.JobID != ""
}

// LoadSlurm reads the scheduler environment, loading a .env file first if one
// exists.
func LoadSlurm() (Slurm, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using the process environment")
	}

	var s Slurm
	if err := env.Parse(&s); err != nil {
		return Slurm{}, fmt.Errorf("parse slurm environment: %w", err)
	}
	return s, nil
}

func loadSlurmFrom(environ map[string]string) (Slurm, error) {
	var s Slurm
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return Slurm{}, fmt.Errorf("parse slurm environment: %w", err)
	}
	return s, nil
}
