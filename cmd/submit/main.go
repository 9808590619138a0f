// Command submit writes the batch script of a pipeline and queues it:
//
//	submit -job-name hpcsim -partition batch -time 01:00:00 -ntasks 15 \
//		-runs 15 -output file.csv -- python RunSimOnCluster.py {}
package main

import (
	"context"
	"flag"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Vincent-lau/hpcsim/internal/batch"
	config "github.com/Vincent-lau/hpcsim/internal/configs"
)

func main() {
	flag.Parse()
	config.InitLog()

	if flag.NArg() == 0 {
		log.Fatal("no command template given, usage: submit [flags] -- command {}")
	}

	script := batch.Script{
		Directives: batch.Directives{
			JobName:   *config.JobName,
			Partition: *config.Partition,
			Time:      *config.TimeLimit,
			NTasks:    *config.NTasks,
			Nodes:     *config.Nodes,
			Output:    *config.JobLog,
		},
		Body: batch.LauncherBody(*config.Launcher, batch.LaunchArgs{
			First:     *config.First,
			Runs:      *config.Runs,
			Output:    *config.Output,
			Wrapper:   *config.Wrapper,
			KeepOrder: *config.KeepOrder,
			Flags:     []string{"-mode", *config.Mode},
			Template:  flag.Args(),
		}),
	}

	if *config.DryRun {
		if err := script.Render(os.Stdout); err != nil {
			log.WithFields(log.Fields{
				"error": err,
			}).Fatal("cannot render batch script")
		}
		return
	}

	path := *config.Script
	if path == "" {
		path = *config.JobName + ".sbatch"
	}
	if err := script.WriteFile(path); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("cannot write batch script")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	id, err := batch.Submit(ctx, *config.SbatchPath, path)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("submission failed")
	}
	log.WithFields(log.Fields{
		"job id": id,
	}).Info("submitted")
}
