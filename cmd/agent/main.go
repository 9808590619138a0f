// Command agent runs job steps for the launcher on the node it is started on,
// one step at a time.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/Vincent-lau/hpcsim/internal/agent"
	config "github.com/Vincent-lau/hpcsim/internal/configs"
	"github.com/Vincent-lau/hpcsim/internal/launcher"
	"github.com/Vincent-lau/hpcsim/internal/metrics"
)

func main() {
	flag.Parse()
	config.InitLog()

	node, err := os.Hostname()
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("cannot get hostname")
	}
	// NODE_NAME is set from the downward api when the agent runs as a pod
	if n := os.Getenv("NODE_NAME"); n != "" {
		node = n
	}

	if *config.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(*config.MetricsAddr); err != nil {
				log.WithFields(log.Fields{
					"error": err,
				}).Error("metrics server stopped")
			}
		}()
	}

	lis, err := net.Listen("tcp", ":"+*config.Port)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("failed to listen")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := agent.NewServer(node, launcher.ExecRunner{})
	if err := srv.Serve(ctx, lis); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("failed to serve")
	}
}
