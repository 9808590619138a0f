package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Vincent-lau/hpcsim/internal/agent"
	config "github.com/Vincent-lau/hpcsim/internal/configs"
	"github.com/Vincent-lau/hpcsim/internal/launcher"
	"github.com/Vincent-lau/hpcsim/internal/nodes"
)

func newRunner(ctx context.Context, slurm config.Slurm) (launcher.Runner, func(), error) {
	switch *config.Wrapper {
	case "local":
		return launcher.ExecRunner{}, func() {}, nil

	case "srun":
		if !slurm.InAllocation() {
			log.Warn("not inside a batch allocation, srun will request one per step")
		}
		r := launcher.SrunRunner{Srun: *config.SrunPath}
		if !*config.PinNodes {
			return r, func() {}, nil
		}
		list, err := allocatedNodes(*config.NodeFile, slurm)
		if err != nil {
			return nil, nil, err
		}
		r.Nodes = nodes.NewPool(list)
		return r, r.Nodes.Close, nil

	case "agent":
		addrs, err := agentAddrs(ctx)
		if err != nil {
			return nil, nil, err
		}
		r, err := agent.Dial(addrs)
		if err != nil {
			return nil, nil, err
		}
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, nil, err
		}
		return r, func() {
			if err := r.Close(); err != nil {
				log.WithFields(log.Fields{
					"error": err,
				}).Warn("error closing agent connections")
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown wrapper %q", *config.Wrapper)
}

// allocatedNodes lists the nodes named by nodeFile, or else by the
// allocation's node list.
func allocatedNodes(nodeFile string, slurm config.Slurm) ([]string, error) {
	var list []string
	var err error
	if nodeFile != "" {
		list, err = config.ReadNodeFile(nodeFile)
	} else {
		list, err = nodes.ExpandHostlist(slurm.NodeList)
	}
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no nodes to pin steps to")
	}
	return list, nil
}

func agentAddrs(ctx context.Context) ([]string, error) {
	if !*config.Discover {
		var addrs []string
		for _, a := range strings.Split(*config.Agents, ",") {
			if a = strings.TrimSpace(a); a != "" {
				addrs = append(addrs, a)
			}
		}
		return addrs, nil
	}

	port, err := strconv.Atoi(*config.Port)
	if err != nil {
		return nil, fmt.Errorf("bad agent port: %w", err)
	}
	clientset, err := nodes.InClusterClient()
	if err != nil {
		return nil, err
	}
	return nodes.DiscoverAgents(ctx, clientset, *config.AgentNamespace, *config.AgentSelector, port)
}
