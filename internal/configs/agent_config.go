package config

import (
	"flag"
)

var (
	Port   = flag.String("port", "50051", "The agent port")
	Agents = flag.String("agents", "", "comma separated agent addresses")

	// discover agents from the pods of the agent daemonset instead
	Discover       = flag.Bool("discover", false, "discover agents from kubernetes")
	AgentNamespace = flag.String("agent-namespace", "hpcsim", "namespace of the agent pods")
	AgentSelector  = flag.String("agent-selector", "app=hpcsim-agent", "label selector of the agent pods")
)
