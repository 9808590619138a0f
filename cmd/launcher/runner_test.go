package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	config "github.com/Vincent-lau/hpcsim/internal/configs"
)

func TestAllocatedNodesFromNodeList(t *testing.T) {
	list, err := allocatedNodes("", config.Slurm{NodeList: "node[01-03]"})
	require.NoError(t, err)
	require.Equal(t, []string{"node01", "node02", "node03"}, list)
}

func TestAllocatedNodesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes")
	require.NoError(t, os.WriteFile(path, []byte("# allocation\nnode07 slots=4\nnode09\n"), 0o644))

	list, err := allocatedNodes(path, config.Slurm{NodeList: "ignored[1-2]"})
	require.NoError(t, err)
	require.Equal(t, []string{"node07", "node09"}, list)
}

func TestAllocatedNodesEmpty(t *testing.T) {
	_, err := allocatedNodes("", config.Slurm{})
	require.Error(t, err)
}
