package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestLoadSlurmFrom(t *testing.T) {
	s, err := loadSlurmFrom(map[string]string{
		"SLURM_JOB_ID":       "49229449",
		"SLURM_NTASKS":       "8",
		"SLURM_JOB_NODELIST": "node[01-02]",
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.NTasks != 8 {
		t.Fatalf(`NTasks = %d, want 8`, s.NTasks)
	}
	if s.NodeList != "node[01-02]" {
		t.Fatalf(`NodeList = %q, want "node[01-02]"`, s.NodeList)
	}
	if !s.InAllocation() {
		t.Fatal("expected to be in an allocation")
	}
}

func TestLoadSlurmFromBadTasks(t *testing.T) {
	if _, err := loadSlurmFrom(map[string]string{"SLURM_NTASKS": "many"}); err == nil {
		t.Fatal("expected an error for a non-numeric task count")
	}
}

func TestDefaultJobs(t *testing.T) {
	if got := DefaultJobs(Slurm{NTasks: 12}); got != 12 {
		t.Fatalf(`DefaultJobs = %d, want 12`, got)
	}

	dir := t.TempDir()
	cpuInfoPath = filepath.Join(dir, "cpuinfo")
	defer func() { cpuInfoPath = "/proc/cpuinfo" }()

	info := "processor : 0\nmodel name : test\n\nprocessor : 1\nmodel name : test\n\nprocessor : 2\nmodel name : test\n\n"
	if err := os.WriteFile(cpuInfoPath, []byte(info), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DefaultJobs(Slurm{}); got != 3 {
		t.Fatalf(`DefaultJobs = %d, want 3`, got)
	}

	cpuInfoPath = filepath.Join(dir, "missing")
	if got := DefaultJobs(Slurm{}); got != runtime.NumCPU() {
		t.Fatalf(`DefaultJobs = %d, want %d`, got, runtime.NumCPU())
	}
}

func TestReadNodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes")
	content := "# allocated nodes\nnode01\n\nnode02 slots=4\n  node03  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	nodes, err := ReadNodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ans := []string{"node01", "node02", "node03"}
	if len(nodes) != len(ans) {
		t.Fatalf(`len(nodes) = %d, want %d`, len(nodes), len(ans))
	}
	for i := range ans {
		if nodes[i] != ans[i] {
			t.Fatalf(`nodes[%d] = %q, want %q`, i, nodes[i], ans[i])
		}
	}
}

func TestSetupLog(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	if err := setupLog("DEV"); err != nil {
		t.Fatal(err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf(`level = %v, want debug`, log.GetLevel())
	}
	if err := setupLog("PROD"); err != nil {
		t.Fatal(err)
	}
	if _, ok := log.StandardLogger().Formatter.(*log.JSONFormatter); !ok {
		t.Fatal("expected json formatter in PROD")
	}
	if err := setupLog("STAGING"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
	log.SetFormatter(&log.TextFormatter{})
}

func TestParseSimMode(t *testing.T) {
	for s, want := range map[string]SimMode{
		"one":        One,
		"sequential": Sequential,
		"parallel":   Parallel,
		"multi":      Multi,
	} {
		got, err := ParseSimMode(s)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf(`ParseSimMode(%q) = %v, want %v`, s, got, want)
		}
	}
	if _, err := ParseSimMode("batch"); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}
