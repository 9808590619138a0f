// Package sim is the simulation program the launcher fans out: a seeded sum of
// uniform and Beta(1, 2) variates, together with the drivers that run many
// seeds sequentially or in parallel.
package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// OneSim is one simulation. The same seed always yields the same sum.
type OneSim struct {
	Seed int
	Sum  float64
}

func NewOneSim(seed int) *OneSim {
	return &OneSim{Seed: seed}
}

// Simulate draws nSteps pairs from a generator seeded with Seed and sets Sum to
// the total of U(0,1) + Beta(1,2) over all pairs.
func (s *OneSim) Simulate(nSteps int) {
	rng := rand.New(rand.NewSource(uint64(s.Seed)))
	beta := distuv.Beta{
		Alpha: 1,
		Beta:  2,
		Src:   rng,
	}

	s.Sum = 0
	for i := 0; i < nSteps; i++ {
		s.Sum += rng.Float64() + beta.Rand()
	}
}

func (s *OneSim) Row() []string {
	return []string{
		strconv.Itoa(s.Seed),
		strconv.FormatFloat(s.Sum, 'f', -1, 64),
	}
}

// WriteCSV writes the result as a single csv row.
func (s *OneSim) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Row()); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (s *OneSim) FileName() string {
	return fmt.Sprintf("Seed %d.csv", s.Seed)
}

// ExportResults writes the result to "Seed <seed>.csv" under dir, creating dir
// if needed.
func (s *OneSim) ExportResults(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, s.FileName()))
	if err != nil {
		return fmt.Errorf("export seed %d: %w", s.Seed, err)
	}
	if err := s.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("export seed %d: %w", s.Seed, err)
	}
	return f.Close()
}
