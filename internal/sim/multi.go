package sim

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type Summary struct {
	N      int
	Mean   float64
	StdDev float64
	// bounds of the 95% confidence interval of the mean
	CILow  float64
	CIHigh float64
}

func Summarize(obs []float64) Summary {
	s := Summary{N: len(obs)}
	if s.N == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(obs, nil)
	if s.N < 2 {
		s.StdDev = 0
		s.CILow, s.CIHigh = s.Mean, s.Mean
		return s
	}

	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(s.N - 1)}
	half := t.Quantile(0.975) * s.StdDev / math.Sqrt(float64(s.N))
	s.CILow, s.CIHigh = s.Mean-half, s.Mean+half
	return s
}

// MultiSim runs seeds 0..n-1 one after another and keeps their sums.
type MultiSim struct {
	Obs []float64
}

func (m *MultiSim) Simulate(nSteps, nIterations int) Summary {
	m.Obs = m.Obs[:0]
	for seed := 0; seed < nIterations; seed++ {
		s := NewOneSim(seed)
		s.Simulate(nSteps)
		m.Obs = append(m.Obs, s.Sum)
	}

	sum := Summarize(m.Obs)
	log.WithFields(log.Fields{
		"runs":    sum.N,
		"mean":    sum.Mean,
		"std dev": sum.StdDev,
	}).Info("simulated")
	return sum
}

// ExportResults writes one row per observation to results.csv under dir.
func (m *MultiSim) ExportResults(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "results.csv"))
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	for _, o := range m.Obs {
		if err := cw.Write([]string{strconv.FormatFloat(o, 'f', -1, 64)}); err != nil {
			return fmt.Errorf("export results: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	return f.Close()
}
