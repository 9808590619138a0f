package ledger

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Vincent-lau/hpcsim/internal/launcher"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndCompleted(t *testing.T) {
	l := openLedger(t)
	launch := uuid.New()

	ok := launcher.Result{Step: launcher.Step{Seq: 1}, Node: "node01", Start: time.Now(), Duration: time.Second}
	failed := launcher.Result{Step: launcher.Step{Seq: 2}, ExitCode: 1}
	broken := launcher.Result{Step: launcher.Step{Seq: 3}, ExitCode: -1, Err: errors.New("no such file")}

	for _, r := range []launcher.Result{ok, failed, broken} {
		require.NoError(t, l.Record(launch, "sim {}", r))
	}
	require.NoError(t, l.Record(uuid.New(), "other {}", launcher.Result{Step: launcher.Step{Seq: 2}}))

	done, err := l.Completed("sim {}")
	require.NoError(t, err)
	require.Equal(t, map[int]bool{1: true}, done)

	recs, err := l.Launch(launch)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, StepCompleted, recs[0].Status)
	require.Equal(t, "node01", recs[0].Node)
	require.Equal(t, time.Second, recs[0].Duration)
	require.Equal(t, StepFailed, recs[1].Status)
	require.False(t, recs[1].Error.Valid)
	require.Equal(t, "no such file", recs[2].Error.String)
}

func TestResume(t *testing.T) {
	l := openLedger(t)
	template := []string{"python", "RunSimOnCluster.py", "{}"}
	command := launcher.CommandKey(template)

	calls := map[int]int{}
	runner := launcher.RunnerFunc(func(ctx context.Context, step launcher.Step) launcher.Result {
		calls[step.Seq]++
		r := launcher.Result{Step: step}
		// odd values fail the first time
		if step.Seq%2 == 1 && calls[step.Seq] == 1 {
			r.ExitCode = 1
		}
		return r
	})

	run := func() launcher.Summary {
		done, err := l.Completed(command)
		require.NoError(t, err)
		cfg := launcher.Config{First: 1, Last: 6, Jobs: 1, Template: template, Skip: done}
		id := uuid.New()
		lr := launcher.New(cfg, runner, &bytes.Buffer{},
			launcher.WithID(id), launcher.WithObserver(l.Observer(id, command)))
		sum, err := lr.Run(context.Background())
		require.NoError(t, err)
		return sum
	}

	first := run()
	require.Equal(t, 6, first.Launched)
	require.Equal(t, 3, first.Failed)

	second := run()
	require.Equal(t, 3, second.Launched)
	require.Equal(t, 3, second.Skipped)
	require.Zero(t, second.Failed)

	for seq := 1; seq <= 6; seq++ {
		want := 1
		if seq%2 == 1 {
			want = 2
		}
		require.Equal(t, want, calls[seq], "seq %d", seq)
	}
}
