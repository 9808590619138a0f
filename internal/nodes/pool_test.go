package nodes

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolExclusive(t *testing.T) {
	pool := NewPool([]string{"node01", "node02"})
	defer pool.Close()

	var mu sync.Mutex
	busy := make(map[string]bool)
	var maxBusy, cur atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			node, err := pool.Acquire(context.Background())
			if err != nil {
				t.Error(err)
				return
			}

			mu.Lock()
			if busy[node] {
				t.Errorf("node %s handed out twice", node)
			}
			busy[node] = true
			mu.Unlock()

			n := cur.Add(1)
			for {
				m := maxBusy.Load()
				if n <= m || maxBusy.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)

			mu.Lock()
			busy[node] = false
			mu.Unlock()
			pool.Release(node)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, maxBusy.Load(), int32(2))
	require.Equal(t, 2, pool.Free())
}

func TestPoolAcquireCanceled(t *testing.T) {
	pool := NewPool([]string{"node01"})
	defer pool.Close()

	node, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, "node01", node)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPoolClosed(t *testing.T) {
	pool := NewPool([]string{"node01"})
	_, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	pool.Close()

	select {
	case err := <-done:
		require.True(t, errors.Is(err, ErrPoolClosed))
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire did not return after Close")
	}

	require.NotPanics(t, func() { pool.Release("node01") })
}
