package nodes

import (
	"context"
	"errors"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	log "github.com/sirupsen/logrus"
)

var ErrPoolClosed = errors.New("node pool closed")

const acquirePoll = 50 * time.Millisecond

// Pool hands out nodes exclusively: a node that has been acquired is not
// handed out again until it is released.
type Pool struct {
	free  *queue.Queue
	nodes []string
}

func NewPool(nodes []string) *Pool {
	p := &Pool{
		free:  queue.New(int64(len(nodes))),
		nodes: nodes,
	}
	for _, n := range nodes {
		if err := p.free.Put(n); err != nil {
			log.WithFields(log.Fields{
				"error": err,
				"node":  n,
			}).Error("failed to put node into pool")
		}
	}
	return p
}

// Acquire blocks until a node is free, the context is done or the pool is
// closed.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		items, err := p.free.Poll(1, acquirePoll)
		switch {
		case err == nil:
			return items[0].(string), nil
		case errors.Is(err, queue.ErrTimeout):
			continue
		case errors.Is(err, queue.ErrDisposed):
			return "", ErrPoolClosed
		default:
			return "", err
		}
	}
}

func (p *Pool) Release(node string) {
	if err := p.free.Put(node); err != nil && !errors.Is(err, queue.ErrDisposed) {
		log.WithFields(log.Fields{
			"error": err,
			"node":  node,
		}).Warn("cannot put node back into pool")
	}
}

// Nodes returns every node of the pool, free or not.
func (p *Pool) Nodes() []string {
	return p.nodes
}

// Free returns the number of nodes not currently acquired.
func (p *Pool) Free() int {
	return int(p.free.Len())
}

func (p *Pool) Close() {
	p.free.Dispose()
}
