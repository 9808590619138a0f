package launcher

import (
	"fmt"
	"io"

	"github.com/gammazero/deque"
)

// gatherer appends step output to the sink. With keepOrder it holds back
// results until every earlier job number has been written.
type gatherer struct {
	w         io.Writer
	keepOrder bool
	next      int
	pending   deque.Deque[*Result]
}

func newGatherer(w io.Writer, keepOrder bool) *gatherer {
	return &gatherer{
		w:         w,
		keepOrder: keepOrder,
		next:      1,
	}
}

func (g *gatherer) add(r Result) error {
	if !g.keepOrder {
		return g.write(&r)
	}

	idx := r.Step.JobNum - g.next
	if idx < 0 {
		return fmt.Errorf("job %d gathered twice", r.Step.JobNum)
	}
	for g.pending.Len() <= idx {
		g.pending.PushBack(nil)
	}
	g.pending.Set(idx, &r)

	for g.pending.Len() > 0 && g.pending.Front() != nil {
		if err := g.write(g.pending.PopFront()); err != nil {
			return err
		}
		g.next++
	}
	return nil
}

// flush writes results still held back, in order, skipping the gaps left by
// steps that never ran.
func (g *gatherer) flush() error {
	for g.pending.Len() > 0 {
		r := g.pending.PopFront()
		g.next++
		if r == nil {
			continue
		}
		if err := g.write(r); err != nil {
			return err
		}
	}
	return nil
}

func (g *gatherer) held() int {
	n := 0
	for i := 0; i < g.pending.Len(); i++ {
		if g.pending.At(i) != nil {
			n++
		}
	}
	return n
}

func (g *gatherer) write(r *Result) error {
	if len(r.Stdout) == 0 {
		return nil
	}
	if _, err := g.w.Write(r.Stdout); err != nil {
		return fmt.Errorf("append output of step %d: %w", r.Step.Seq, err)
	}
	return nil
}
