package skyline

import (
	"container/heap"

	"skylinedb/pkg/common"
	"skylinedb/pkg/rtree"
)

// candidate is a pending item of the best-first traversal: either a node
// still to be expanded or an entry still to be tested.
type candidate interface {
	// corner is the best point the candidate can contain.
	corner() common.Point
}

type nodeCandidate struct {
	node *rtree.Node
}

func (c nodeCandidate) corner() common.Point {
	return c.node.MBR().LowerLeft()
}

type entryCandidate struct {
	entry common.Entry
}

func (c entryCandidate) corner() common.Point {
	return c.entry.Point
}

type item struct {
	cand candidate
	at   common.Point
	key  float64
	seq  uint64
}

// Compile time check to ensure worklist satisfies the heap interface.
var _ heap.Interface = (*worklist)(nil)

// worklist is a min-heap of candidates ordered by the coordinate sum of
// their corner. Equal sums fall back to the corner's x, then y, then push
// order, so a dominating point always leaves the heap before the points it
// dominates even when float rounding collapses their sums.
type worklist struct {
	items []item
	seq   uint64
}

func (w *worklist) Len() int { return len(w.items) }

func (w *worklist) Less(i, j int) bool {
	a, b := &w.items[i], &w.items[j]
	if a.key != b.key {
		return a.key < b.key
	}
	if a.at.X != b.at.X {
		return a.at.X < b.at.X
	}
	if a.at.Y != b.at.Y {
		return a.at.Y < b.at.Y
	}
	return a.seq < b.seq
}

func (w *worklist) Swap(i, j int) { w.items[i], w.items[j] = w.items[j], w.items[i] }

func (w *worklist) Push(x any) { w.items = append(w.items, x.(item)) }

func (w *worklist) Pop() any {
	old := w.items
	n := len(old)
	it := old[n-1]
	old[n-1] = item{}
	w.items = old[:n-1]
	return it
}

func (w *worklist) push(c candidate) {
	at := c.corner()
	w.seq++
	heap.Push(w, item{cand: c, at: at, key: at.X + at.Y, seq: w.seq})
}

func (w *worklist) pop() candidate {
	return heap.Pop(w).(item).cand
}

// purge drops every pending candidate whose corner is dominated by p and
// restores the heap order. It returns how many were dropped.
func (w *worklist) purge(p common.Point) int {
	kept := w.items[:0]
	for _, it := range w.items {
		if !common.Dominates(p, it.at) {
			kept = append(kept, it)
		}
	}
	dropped := len(w.items) - len(kept)
	for i := len(kept); i < len(w.items); i++ {
		w.items[i] = item{}
	}
	w.items = kept
	if dropped > 0 {
		heap.Init(w)
	}
	return dropped
}
