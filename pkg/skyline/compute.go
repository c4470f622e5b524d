// Package skyline computes and maintains the skyline of a point set held in
// an R-Tree: the points no other point dominates under minimization.
//
// Compute runs a best-first branch-and-bound traversal. Insert and Delete
// patch a previously computed Set after a single-point mutation of the tree
// without traversing it again.
package skyline

import (
	"skylinedb/pkg/common"
	"skylinedb/pkg/rtree"
)

// Stats describes the work done by one traversal.
type Stats struct {
	NodesExpanded  int `json:"nodes_expanded"`
	EntriesChecked int `json:"entries_checked"`
	Pruned         int `json:"pruned"`
	Accepted       int `json:"accepted"`
}

// Compute returns the skyline of the tree rooted at root. A nil root yields
// an empty Set.
func Compute(root *rtree.Node) Set {
	s, _ := ComputeWithStats(root)
	return s
}

// ComputeWithStats is Compute plus traversal counters.
//
// Candidates leave the worklist by ascending coordinate sum of their best
// corner. Any point that dominates p has a strictly smaller sum, so it (or
// the node holding it) is always popped before p: an accepted point can
// never be invalidated later, and pending candidates it dominates can be
// dropped without being expanded.
func ComputeWithStats(root *rtree.Node) (Set, Stats) {
	var st Stats
	res := Set{}
	if root == nil {
		return res, st
	}

	w := &worklist{}
	w.push(nodeCandidate{node: root})
	for w.Len() > 0 {
		switch c := w.pop().(type) {
		case nodeCandidate:
			st.NodesExpanded++
			switch c.node.Kind() {
			case rtree.NonLeaf:
				for _, child := range c.node.Children() {
					if res.Dominated(child.MBR().LowerLeft()) {
						st.Pruned++
						continue
					}
					w.push(nodeCandidate{node: child})
				}
			case rtree.Leaf:
				for _, e := range c.node.Entries() {
					if res.Dominated(e.Point) {
						st.Pruned++
						continue
					}
					w.push(entryCandidate{entry: e})
				}
			}
		case entryCandidate:
			st.EntriesChecked++
			if res.Dominated(c.entry.Point) {
				continue
			}
			res = append(res, c.entry)
			st.Pruned += w.purge(c.entry.Point)
		}
	}

	sortByX(res)
	st.Accepted = len(res)
	return res, st
}

// ComputeEntries runs Compute over a disposable tree bulk-loaded from
// entries.
func ComputeEntries(entries []common.Entry) Set {
	return Compute(rtree.Load(rtree.DefaultMaxChildren, entries).Root())
}
