package rtree

import (
	"slices"
	"sort"

	"skylinedb/pkg/common"
)

const (
	DefaultMaxChildren = 8
	MinMaxChildren     = 4
)

// RTree is an in-memory R-Tree over points. It is a persistent value: Add
// and Delete return a new tree and leave the receiver untouched, so a
// traversal over an older tree stays valid after later mutations.
type RTree struct {
	root        *Node
	size        int
	maxChildren int
}

// New returns an empty tree whose nodes hold at most maxChildren items.
func New(maxChildren int) *RTree {
	if maxChildren < MinMaxChildren {
		maxChildren = MinMaxChildren
	}
	return &RTree{maxChildren: maxChildren}
}

// Load bulk-builds a packed tree. Entries are ordered along a Z-order curve
// over their bounding box and packed bottom-up into full nodes.
func Load(maxChildren int, entries []common.Entry) *RTree {
	t := New(maxChildren)
	if len(entries) == 0 {
		return t
	}
	t.root = pack(t.maxChildren, entries)
	t.size = len(entries)
	return t
}

func pack(maxChildren int, entries []common.Entry) *Node {
	bounds := common.PointRect(entries[0].Point)
	for _, e := range entries[1:] {
		bounds = bounds.Extend(e.Point)
	}

	type keyed struct {
		code  uint32
		entry common.Entry
	}
	items := make([]keyed, len(entries))
	for i, e := range entries {
		items[i] = keyed{code: common.ZOrder(e.Point, bounds), entry: e}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].code != items[j].code {
			return items[i].code < items[j].code
		}
		if items[i].entry.Point.X != items[j].entry.Point.X {
			return items[i].entry.Point.X < items[j].entry.Point.X
		}
		return items[i].entry.Point.Y < items[j].entry.Point.Y
	})

	level := make([]*Node, 0, len(items)/maxChildren+1)
	for i := 0; i < len(items); i += maxChildren {
		end := min(i+maxChildren, len(items))
		leafEntries := make([]common.Entry, 0, end-i)
		for _, it := range items[i:end] {
			leafEntries = append(leafEntries, it.entry)
		}
		level = append(level, newLeaf(leafEntries))
	}

	for len(level) > 1 {
		next := make([]*Node, 0, len(level)/maxChildren+1)
		for i := 0; i < len(level); i += maxChildren {
			end := min(i+maxChildren, len(level))
			next = append(next, newNonLeaf(slices.Clone(level[i:end])))
		}
		level = next
	}
	return level[0]
}

// Root returns the root node, or nil when the tree is empty.
func (t *RTree) Root() *Node {
	return t.root
}

func (t *RTree) Size() int {
	return t.size
}

func (t *RTree) MaxChildren() int {
	return t.maxChildren
}

// Bounds returns the bounding rectangle of the whole tree. ok is false for
// an empty tree.
func (t *RTree) Bounds() (r common.Rect, ok bool) {
	if t.root == nil {
		return common.Rect{}, false
	}
	return t.root.mbr, true
}

func (t *RTree) Height() int {
	h := 0
	for n := t.root; n != nil; h++ {
		switch n.kind {
		case NonLeaf:
			n = n.children[0]
		case Leaf:
			n = nil
		}
	}
	return h
}

// Search returns every entry whose point lies in r, boundaries included.
func (t *RTree) Search(r common.Rect) []common.Entry {
	var res []common.Entry
	if t.root == nil {
		return res
	}
	var recurse func(*Node)
	recurse = func(n *Node) {
		if !n.mbr.Intersects(r) {
			return
		}
		switch n.kind {
		case NonLeaf:
			for _, c := range n.children {
				recurse(c)
			}
		case Leaf:
			for _, e := range n.entries {
				if r.ContainsPoint(e.Point) {
					res = append(res, e)
				}
			}
		}
	}
	recurse(t.root)
	return res
}

// Entries returns all entries in traversal order.
func (t *RTree) Entries() []common.Entry {
	res := make([]common.Entry, 0, t.size)
	if t.root == nil {
		return res
	}
	var recurse func(*Node)
	recurse = func(n *Node) {
		switch n.kind {
		case NonLeaf:
			for _, c := range n.children {
				recurse(c)
			}
		case Leaf:
			res = append(res, n.entries...)
		}
	}
	recurse(t.root)
	return res
}

// Add returns a new tree holding the receiver's entries plus entries.
// Adding to an empty tree bulk-loads.
func (t *RTree) Add(entries ...common.Entry) *RTree {
	if len(entries) == 0 {
		return t
	}
	if t.root == nil {
		return Load(t.maxChildren, entries)
	}
	root := t.root
	for _, e := range entries {
		root = t.insert(root, e)
	}
	return &RTree{root: root, size: t.size + len(entries), maxChildren: t.maxChildren}
}

// Delete returns a new tree without e. Entries match when they are the same
// datum (equal ID and point). Only the first match is removed unless all is
// set. The receiver is returned unchanged when nothing matches.
func (t *RTree) Delete(e common.Entry, all bool) *RTree {
	if t.root == nil {
		return t
	}
	root, removed := deleteFrom(t.root, e, all)
	if removed == 0 {
		return t
	}
	for root != nil && root.kind == NonLeaf && len(root.children) == 1 {
		root = root.children[0]
	}
	return &RTree{root: root, size: t.size - removed, maxChildren: t.maxChildren}
}

func (t *RTree) insert(root *Node, e common.Entry) *Node {
	n, sibling := t.insertAt(root, e)
	if sibling != nil {
		return newNonLeaf([]*Node{n, sibling})
	}
	return n
}

// insertAt returns a copy of n with e inserted below it, plus the new
// sibling when n had to be split.
func (t *RTree) insertAt(n *Node, e common.Entry) (*Node, *Node) {
	switch n.kind {
	case Leaf:
		entries := make([]common.Entry, len(n.entries), len(n.entries)+1)
		copy(entries, n.entries)
		entries = append(entries, e)
		if len(entries) <= t.maxChildren {
			return newLeaf(entries), nil
		}
		a, b := split(entries, func(e common.Entry) common.Rect { return common.PointRect(e.Point) })
		return newLeaf(a), newLeaf(b)
	case NonLeaf:
		best := chooseSubtree(n.children, common.PointRect(e.Point))
		child, sibling := t.insertAt(n.children[best], e)
		children := make([]*Node, len(n.children), len(n.children)+1)
		copy(children, n.children)
		children[best] = child
		if sibling != nil {
			children = append(children, sibling)
		}
		if len(children) <= t.maxChildren {
			return newNonLeaf(children), nil
		}
		a, b := split(children, func(c *Node) common.Rect { return c.mbr })
		return newNonLeaf(a), newNonLeaf(b)
	}
	panic("rtree: unknown node kind " + n.kind.String())
}

// chooseSubtree picks the child needing the least enlargement, breaking ties
// by smaller area.
func chooseSubtree(children []*Node, bb common.Rect) int {
	best := 0
	bestDelta := children[0].mbr.Enlargement(bb)
	for i, c := range children[1:] {
		delta := c.mbr.Enlargement(bb)
		if delta < bestDelta || (delta == bestDelta && c.mbr.Area() < children[best].mbr.Area()) {
			best = i + 1
			bestDelta = delta
		}
	}
	return best
}

// split halves items along the axis on which their centres spread the most.
func split[T any](items []T, rectOf func(T) common.Rect) ([]T, []T) {
	sorted := slices.Clone(items)
	cx := func(r common.Rect) float64 { return (r.MinX + r.MaxX) / 2 }
	cy := func(r common.Rect) float64 { return (r.MinY + r.MaxY) / 2 }

	first := rectOf(sorted[0])
	loX, hiX, loY, hiY := cx(first), cx(first), cy(first), cy(first)
	for _, it := range sorted[1:] {
		r := rectOf(it)
		loX, hiX = min(loX, cx(r)), max(hiX, cx(r))
		loY, hiY = min(loY, cy(r)), max(hiY, cy(r))
	}
	centre := cx
	if hiY-loY > hiX-loX {
		centre = cy
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return centre(rectOf(sorted[i])) < centre(rectOf(sorted[j]))
	})
	mid := len(sorted) / 2
	return sorted[:mid:mid], sorted[mid:]
}

// deleteFrom returns the node that replaces n after removing matches of e,
// or nil when the node became empty, along with the number removed.
func deleteFrom(n *Node, e common.Entry, all bool) (*Node, int) {
	if !n.mbr.ContainsPoint(e.Point) {
		return n, 0
	}
	switch n.kind {
	case Leaf:
		removed := 0
		kept := make([]common.Entry, 0, len(n.entries))
		for _, x := range n.entries {
			if x.Same(e) && (all || removed == 0) {
				removed++
				continue
			}
			kept = append(kept, x)
		}
		if removed == 0 {
			return n, 0
		}
		if len(kept) == 0 {
			return nil, removed
		}
		return newLeaf(kept), removed
	case NonLeaf:
		removed := 0
		children := make([]*Node, 0, len(n.children))
		for _, c := range n.children {
			if removed > 0 && !all {
				children = append(children, c)
				continue
			}
			nc, k := deleteFrom(c, e, all)
			removed += k
			if nc != nil {
				children = append(children, nc)
			}
		}
		if removed == 0 {
			return n, 0
		}
		if len(children) == 0 {
			return nil, removed
		}
		return newNonLeaf(children), removed
	}
	panic("rtree: unknown node kind " + n.kind.String())
}
