package rtree

import "skylinedb/pkg/common"

// NodeKind tags the variant held by a Node.
type NodeKind uint8

const (
	// NonLeaf nodes hold child nodes.
	NonLeaf NodeKind = iota
	// Leaf nodes hold entries.
	Leaf
)

func (k NodeKind) String() string {
	switch k {
	case NonLeaf:
		return "NonLeaf"
	case Leaf:
		return "Leaf"
	default:
		return "Unknown"
	}
}

// Node is a node in an R-Tree. A NonLeaf node only carries children and a
// Leaf node only carries entries; both carry their minimum bounding
// rectangle. Nodes are never modified once they are reachable from a tree.
type Node struct {
	kind     NodeKind
	mbr      common.Rect
	children []*Node
	entries  []common.Entry
}

func (n *Node) Kind() NodeKind {
	return n.kind
}

func (n *Node) MBR() common.Rect {
	return n.mbr
}

// Children returns the child nodes of a NonLeaf node, nil for a Leaf.
// The slice must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}

// Entries returns the entries of a Leaf node, nil for a NonLeaf.
// The slice must not be modified.
func (n *Node) Entries() []common.Entry {
	return n.entries
}

func newLeaf(entries []common.Entry) *Node {
	mbr := common.PointRect(entries[0].Point)
	for _, e := range entries[1:] {
		mbr = mbr.Extend(e.Point)
	}
	return &Node{kind: Leaf, mbr: mbr, entries: entries}
}

func newNonLeaf(children []*Node) *Node {
	mbr := children[0].mbr
	for _, c := range children[1:] {
		mbr = mbr.Union(c.mbr)
	}
	return &Node{kind: NonLeaf, mbr: mbr, children: children}
}
