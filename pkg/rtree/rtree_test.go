package rtree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skylinedb/pkg/common"
)

func randomEntries(rng *rand.Rand, n int, span float64) []common.Entry {
	entries := make([]common.Entry, n)
	for i := range entries {
		entries[i] = common.Entry{
			ID:    common.KeyType(i + 1),
			Point: common.Point{X: rng.Float64() * span, Y: rng.Float64() * span},
		}
	}
	return entries
}

func ids(entries []common.Entry) []common.KeyType {
	out := make([]common.KeyType, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func bruteSearch(entries []common.Entry, r common.Rect) []common.Entry {
	var res []common.Entry
	for _, e := range entries {
		if r.ContainsPoint(e.Point) {
			res = append(res, e)
		}
	}
	return res
}

// checkInvariants walks the tree and verifies MBRs, fan-out and leaf depth.
func checkInvariants(t *testing.T, tree *RTree) {
	t.Helper()
	root := tree.Root()
	if root == nil {
		require.Zero(t, tree.Size())
		return
	}
	leafDepth := -1
	count := 0
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		switch n.Kind() {
		case NonLeaf:
			require.NotEmpty(t, n.Children())
			require.LessOrEqual(t, len(n.Children()), tree.MaxChildren())
			require.Nil(t, n.Entries())
			mbr := n.Children()[0].MBR()
			for _, c := range n.Children() {
				mbr = mbr.Union(c.MBR())
				walk(c, depth+1)
			}
			require.Equal(t, mbr, n.MBR())
		case Leaf:
			require.NotEmpty(t, n.Entries())
			require.LessOrEqual(t, len(n.Entries()), tree.MaxChildren())
			require.Nil(t, n.Children())
			mbr := common.PointRect(n.Entries()[0].Point)
			for _, e := range n.Entries() {
				mbr = mbr.Extend(e.Point)
			}
			require.Equal(t, mbr, n.MBR())
			count += len(n.Entries())
			if leafDepth == -1 {
				leafDepth = depth
			}
			require.Equal(t, leafDepth, depth, "leaves must share one depth")
		}
	}
	walk(root, 1)
	require.Equal(t, tree.Size(), count)
	require.Equal(t, tree.Height(), leafDepth)
}

func TestEmptyTree(t *testing.T) {
	tree := New(DefaultMaxChildren)
	assert.Nil(t, tree.Root())
	assert.Zero(t, tree.Size())
	assert.Zero(t, tree.Height())
	_, ok := tree.Bounds()
	assert.False(t, ok)
	assert.Empty(t, tree.Search(common.Rect{MaxX: 10, MaxY: 10}))
	assert.Empty(t, tree.Entries())
	assert.Same(t, tree, tree.Delete(common.Entry{ID: 1}, false))
}

func TestNewClampsCapacity(t *testing.T) {
	assert.Equal(t, MinMaxChildren, New(1).MaxChildren())
	assert.Equal(t, 16, New(16).MaxChildren())
}

func TestLoadAndSearchMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	entries := randomEntries(rng, 500, 100)
	tree := Load(6, entries)
	checkInvariants(t, tree)
	require.Equal(t, 500, tree.Size())
	require.ElementsMatch(t, ids(entries), ids(tree.Entries()))

	bounds, ok := tree.Bounds()
	require.True(t, ok)
	for _, e := range entries {
		require.True(t, bounds.ContainsPoint(e.Point))
	}

	for i := 0; i < 50; i++ {
		r := common.NewRect(rng.Float64()*100, rng.Float64()*100, rng.Float64()*100, rng.Float64()*100)
		require.Equal(t, ids(bruteSearch(entries, r)), ids(tree.Search(r)))
	}
}

func TestAddIsPersistent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	entries := randomEntries(rng, 200, 50)

	tree := New(4)
	var snapshots []*RTree
	for _, e := range entries {
		tree = tree.Add(e)
		snapshots = append(snapshots, tree)
	}
	checkInvariants(t, tree)
	require.Equal(t, len(entries), tree.Size())
	require.Greater(t, tree.Height(), 2)

	for i, snap := range snapshots {
		require.Equal(t, i+1, snap.Size())
		require.ElementsMatch(t, ids(entries[:i+1]), ids(snap.Entries()))
	}

	full := common.Rect{MaxX: 50, MaxY: 50}
	require.Equal(t, ids(entries), ids(tree.Search(full)))
}

func TestAddBulkToEmptyTree(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	entries := randomEntries(rng, 37, 10)
	tree := New(4).Add(entries...)
	checkInvariants(t, tree)
	assert.Equal(t, 37, tree.Size())
}

func TestDelete(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	entries := randomEntries(rng, 300, 100)
	tree := Load(5, entries)

	before := tree
	victim := entries[42]
	after := tree.Delete(victim, false)
	checkInvariants(t, after)
	require.Equal(t, 299, after.Size())
	require.Equal(t, 300, before.Size(), "delete must not mutate the original tree")
	require.Empty(t, after.Search(common.PointRect(victim.Point)))
	require.Len(t, before.Search(common.PointRect(victim.Point)), 1)

	// same coordinates, different identity: no match
	ghost := common.Entry{ID: 9999, Point: entries[7].Point}
	require.Same(t, after, after.Delete(ghost, true))

	// remove everything
	cur := after
	for i, e := range entries {
		if i == 42 {
			continue
		}
		cur = cur.Delete(e, false)
		checkInvariants(t, cur)
	}
	require.Nil(t, cur.Root())
	require.Zero(t, cur.Size())
}

func TestDeleteMatchAll(t *testing.T) {
	e := common.Entry{ID: 1, Point: common.Point{X: 2, Y: 2}}
	other := common.Entry{ID: 2, Point: common.Point{X: 2, Y: 2}}
	tree := New(4).Add(e, e, e, other, common.Entry{ID: 3, Point: common.Point{X: 5, Y: 1}})

	one := tree.Delete(e, false)
	assert.Equal(t, 4, one.Size())

	none := tree.Delete(e, true)
	assert.Equal(t, 2, none.Size())
	assert.ElementsMatch(t, []common.KeyType{2, 3}, ids(none.Entries()))
}

func TestNodeKindString(t *testing.T) {
	assert.Equal(t, "NonLeaf", NonLeaf.String())
	assert.Equal(t, "Leaf", Leaf.String())
	assert.Equal(t, "Unknown", NodeKind(9).String())
}
