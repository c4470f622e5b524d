package skyline

import (
	"skylinedb/pkg/common"
	"skylinedb/pkg/rtree"
)

// RangeIndex is the part of a spatial index Delete needs to rebuild the
// neighbourhood of a removed point.
type RangeIndex interface {
	Search(r common.Rect) []common.Entry
	Bounds() (common.Rect, bool)
}

// Insert returns the skyline after e was added to the indexed point set.
// s is the skyline from before the insertion. The index itself is never
// consulted: only e and the current members can change status.
//
// s is returned as is when e is dominated or already a member. Otherwise the
// result reuses s's backing array.
func Insert(s Set, e common.Entry) Set {
	if s.Dominated(e.Point) || s.IndexOf(e) >= 0 {
		return s
	}
	kept := s[:0]
	for _, m := range s {
		if !common.Dominates(e.Point, m.Point) {
			kept = append(kept, m)
		}
	}
	kept = append(kept, e)
	sortByX(kept)
	return kept
}

// Delete returns the skyline after r was removed from the indexed point
// set. s is the skyline from before the removal and idx must no longer hold
// r. Removing a non-member never changes the skyline, so s is returned
// unchanged in that case.
//
// Points that only r dominated are confined to the rectangle spanned by r
// and its two neighbours in s: to the left of the next member's x and below
// the previous member's y. That region is searched, its own skyline
// computed over a throwaway tree, and the survivors merged back.
func Delete(s Set, idx RangeIndex, r common.Entry) Set {
	res, _ := DeleteWithRegion(s, idx, r)
	return res
}

// DeleteWithRegion is Delete that also reports how many points the
// affected rectangle held.
func DeleteWithRegion(s Set, idx RangeIndex, r common.Entry) (Set, int) {
	i := s.IndexOf(r)
	if i < 0 {
		return s, 0
	}

	region := AffectedRect(s, i, idx)
	var candidates []common.Entry
	for _, e := range idx.Search(region) {
		if !e.Same(r) {
			candidates = append(candidates, e)
		}
	}
	local := Compute(rtree.Load(rtree.DefaultMaxChildren, candidates).Root())

	res := make(Set, 0, len(s)-1+len(local))
	res = append(res, s[:i]...)
	res = append(res, s[i+1:]...)
	survivors := res
	for _, e := range local {
		if survivors.Dominated(e.Point) || survivors.IndexOf(e) >= 0 {
			continue
		}
		res = append(res, e)
	}
	sortByX(res)
	return res, len(candidates)
}

// AffectedRect returns the region in which removing s[i] can expose new
// skyline points. Missing neighbours are replaced by the index bounds.
func AffectedRect(s Set, i int, idx RangeIndex) common.Rect {
	p := s[i].Point
	region := common.PointRect(p)

	bounds, ok := idx.Bounds()
	if i+1 < len(s) {
		region.MaxX = s[i+1].Point.X
	} else if ok {
		region.MaxX = max(p.X, bounds.MaxX)
	}
	if i > 0 {
		region.MaxY = s[i-1].Point.Y
	} else if ok {
		region.MaxY = max(p.Y, bounds.MaxY)
	}
	return region
}
