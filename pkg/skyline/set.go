package skyline

import (
	"slices"

	"skylinedb/pkg/common"
)

// Set is a skyline: entries ascending by x, no member dominating another.
type Set []common.Entry

// sortByX orders s ascending by x. Members of a valid skyline share an x
// only when they share the whole point, so y and ID just make the order
// deterministic.
func sortByX(s Set) {
	slices.SortFunc(s, func(a, b common.Entry) int {
		switch {
		case a.Point.X != b.Point.X:
			return cmpFloat(a.Point.X, b.Point.X)
		case a.Point.Y != b.Point.Y:
			return cmpFloat(a.Point.Y, b.Point.Y)
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}

func cmpFloat(a, b float64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// IndexOf returns the position of e in s, or -1.
func (s Set) IndexOf(e common.Entry) int {
	return slices.IndexFunc(s, e.Same)
}

// Dominated reports whether any member dominates p.
func (s Set) Dominated(p common.Point) bool {
	for _, m := range s {
		if common.Dominates(m.Point, p) {
			return true
		}
	}
	return false
}

func (s Set) Points() []common.Point {
	pts := make([]common.Point, len(s))
	for i, m := range s {
		pts[i] = m.Point
	}
	return pts
}

func (s Set) Clone() Set {
	return slices.Clone(s)
}

// Equal reports whether s and o hold the same entries, ignoring order.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	a, b := s.Clone(), o.Clone()
	sortByX(a)
	sortByX(b)
	for i := range a {
		if !a[i].Same(b[i]) {
			return false
		}
	}
	return true
}
