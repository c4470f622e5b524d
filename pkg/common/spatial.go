package common

import "math"

// Dominates reports whether p dominates q under minimization: p is no worse
// on both axes and the two points differ. A point never dominates itself.
func Dominates(p, q Point) bool {
	return p.X <= q.X && p.Y <= q.Y && p != q
}

// Rect is an axis-aligned rectangle with MinX <= MaxX and MinY <= MaxY.
type Rect struct {
	MinX float64 `json:"x1"`
	MinY float64 `json:"y1"`
	MaxX float64 `json:"x2"`
	MaxY float64 `json:"y2"`
}

func PointRect(p Point) Rect {
	return Rect{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// NewRect normalizes the corners so that the result is a valid rectangle.
func NewRect(x1, y1, x2, y2 float64) Rect {
	return Rect{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// LowerLeft 返回矩形左下角，即矩形内任意点的下界
func (r Rect) LowerLeft() Point {
	return Point{X: r.MinX, Y: r.MinY}
}

func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

func (r Rect) Extend(p Point) Rect {
	return r.Union(PointRect(p))
}

func (r Rect) Area() float64 {
	return (r.MaxX - r.MinX) * (r.MaxY - r.MinY)
}

// Enlargement returns how much area r would gain to also cover o.
func (r Rect) Enlargement(o Rect) float64 {
	return r.Union(o).Area() - r.Area()
}

// ContainsPoint 边界包含在内
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX &&
		p.Y >= r.MinY && p.Y <= r.MaxY
}

func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && r.MaxX >= o.MinX &&
		r.MinY <= o.MaxY && r.MaxY >= o.MinY
}

// Part1By1 spreads the low 16 bits of n so that a zero bit sits between
// each of them.
func Part1By1(n uint32) uint32 {
	x := n & 0x0000ffff
	x = (x ^ (x << 8)) & 0x00ff00ff
	x = (x ^ (x << 4)) & 0x0f0f0f0f
	x = (x ^ (x << 2)) & 0x33333333
	x = (x ^ (x << 1)) & 0x55555555
	return x
}

func Compact1By1(x uint32) uint32 {
	x &= 0x55555555
	x = (x ^ (x >> 1)) & 0x33333333
	x = (x ^ (x >> 2)) & 0x0f0f0f0f
	x = (x ^ (x >> 4)) & 0x00ff00ff
	x = (x ^ (x >> 8)) & 0x0000ffff
	return x
}

func Encode2D(x, y uint16) uint32 {
	return Part1By1(uint32(y))<<1 | Part1By1(uint32(x))
}

func Decode2D(code uint32) (uint16, uint16) {
	return uint16(Compact1By1(code)), uint16(Compact1By1(code >> 1))
}

// ZOrder 把点按 bounds 量化到 16 位网格后计算 Morton 码，用于批量装载时的排序
func ZOrder(p Point, bounds Rect) uint32 {
	return Encode2D(quantize(p.X, bounds.MinX, bounds.MaxX), quantize(p.Y, bounds.MinY, bounds.MaxY))
}

func quantize(v, lo, hi float64) uint16 {
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return 0
	}
	f := (v - lo) / span * math.MaxUint16
	if f <= 0 {
		return 0
	}
	if f >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(f)
}
