package common

import (
	"fmt"
	"math"
)

// KeyType 定义点的标识类型
type KeyType int64

// ValueType 定义附加在点上的不透明值
type ValueType []byte

// Point 二维坐标点
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Entry 是索引叶子层存储的基本单元
type Entry struct {
	ID    KeyType   `json:"id"`
	Value ValueType `json:"value,omitempty"`
	Point Point     `json:"point"`
}

// Same reports whether e and o are the same datum: equal ID and equal point.
// Values are opaque and not compared.
func (e Entry) Same(o Entry) bool {
	return e.ID == o.ID && e.Point == o.Point
}

// String 方便调试打印
func (e Entry) String() string {
	return fmt.Sprintf("Entry{ID: %d, Point: %s, ValLen: %d}", e.ID, e.Point, len(e.Value))
}
