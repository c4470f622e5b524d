package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"skylinedb/pkg/common"
)

var ErrShortBody = errors.New("short frame body")

func EncodeKey(id common.KeyType) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func DecodeKey(b []byte) (common.KeyType, error) {
	if len(b) < 8 {
		return 0, ErrShortBody
	}
	return common.KeyType(binary.BigEndian.Uint64(b)), nil
}

func putPoint(b []byte, p common.Point) {
	binary.BigEndian.PutUint64(b[0:8], math.Float64bits(p.X))
	binary.BigEndian.PutUint64(b[8:16], math.Float64bits(p.Y))
}

func readPoint(b []byte) common.Point {
	return common.Point{
		X: math.Float64frombits(binary.BigEndian.Uint64(b[0:8])),
		Y: math.Float64frombits(binary.BigEndian.Uint64(b[8:16])),
	}
}

// EncodeInsert lays out an OpInsert body: [x 8B][y 8B][payload].
func EncodeInsert(p common.Point, val common.ValueType) []byte {
	b := make([]byte, 16+len(val))
	putPoint(b, p)
	copy(b[16:], val)
	return b
}

func DecodeInsert(b []byte) (common.Point, common.ValueType, error) {
	if len(b) < 16 {
		return common.Point{}, nil, ErrShortBody
	}
	var val common.ValueType
	if len(b) > 16 {
		val = append(common.ValueType(nil), b[16:]...)
	}
	return readPoint(b), val, nil
}

// EncodeRect lays out a rectangle as [minX][minY][maxX][maxY], 8B each.
func EncodeRect(r common.Rect) []byte {
	b := make([]byte, 32)
	putPoint(b[0:16], common.Point{X: r.MinX, Y: r.MinY})
	putPoint(b[16:32], common.Point{X: r.MaxX, Y: r.MaxY})
	return b
}

func DecodeRect(b []byte) (common.Rect, error) {
	if len(b) < 32 {
		return common.Rect{}, ErrShortBody
	}
	lo, hi := readPoint(b[0:16]), readPoint(b[16:32])
	return common.NewRect(lo.X, lo.Y, hi.X, hi.Y), nil
}

// EncodeEntries 编码点列表
// [Count 4B] + ( [ID 8B] + [X 8B] + [Y 8B] + [ValLen 4B] + [Val Bytes] ) * Count
func EncodeEntries(entries []common.Entry) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, uint32(len(entries)))

	p := make([]byte, 16)
	for _, e := range entries {
		binary.Write(buf, binary.BigEndian, int64(e.ID))
		putPoint(p, e.Point)
		buf.Write(p)
		binary.Write(buf, binary.BigEndian, uint32(len(e.Value)))
		buf.Write(e.Value)
	}
	return buf.Bytes()
}

func DecodeEntries(b []byte) ([]common.Entry, error) {
	if len(b) < 4 {
		return nil, ErrShortBody
	}
	count := binary.BigEndian.Uint32(b[0:4])
	b = b[4:]

	// each entry needs at least 28 bytes
	if uint64(count)*28 > uint64(len(b)) {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrShortBody, count, len(b))
	}
	entries := make([]common.Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < 28 {
			return nil, ErrShortBody
		}
		e := common.Entry{
			ID:    common.KeyType(binary.BigEndian.Uint64(b[0:8])),
			Point: readPoint(b[8:24]),
		}
		vLen := int(binary.BigEndian.Uint32(b[24:28]))
		b = b[28:]
		if len(b) < vLen {
			return nil, ErrShortBody
		}
		if vLen > 0 {
			e.Value = append(common.ValueType(nil), b[:vLen]...)
		}
		b = b[vLen:]
		entries = append(entries, e)
	}
	return entries, nil
}
