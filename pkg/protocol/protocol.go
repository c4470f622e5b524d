package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	MagicNumber = 0x53

	OpInsert  = 0x01 // Value = [x 8B][y 8B][payload]
	OpGet     = 0x02 // Key = id
	OpDelete  = 0x03 // Key = id
	OpSearch  = 0x04 // Value = rect
	OpSkyline = 0x05
	OpStats   = 0x06

	RespOK  = 0x00
	RespErr = 0xFF
	RespVal = 0x01
)

// Error codes carried in the key of a RespErr frame.
const (
	CodeInternal  byte = 0x00
	CodeNotFound  byte = 0x01
	CodeMalformed byte = 0x02
	CodeUnknownOp byte = 0x03
)

// MaxValueLen bounds a single frame body.
const MaxValueLen = 64 << 20

var (
	ErrInvalidMagic  = errors.New("invalid magic number")
	ErrFrameTooLarge = errors.New("frame too large")
)

type Packet struct {
	Op    byte
	Key   []byte
	Value []byte
}

// Encode writes one frame. Oversized frames are refused before anything is
// written, so the stream stays usable.
func Encode(w io.Writer, op byte, key []byte, value []byte) error {
	if len(key) > math.MaxUint16 || len(value) > MaxValueLen {
		return ErrFrameTooLarge
	}
	header := make([]byte, 8)
	header[0] = MagicNumber
	header[1] = op
	binary.BigEndian.PutUint16(header[2:4], uint16(len(key)))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(value)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(key) > 0 {
		if _, err := w.Write(key); err != nil {
			return err
		}
	}
	if len(value) > 0 {
		if _, err := w.Write(value); err != nil {
			return err
		}
	}
	return nil
}

func Decode(r io.Reader) (*Packet, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[0] != MagicNumber {
		return nil, ErrInvalidMagic
	}

	op := header[1]
	kLen := binary.BigEndian.Uint16(header[2:4])
	vLen := binary.BigEndian.Uint32(header[4:8])
	if vLen > MaxValueLen {
		return nil, ErrFrameTooLarge
	}

	key := make([]byte, kLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	val := make([]byte, vLen)
	if _, err := io.ReadFull(r, val); err != nil {
		return nil, err
	}

	return &Packet{Op: op, Key: key, Value: val}, nil
}
