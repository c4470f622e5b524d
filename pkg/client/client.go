package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"skylinedb/pkg/common"
	"skylinedb/pkg/protocol"
)

var (
	ErrNotFound  = errors.New("point not found")
	ErrMalformed = errors.New("malformed request")
	ErrRemote    = errors.New("server error")
)

const dialTimeout = 5 * time.Second

type Client struct {
	conn net.Conn
	addr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		addr: addr,
	}, nil
}

// Insert stores p and returns the ID the server assigned.
func (c *Client) Insert(p common.Point, value []byte) (common.KeyType, error) {
	pkg, err := c.call(protocol.OpInsert, nil, protocol.EncodeInsert(p, value))
	if err != nil {
		return 0, err
	}
	return protocol.DecodeKey(pkg.Key)
}

func (c *Client) Get(id common.KeyType) (common.Entry, error) {
	pkg, err := c.call(protocol.OpGet, protocol.EncodeKey(id), nil)
	if err != nil {
		return common.Entry{}, err
	}
	entries, err := protocol.DecodeEntries(pkg.Value)
	if err != nil {
		return common.Entry{}, err
	}
	if len(entries) != 1 {
		return common.Entry{}, fmt.Errorf("get %d: unexpected %d entries", id, len(entries))
	}
	return entries[0], nil
}

// Delete removes the point with the given ID and reports whether it was on
// the skyline.
func (c *Client) Delete(id common.KeyType) (bool, error) {
	pkg, err := c.call(protocol.OpDelete, protocol.EncodeKey(id), nil)
	if err != nil {
		return false, err
	}
	return len(pkg.Value) > 0 && pkg.Value[0] == 1, nil
}

func (c *Client) Skyline() ([]common.Entry, error) {
	pkg, err := c.call(protocol.OpSkyline, nil, nil)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeEntries(pkg.Value)
}

func (c *Client) Search(r common.Rect) ([]common.Entry, error) {
	pkg, err := c.call(protocol.OpSearch, nil, protocol.EncodeRect(r))
	if err != nil {
		return nil, err
	}
	return protocol.DecodeEntries(pkg.Value)
}

func (c *Client) Stats() (map[string]interface{}, error) {
	pkg, err := c.call(protocol.OpStats, nil, nil)
	if err != nil {
		return nil, err
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(pkg.Value, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// call sends one request and reads its response, redialing once if the
// connection broke.
func (c *Client) call(op byte, key, val []byte) (*protocol.Packet, error) {
	pkg, err := c.roundTrip(op, key, val)
	if err != nil {
		pkg, err = c.reconnectAndRetry(op, key, val)
		if err != nil {
			return nil, err
		}
	}
	return checkResponse(pkg)
}

func (c *Client) roundTrip(op byte, key, val []byte) (*protocol.Packet, error) {
	if err := protocol.Encode(c.conn, op, key, val); err != nil {
		return nil, err
	}
	return protocol.Decode(c.conn)
}

func (c *Client) reconnectAndRetry(op byte, key, val []byte) (*protocol.Packet, error) {
	c.conn.Close()
	conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	return c.roundTrip(op, key, val)
}

func checkResponse(pkg *protocol.Packet) (*protocol.Packet, error) {
	switch pkg.Op {
	case protocol.RespOK, protocol.RespVal:
		return pkg, nil
	case protocol.RespErr:
		code := protocol.CodeInternal
		if len(pkg.Key) > 0 {
			code = pkg.Key[0]
		}
		switch code {
		case protocol.CodeNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, pkg.Value)
		case protocol.CodeMalformed:
			return nil, fmt.Errorf("%w: %s", ErrMalformed, pkg.Value)
		default:
			return nil, fmt.Errorf("%w: %s", ErrRemote, pkg.Value)
		}
	default:
		return nil, errors.New("unknown response")
	}
}
