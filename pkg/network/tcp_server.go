package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"skylinedb/pkg/common"
	"skylinedb/pkg/core"
	"skylinedb/pkg/logging"
	"skylinedb/pkg/protocol"
)

type TCPServer struct {
	store  *core.SkylineStore
	logger zerolog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewTCPServer(store *core.SkylineStore, logger zerolog.Logger) *TCPServer {
	return &TCPServer{
		store:  store,
		logger: logging.Component(logger, "tcp"),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Serve listens on addr until ctx is cancelled.
func (s *TCPServer) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, listener)
}

func (s *TCPServer) ServeListener(ctx context.Context, listener net.Listener) error {
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("listening (binary protocol)")

	go func() {
		<-ctx.Done()
		listener.Close()
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn().Err(err).Msg("accept error")
			continue
		}
		s.track(conn, true)
		go s.handleConn(conn)
	}
}

func (s *TCPServer) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer func() {
		s.track(conn, false)
		conn.Close()
	}()

	for {
		req, err := protocol.Decode(conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("decode error")
			}
			return
		}
		if err := s.dispatch(conn, req); err != nil {
			s.logger.Debug().Err(err).Msg("write error")
			return
		}
	}
}

func (s *TCPServer) dispatch(w io.Writer, req *protocol.Packet) error {
	switch req.Op {
	case protocol.OpInsert:
		p, val, err := protocol.DecodeInsert(req.Value)
		if err != nil {
			return replyErr(w, protocol.CodeMalformed, err)
		}
		e, err := s.store.Insert(p, val)
		if err != nil {
			return replyErr(w, codeOf(err), err)
		}
		return reply(w, protocol.RespVal, protocol.EncodeKey(e.ID), nil)

	case protocol.OpGet:
		id, err := protocol.DecodeKey(req.Key)
		if err != nil {
			return replyErr(w, protocol.CodeMalformed, err)
		}
		e, found := s.store.Get(id)
		if !found {
			return replyErr(w, protocol.CodeNotFound, core.ErrNotFound)
		}
		return reply(w, protocol.RespVal, nil, protocol.EncodeEntries([]common.Entry{e}))

	case protocol.OpDelete:
		id, err := protocol.DecodeKey(req.Key)
		if err != nil {
			return replyErr(w, protocol.CodeMalformed, err)
		}
		member, err := s.store.Delete(id)
		if err != nil {
			return replyErr(w, codeOf(err), err)
		}
		flag := byte(0)
		if member {
			flag = 1
		}
		return reply(w, protocol.RespOK, nil, []byte{flag})

	case protocol.OpSearch:
		r, err := protocol.DecodeRect(req.Value)
		if err != nil {
			return replyErr(w, protocol.CodeMalformed, err)
		}
		return reply(w, protocol.RespVal, nil, protocol.EncodeEntries(s.store.Search(r)))

	case protocol.OpSkyline:
		return reply(w, protocol.RespVal, nil, protocol.EncodeEntries(s.store.Skyline()))

	case protocol.OpStats:
		data, err := json.Marshal(s.store.Stats())
		if err != nil {
			return replyErr(w, protocol.CodeInternal, err)
		}
		return reply(w, protocol.RespVal, nil, data)

	default:
		return replyErr(w, protocol.CodeUnknownOp, errors.New("unknown op"))
	}
}

func codeOf(err error) byte {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return protocol.CodeNotFound
	case errors.Is(err, core.ErrMalformedPoint):
		return protocol.CodeMalformed
	default:
		return protocol.CodeInternal
	}
}

// reply 发送响应帧；超过帧上限时改回 CodeInternal 错误
func reply(w io.Writer, op byte, key, value []byte) error {
	err := protocol.Encode(w, op, key, value)
	if errors.Is(err, protocol.ErrFrameTooLarge) {
		return replyErr(w, protocol.CodeInternal, fmt.Errorf("reply of %d bytes: %w", len(value), err))
	}
	return err
}

func replyErr(w io.Writer, code byte, err error) error {
	return protocol.Encode(w, protocol.RespErr, []byte{code}, []byte(err.Error()))
}
