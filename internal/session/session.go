// Package session connects to a game server and keeps a Store in step with
// what the server pushes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shengji/internal/dispatch"
	"shengji/internal/protocol"
	"shengji/internal/state"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20
	sendBuffer     = 64
	incomingBuffer = 256
)

var (
	// ErrClosed is returned once the connection has shut down.
	ErrClosed = errors.New("session closed")
	// ErrSendBufferFull is returned when outbound frames are not draining.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Session is one connection to a game room. Frames are read on one
// goroutine and applied to the store, in arrival order, on another.
type Session struct {
	id       string
	conn     *websocket.Conn
	engine   *dispatch.Engine
	store    *state.Store
	logger   *zap.Logger
	send     chan []byte
	incoming chan protocol.Inbound

	mu     sync.Mutex
	closed bool
}

// Dial connects to url and joins the room. The store's identity is the name
// the session joins under.
func Dial(ctx context.Context, url, room string, engine *dispatch.Engine, store *state.Store, logger *zap.Logger) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	join := protocol.JoinRoom{RoomName: room, Name: store.Snapshot().Identity}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(join); err != nil {
		conn.Close()
		return nil, fmt.Errorf("join room %s: %w", room, err)
	}
	s := New(conn, engine, store, logger)
	s.logger.Info("joined room", zap.String("room", room), zap.String("name", join.Name))
	return s, nil
}

// New wraps an established connection.
func New(conn *websocket.Conn, engine *dispatch.Engine, store *state.Store, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     conn,
		engine:   engine,
		store:    store,
		logger:   logger.With(zap.String("session_id", id)),
		send:     make(chan []byte, sendBuffer),
		incoming: make(chan protocol.Inbound, incomingBuffer),
	}
}

// ID identifies this session in logs.
func (s *Session) ID() string { return s.id }

// Run pumps frames until the server closes the connection or ctx ends. A
// normal close returns nil.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readPump(ctx) })
	g.Go(func() error { return s.writePump(ctx) })
	g.Go(s.dispatchLoop)

	err := g.Wait()
	if errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Send queues a raw frame for the server without blocking. Once the writer
// has stopped it returns ErrClosed; a queued frame is written unless the
// connection itself fails first.
func (s *Session) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	select {
	case s.send <- frame:
		return nil
	default:
		s.logger.Warn("send buffer full, dropping frame")
		return ErrSendBufferFull
	}
}

// SendChat queues a chat line.
func (s *Session) SendChat(text string) error {
	frame, err := protocol.ChatRequest(text)
	if err != nil {
		return err
	}
	return s.Send(frame)
}

// readPump decodes frames in order and hands them to the dispatch loop.
func (s *Session) readPump(ctx context.Context) error {
	defer close(s.incoming)

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	// The server pings us too.
	s.conn.SetPingHandler(func(data string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			switch {
			case ctx.Err() != nil:
				return ErrClosed
			case errors.As(err, &closeErr) && !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
				s.logger.Info("server closed connection", zap.Int("code", closeErr.Code))
				return ErrClosed
			default:
				return fmt.Errorf("read: %w", err)
			}
		}
		msg := protocol.Decode(data)
		if u, ok := msg.(protocol.Unknown); ok && u.Err != nil {
			s.logger.Warn("undecodable frame", zap.Error(u.Err), zap.Int("bytes", len(data)))
		}
		s.incoming <- msg
	}
}

// writePump sends queued frames and keepalive pings. It owns closing the
// connection, which also unblocks readPump.
func (s *Session) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.markClosed()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-ctx.Done():
			s.markClosed()
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.flush(); err != nil {
				s.logger.Warn("queued frames not sent", zap.Error(err))
			}
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()
		}
	}
}

// markClosed makes later Sends fail. Frames already queued stay in s.send.
func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// flush writes whatever is still queued. Only call it after markClosed, so
// nothing new arrives.
func (s *Session) flush() error {
	for {
		select {
		case frame := <-s.send:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		default:
			return nil
		}
	}
}

// dispatchLoop is the only writer of the store. Each message is fully applied
// before the next one is looked at.
func (s *Session) dispatchLoop() error {
	for msg := range s.incoming {
		u := s.engine.Dispatch(s.store.Snapshot(), msg)
		if u.Empty() {
			continue
		}
		s.store.Apply(u)
		s.logger.Debug("state updated",
			zap.Stringer("kind", msg.Kind()),
			zap.Stringer("fields", u.Fields),
		)
	}
	return nil
}
