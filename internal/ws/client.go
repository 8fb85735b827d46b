package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/live-server/backend/internal/session"
	"go.uber.org/zap"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

// client is one browser tab's channel. Messages are written by a single
// pump goroutine, so per-client order follows Send order.
type client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}
}

func newClient(conn *websocket.Conn, logger *zap.Logger) *client {
	c := &client{
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues msg without blocking.
func (c *client) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return session.ErrClosed
	}
	select {
	case <-c.done:
		return session.ErrClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return session.ErrBackpressure
	}
}

// writePump exits on the first write error and closes the connection, which
// unblocks the read loop that owns the session.
func (c *client) writePump() {
	defer close(c.done)
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.logger.Warn("WebSocket write failed", zap.Error(err))
			return
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
