package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"market-stream/src/helpers"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// -----------------------------------------------------------------------------
// Client is one websocket connection. It satisfies interfaces.IChannel: the
// registry hands it pre-encoded payloads which the write pump drains.
// -----------------------------------------------------------------------------

type Client struct {
	id     string
	server *FastAPIServer
	conn   *websocket.Conn
	send   chan []byte

	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func newClient(s *FastAPIServer, conn *websocket.Conn, queueSize int) *Client {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Client{
		id:     uuid.NewString(),
		server: s,
		conn:   conn,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) IsOpen() bool { return !c.closed.Load() }

// Send never blocks; a full queue counts as a broken channel.
func (c *Client) Send(payload []byte) error {
	if c.closed.Load() {
		return helpers.ErrChannelClosed
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return helpers.ErrChannelClosed
	default:
		return helpers.ErrSendQueueFull
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.conn.Close()
	})
}

// -----------------------------------------------------------------------------
// readPump - processes inbound commands in order and owns the session.
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump(ctx context.Context, session *Session) {
	defer func() {
		session.Close()
		c.close()
		c.server.Logger.Info("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.Logger.Info("WebSocket error: %v", err)
			}
			return
		}
		if err := session.Handle(ctx, message); err != nil {
			c.server.Logger.Warning("Client %s: reply not delivered (%v), closing", c.id, err)
			return
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends queued payloads and keeps the connection alive
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.server.Logger.Info("Write error on %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
