package ws

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/quizcore/internal/model"
	"github.com/mcoot/quizcore/internal/realtime"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Time between pings; must be less than pongWait
	pingPeriod = 30 * time.Second

	// Maximum inbound message size
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one WebSocket connection
type Client struct {
	id          model.ConnectionID
	conn        *websocket.Conn
	logger      *slog.Logger
	connectedAt time.Time

	// identity is written once before registered is set
	identity   model.Identity
	registered atomic.Bool
	closed     atomic.Bool

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex
}

func newClient(id model.ConnectionID, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:          id,
		conn:        conn,
		logger:      logger.With(slog.String("connection_id", string(id))),
		connectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
	}
}

// Enqueue queues a message for the write pump. Messages for a slow or
// closed client are dropped.
func (c *Client) Enqueue(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- message:
		return true
	default:
		c.logger.Warn("ws message dropped - client buffer full")
		return false
	}
}

// Terminate sends a terminal error event followed by a close frame and
// closes the connection
func (c *Client) Terminate(reason realtime.Reason) {
	c.closeOnce.Do(func() {
		msg, err := realtime.Encode(realtime.EventError, realtime.ErrorData{
			Reason:  reason,
			Message: reason.Message(),
		})

		c.writeMu.Lock()
		deadline := time.Now().Add(writeWait)
		if err == nil {
			_ = c.conn.SetWriteDeadline(deadline)
			_ = c.conn.WriteMessage(websocket.TextMessage, msg)
		}
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(reason.CloseCode(), string(reason)), deadline)
		c.writeMu.Unlock()

		close(c.done)
		_ = c.conn.Close()

		c.logger.Info("ws connection terminated", slog.String("reason", string(reason)))
	})
}

// shutdown closes the connection without a terminal notification
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) markClosed() {
	c.closed.Store(true)
}

func (c *Client) isClosed() bool {
	return c.closed.Load()
}

// readPump reads inbound frames until the connection fails. Frames that
// arrive before the client is registered are ignored.
func (c *Client) readPump(g *Gateway) {
	defer func() {
		c.markClosed()
		g.disconnect(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("ws read failed", slog.String("error", err.Error()))
			}
			return
		}

		if !c.registered.Load() {
			c.logger.Debug("ws message ignored before registration")
			continue
		}

		env, err := realtime.Decode(message)
		if err != nil {
			c.logger.Debug("ws malformed message ignored", slog.String("error", err.Error()))
			continue
		}

		switch env.Event {
		case realtime.EventGetOnlineUsers:
			g.RequestSnapshot(c.id)
		default:
			c.logger.Debug("ws unknown event ignored", slog.String("event", env.Event))
		}
	}
}

// writePump writes queued messages and keepalive pings until the client is
// closed
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
