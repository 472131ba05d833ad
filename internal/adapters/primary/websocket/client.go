package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lorrc/fieldservice-realtime/internal/core/domain"
	"golang.org/x/time/rate"
)

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("send buffer full")
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub    *Hub
	router *Router

	// The websocket connection. Only the pumps touch it.
	conn *websocket.Conn

	info domain.ConnectionInfo

	// Buffered channel of outbound frames. Never closed; done signals
	// shutdown instead so concurrent senders cannot panic.
	send chan []byte
	done chan struct{}

	// closeOnce ensures the close code is chosen exactly once
	closeOnce   sync.Once
	closeCode   int
	closeReason string

	// Limits inbound location frames.
	limiter *rate.Limiter

	// mu protects lastLocation
	mu           sync.RWMutex
	lastLocation *domain.LocationSnapshot

	opts   Options
	logger *slog.Logger
}

// NewClient creates a client for an authorized connection. It is not a
// broadcast target until registered with the hub.
func NewClient(hub *Hub, router *Router, conn *websocket.Conn, info domain.ConnectionInfo, opts Options, logger *slog.Logger) *Client {
	return &Client{
		hub:     hub,
		router:  router,
		conn:    conn,
		info:    info,
		send:    make(chan []byte, opts.SendBufferSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(opts.LocationRPS), opts.LocationBurst),
		opts:    opts,
		logger: logger.With(
			"connection_id", info.ID,
			"user_id", info.UserID,
			"business_id", info.BusinessID,
		),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.info.ID
}

// Info returns the connection's identity.
func (c *Client) Info() domain.ConnectionInfo {
	return c.info
}

// LastLocation returns the last location relayed by this connection.
func (c *Client) LastLocation() *domain.LocationSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastLocation
}

func (c *Client) setLastLocation(update domain.LocationUpdate, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastLocation = &domain.LocationSnapshot{LocationUpdate: update, ReportedAt: at}
}

// Close asks the write pump to send a close frame and tear the connection
// down. Only the first call's code and reason are used.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// trySend queues a frame without blocking.
func (c *Client) trySend(msg []byte) error {
	if c.Closed() {
		return errClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// ReadPump pumps frames from the websocket connection to the router.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Remove(c.info.ID)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	if err := c.extendReadDeadline(); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.extendReadDeadline(); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		// Any frame proves the peer is alive.
		if err := c.extendReadDeadline(); err != nil {
			c.logger.Error("failed to set read deadline", "error", err)
			return
		}

		c.router.Route(c, message)
	}
}

// WritePump pumps frames from the send buffer to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.opts.WriteWait)); err != nil {
				c.logger.Debug("failed to send close message", "error", err)
			}
			return

		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (c *Client) extendReadDeadline() error {
	return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
}
