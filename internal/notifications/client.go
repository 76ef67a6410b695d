package notifications

import (
	"context"
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Feed sockets are receive-only; anything larger is a misbehaving client.
	maxMessageSize = 512
)

// Conn is the part of a WebSocket connection a FeedClient uses.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// FeedClient streams feed events to one WebSocket connection.
type FeedClient struct {
	Conn   Conn
	UserID uint

	// Buffered channel of outbound messages.
	Send chan []byte
}

// NewFeedClient creates a client with a bounded outbound buffer.
func NewFeedClient(conn Conn, userID uint) *FeedClient {
	return &FeedClient{Conn: conn, UserID: userID, Send: make(chan []byte, 64)}
}

// TrySend queues message without blocking. When the buffer is full the
// message is dropped.
func (c *FeedClient) TrySend(message []byte) bool {
	select {
	case c.Send <- message:
		return true
	default:
		observability.FeedDrops.Inc()
		middleware.Logger.Warn("feed buffer full, dropped message", slog.Uint64("user_id", uint64(c.UserID)))
		return false
	}
}

// ReadPump discards inbound frames and keeps the read deadline fresh. It
// returns when the peer goes away, which callers use to stop the feed.
func (c *FeedClient) ReadPump() {
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Debug("feed read error",
					slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump writes queued messages and pings until ctx is done or a write
// fails, then closes the connection.
func (c *FeedClient) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
