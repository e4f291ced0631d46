package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/config"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

const sendBufferSize = 256

type Client struct {
	ID      string
	Conn    *websocket.Conn
	Session *domain.Session
	send    chan []byte
	config  config.WebSocketConfig

	mu     sync.Mutex
	closed bool
}

func NewClient(session *domain.Session, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:      session.ID,
		Conn:    conn,
		Session: session,
		send:    make(chan []byte, sendBufferSize),
		config:  cfg,
	}
}

// UserID is the authenticated user owning the connection.
func (c *Client) UserID() string {
	return c.Session.UserID
}

// Outbound exposes the send queue. WritePump drains it.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// enqueue never blocks.
func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// close stops the write side. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// SendMessage marshals message and queues it for this client only.
func (c *Client) SendMessage(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

// ReadPump processes inbound frames sequentially until the connection fails,
// then calls onClose exactly once.
func (c *Client) ReadPump(ctx context.Context, handler func(context.Context, *Client, []byte), onClose func(*Client)) {
	defer func() {
		onClose(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		c.Session.UpdateActivity()
		handler(ctx, c, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
