package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/service"
)

// WSConfig holds websocket keepalive settings.
type WSConfig struct {
	TTL            time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// WSHandler handles WebSocket connections for presence.
type WSHandler struct {
	service  service.PresenceService
	auth     *middleware.AuthMiddleware
	config   WSConfig
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(svc service.PresenceService, auth *middleware.AuthMiddleware, cfg WSConfig) *WSHandler {
	return &WSHandler{
		service: svc,
		auth:    auth,
		config:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// conn serialises writes from the read loop and the ping ticker.
type conn struct {
	ws        *websocket.Conn
	mu        sync.Mutex
	writeWait time.Duration
}

func (c *conn) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait))
}

// HandleWebSocket authenticates, upgrades, and records a heartbeat for the
// caller on connect and on every heartbeat frame.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(log.WithConnection(
		log.WithLogger(context.Background(), log.Ctx(r.Context())), uuid.New().String(), claims.UserID))
	c := &conn{ws: ws, writeWait: h.config.WriteWait}

	go h.keepalive(ctx, c)
	go func() {
		defer cancel()
		defer ws.Close()
		h.readLoop(ctx, c, claims.UserID)
	}()
}

func (h *WSHandler) keepalive(ctx context.Context, c *conn) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) readLoop(ctx context.Context, c *conn, userID string) {
	l := log.Ctx(ctx)

	c.ws.SetReadLimit(h.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(h.config.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(h.config.PongWait))
		return nil
	})

	h.heartbeat(ctx, c, userID)

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(h.config.PongWait))

		var base domain.BaseMessage
		if err := json.Unmarshal(message, &base); err != nil {
			c.send(domain.NewErrorMessage("invalid message format"))
			continue
		}

		switch base.Type {
		case domain.MsgTypeHeartbeat:
			h.heartbeat(ctx, c, userID)
		case domain.MsgTypePing:
			c.send(&domain.BaseMessage{Type: domain.MsgTypePong})
		default:
			c.send(domain.NewErrorMessage("unknown message type: " + base.Type))
		}
	}
}

func (h *WSHandler) heartbeat(ctx context.Context, c *conn, userID string) {
	if err := h.service.Heartbeat(ctx, userID); err != nil {
		c.send(domain.NewErrorMessage("failed to record heartbeat"))
		return
	}
	c.send(&domain.HeartbeatAckMessage{
		Type:       domain.MsgTypeHeartbeatAck,
		TTLSeconds: int(h.config.TTL / time.Second),
	})
}
