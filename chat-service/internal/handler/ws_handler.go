package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/audit"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/config"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/hub"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/metrics"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
)

// frameTimeout bounds the work done for a single inbound frame.
const frameTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	service service.ChatService
	auth    *middleware.AuthMiddleware
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(svc service.ChatService, auth *middleware.AuthMiddleware, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		service: svc,
		auth:    auth,
		wsCfg:   wsCfg,
	}
}

// HandleWebSocket authenticates the upgrade request before switching
// protocols. Unauthenticated requests never get a socket.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, err := h.auth.Authenticate(r)
	if err != nil {
		audit.LogWithDetail(r.Context(), audit.ActionAuthFailed, "", log.ClientIP(r), err.Error())
		writeJSONError(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "authentication required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.Ctx(r.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.New().String()
	ctx := log.WithConnection(log.WithLogger(context.Background(), log.Ctx(r.Context())), connID, claims.UserID)

	client := hub.NewClient(domain.NewSession(connID, claims.UserID, claims.Username), conn, h.wsCfg)
	if err := h.service.Connect(ctx, client); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("connection rejected")
		conn.Close()
		return
	}

	client.SendMessage(&domain.ConnectedFrame{
		Type:         domain.MsgTypeConnected,
		ConnectionID: connID,
		UserID:       claims.UserID,
	})

	go client.WritePump()
	go client.ReadPump(ctx, h.handleMessage, func(c *hub.Client) {
		h.service.Disconnect(ctx, c)
	})
}

func (h *WSHandler) handleMessage(connCtx context.Context, client *hub.Client, message []byte) {
	var frame domain.ClientFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		client.SendMessage(domain.NewErrorFrame("", domain.ErrCodeBadRequest, "invalid frame"))
		return
	}

	ctx, cancel := context.WithTimeout(connCtx, frameTimeout)
	defer cancel()

	switch frame.Type {
	case domain.MsgTypeSendDirect:
		msg, err := h.service.SendDirect(ctx, client, frame.ToUserID, frame.Text)
		h.reply(ctx, client, frame, err, func() interface{} {
			return &domain.AckFrame{Type: domain.MsgTypeAck, RequestID: frame.RequestID, Op: frame.Type, MessageID: msg.ID}
		})

	case domain.MsgTypeSendRoom:
		msg, err := h.service.SendToRoom(ctx, client, frame.RoomID, frame.Text)
		h.reply(ctx, client, frame, err, func() interface{} {
			return &domain.AckFrame{Type: domain.MsgTypeAck, RequestID: frame.RequestID, Op: frame.Type, MessageID: msg.ID}
		})

	case domain.MsgTypeLoadHistory:
		page, err := h.service.LoadHistory(ctx, client.UserID(), frame.Channel, frame.AfterID, frame.Take)
		h.reply(ctx, client, frame, err, func() interface{} {
			return &domain.HistoryFrame{Type: domain.MsgTypeHistory, RequestID: frame.RequestID, HistoryPage: page}
		})

	case domain.MsgTypeJoinChannels:
		_, err := h.service.JoinChannels(ctx, client, frame.Channels)
		h.reply(ctx, client, frame, err, func() interface{} {
			return &domain.AckFrame{Type: domain.MsgTypeAck, RequestID: frame.RequestID, Op: frame.Type}
		})

	case domain.MsgTypePing:
		client.SendMessage(&domain.PongFrame{Type: domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorFrame(frame.RequestID, domain.ErrCodeBadRequest, "unknown frame type"))
	}
}

// reply sends the success frame built by ok, or an error frame carrying the
// public code for err.
func (h *WSHandler) reply(ctx context.Context, client *hub.Client, frame domain.ClientFrame, err error, ok func() interface{}) {
	if err != nil {
		code := domain.ErrorCode(err)
		metrics.ObserveOp(frame.Type, strings.ToLower(code))
		if code == domain.ErrCodeInternalError {
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldOp, frame.Type).Msg("operation failed")
		}
		client.SendMessage(domain.NewErrorFrame(frame.RequestID, code, domain.PublicMessage(err)))
		return
	}
	metrics.ObserveOp(frame.Type, "ok")
	client.SendMessage(ok())
}

func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/chat/ws", h.HandleWebSocket)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}
