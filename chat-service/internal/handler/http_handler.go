package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/chat-service/internal/service"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/pkg/response"
)

// HistoryHandler serves channel history over HTTP for clients that page
// outside the websocket.
type HistoryHandler struct {
	service service.ChatService
}

func NewHistoryHandler(svc service.ChatService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

// GetMessages handles GET /api/v1/channels/:channel/messages?after_id=&take=
func (h *HistoryHandler) GetMessages(c *gin.Context) {
	userID := middleware.GetUserID(c)

	take := 0
	if raw := c.Query("take"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, domain.ErrCodeBadRequest, "take must be an integer")
			return
		}
		take = n
	}

	page, err := h.service.LoadHistory(c.Request.Context(), userID, c.Param("channel"), c.Query("after_id"), take)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, page)
}

func writeError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	switch code {
	case domain.ErrCodeInvalidChannel, domain.ErrCodeBadRequest, domain.ErrCodeSelfMessage:
		response.BadRequest(c, code, err.Error())
	case domain.ErrCodeForbidden:
		response.Forbidden(c, err.Error())
	case domain.ErrCodeRateLimited:
		response.TooManyRequests(c, err.Error())
	case domain.ErrCodeUnauthorized:
		response.Unauthorized(c, err.Error())
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("history request failed")
		response.InternalError(c, domain.PublicMessage(err))
	}
}

// NewRouter assembles the gateway's HTTP surface.
func NewRouter(ws *WSHandler, history *HistoryHandler, auth *middleware.AuthMiddleware, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares...)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if ws != nil {
		r.GET("/chat/ws", gin.WrapF(ws.HandleWebSocket))
	}

	api := r.Group("/api/v1")
	api.Use(auth.RequireAuth())
	api.GET("/channels/:channel/messages", history.GetMessages)

	return r
}
