package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kart-io/logger"

	"github.com/kart-io/course-advisor/internal/advisor/metrics"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 8192
	wsQueryTimeout   = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from arbitrary origins during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ChatWS upgrades the connection and serves a conversational session.
// Each connection owns exactly one session. Messages are plain text
// queries, replies are plain text answers, handled serially in arrival
// order.
func (h *AdvisorHandler) ChatWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	conv := h.service.Sessions().Create()
	metrics.GetAdvisorMetrics().RecordSessionOpened()
	logger.Infow("session opened", "session_id", conv.ID(), "remote", conn.RemoteAddr().String())

	defer func() {
		h.service.Sessions().Remove(conv.ID())
		metrics.GetAdvisorMetrics().RecordSessionClosed()
		conn.Close()
		logger.Infow("session closed", "session_id", conv.ID())
	}()

	conn.SetReadLimit(wsMaxMessageSize)

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnw("websocket read failed", "session_id", conv.ID(), "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), wsQueryTimeout)
		answer := h.service.HandleQuery(ctx, conv, string(payload))
		cancel()

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(answer)); err != nil {
			logger.Warnw("websocket write failed", "session_id", conv.ID(), "error", err)
			return
		}
	}
}
