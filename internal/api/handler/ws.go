package handler

import (
	"net/http"
	"strings"

	"linku/backend/internal/api/response"
	"linku/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin admits non-browser clients and the configured front-ends.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ServeWebSocket authenticates the caller, then upgrades to the /ws stream.
// A bad credential gets a plain 401 and no stream.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	uid, err := h.Auth.Authenticate(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.log.Warn("websocket upgrade failed", "uid", uid, "error", err)
		return
	}

	client := chathub.NewWebSocketClient(uid, conn, h.Bus, h.Chat, h.WSBuffer, h.log)
	client.Run()
}
