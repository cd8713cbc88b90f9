// internal/api/handlers/websocket_handler.go
package handlers

import (
	"net/http"

	"delivery-fleet-api-server/internal/api/response"
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/auth"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	Hub    *socket.Hub
	Tokens *auth.TokenService
	Log    logger.Logger
}

// ServeWs streams route transitions to an admin panel. Browsers cannot set
// headers on a websocket handshake, so the token comes in the query string.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	claims, err := h.Tokens.Verify(c.Query("token"))
	if err != nil || !claims.IsAdmin {
		response.Error(c, h.Log, apperr.NotAuthorized(""))
		return
	}
	userID := claims.AdminID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warning("websocket upgrade failed", logger.Error(err))
		return
	}

	h.Hub.Serve(userID, conn)
}
