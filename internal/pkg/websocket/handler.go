package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/communitylink/communitylink/internal/app/models/dto"
)

// Handler upgrades authenticated requests to the live notification feed
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHandler(hub *Hub, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, upgrader: NewUpgrader(allowedOrigins), logger: logger}
}

// HandleConnection godoc
// @Summary Live notification feed
// @Description Upgrades the connection to a WebSocket that pushes each new notification of the current user
// @Tags notifications
// @Security BearerAuth
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /notifications/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	userID := c.GetInt64("userID")
	if userID <= 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")))
		return
	}

	// Upgrade writes its own error response on failure
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Int64("userID", userID).Msg("WebSocket upgrade refused")
		return
	}

	h.logger.Debug().Int64("userID", userID).Str("remoteAddr", conn.RemoteAddr().String()).Msg("WebSocket connection established")
	newClient(h.hub, conn, userID, h.logger).serve()
}
