package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"north-backend/internal/api/middleware"
	"north-backend/internal/models"
	"north-backend/internal/relay"
	"north-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens via the bearer token, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	relay        *relay.Relay
	roomService  *services.RoomService
	redisService *services.RedisService
	logger       *slog.Logger
}

func NewWebSocketHandler(r *relay.Relay, roomService *services.RoomService, redisService *services.RedisService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		relay:        r,
		roomService:  roomService,
		redisService: redisService,
		logger:       logger,
	}
}

// HandleWebSocket godoc
// @Summary Join a chat room over WebSocket
// @Description Upgrades the connection and joins the room; inbound frames are {"message":"...","user_id":N}
// @Tags chat
// @Security BearerAuth
// @Param roomID path int true "Room ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 403 {object} models.ErrorResponse
// @Router /chat/ws/{roomID} [get]
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("roomID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid room id",
		})
		return
	}
	userID := middleware.UserID(c)

	// Participant check happens before the upgrade so rejections stay
	// plain HTTP responses.
	if err := h.roomService.CheckParticipant(c.Request.Context(), uint(roomID), userID); err != nil {
		writeRoomError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "user_id", userID)
		return
	}

	client := relay.NewClient(h.relay, conn, userID)
	if err := h.relay.Join(client, strconv.FormatUint(roomID, 10)); err != nil {
		h.logger.Warn("websocket join rejected", "error", err, "user_id", userID, "room_id", roomID)
		conn.Close()
		return
	}

	if err := h.redisService.SetUserOnline(c.Request.Context(), userID); err != nil {
		h.logger.Warn("failed to set presence online", "error", err, "user_id", userID)
	}

	h.logger.Info("websocket client joined", "client_id", client.ID(), "user_id", userID, "room_id", roomID)

	go client.WritePump()
	client.ReadPump()

	if err := h.redisService.SetUserOffline(c.Request.Context(), userID); err != nil {
		h.logger.Warn("failed to set presence offline", "error", err, "user_id", userID)
	}
	h.logger.Info("websocket client left", "client_id", client.ID(), "user_id", userID, "room_id", roomID)
}
