package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"north-backend/internal/api/middleware"
	"north-backend/internal/models"
	"north-backend/internal/relay"
	"north-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService *services.RoomService
}

func NewRoomHandler(roomService *services.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoom godoc
// @Summary Create a chat room
// @Description Creates a room with the given participants; the creator is always included
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateRoomRequest true "Room details"
// @Success 201 {object} models.RoomResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /chat/rooms [post]
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to create room",
		})
		return
	}

	c.JSON(http.StatusCreated, models.NewRoomResponse(room, nil))
}

// ListRooms godoc
// @Summary List the caller's chat rooms
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.RoomResponse
// @Router /chat/rooms [get]
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.ListRooms(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list rooms",
		})
		return
	}

	out := make([]models.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, models.NewRoomResponse(room, nil))
	}
	c.JSON(http.StatusOK, out)
}

// GetRoom godoc
// @Summary Get a chat room with its message history
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param roomID path int true "Room ID"
// @Success 200 {object} models.RoomResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /chat/rooms/{roomID} [get]
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		writeRoomError(c, err)
		return
	}

	messages, err := h.roomService.ListMessages(c.Request.Context(), roomID, userID)
	if err != nil {
		writeRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewRoomResponse(room, messages))
}

// ListMessages godoc
// @Summary List a room's messages ascending by creation time
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param roomID path int true "Room ID"
// @Success 200 {array} models.MessageResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /chat/rooms/{roomID}/messages [get]
func (h *RoomHandler) ListMessages(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	messages, err := h.roomService.ListMessages(c.Request.Context(), roomID, middleware.UserID(c))
	if err != nil {
		writeRoomError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// SendMessage godoc
// @Summary Send a message to a room
// @Description Persists the message and broadcasts it to every live room member
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param roomID path int true "Room ID"
// @Param request body models.SendMessageRequest true "Message content"
// @Success 201 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /chat/rooms/{roomID}/messages [post]
func (h *RoomHandler) SendMessage(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	msg, err := h.roomService.SendMessage(c.Request.Context(), roomID, middleware.UserID(c), req.Content)
	if err != nil {
		if errors.Is(err, relay.ErrEmptyContent) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "message content must not be empty",
			})
			return
		}
		writeRoomError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListUsers godoc
// @Summary List users available as room participants
// @Description Returns every registered user except the caller
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserResponse
// @Router /chat/users [get]
func (h *RoomHandler) ListUsers(c *gin.Context) {
	users, err := h.roomService.ListUsers(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to list users",
		})
		return
	}
	c.JSON(http.StatusOK, users)
}

func roomIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("roomID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid room id",
		})
		return 0, false
	}
	return uint(id), true
}

func writeRoomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "chat room not found",
		})
	case errors.Is(err, services.ErrNotParticipant):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "you are not a participant in this chat room",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
		})
	}
}
