package handlers

import (
	"errors"
	"net/http"

	"north-backend/internal/api/middleware"
	"north-backend/internal/models"
	"north-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// GoogleAuthURL godoc
// @Summary Get Google OAuth2 authentication URL
// @Description Returns the URL where users should be redirected to start the Google OAuth2 flow
// @Tags auth
// @Produce json
// @Success 200 {object} models.AuthURLResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /auth/google/auth-url [get]
func (h *AuthHandler) GoogleAuthURL(c *gin.Context) {
	url, err := h.authService.AuthURL(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "failed to build authorization URL",
		})
		return
	}
	c.JSON(http.StatusOK, models.AuthURLResponse{AuthURL: url})
}

// GoogleAuthCallback godoc
// @Summary Complete the Google OAuth2 flow
// @Description Exchanges the authorization code, provisions the user and returns an API token
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "Opaque state from the auth-url step"
// @Success 200 {object} models.AuthCallbackResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleAuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "No code provided",
		})
		return
	}

	resp, err := h.authService.Callback(c.Request.Context(), code, c.Query("state"))
	if err != nil {
		if errors.Is(err, services.ErrStateNotFound) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Code:    http.StatusBadRequest,
				Message: "invalid or expired state",
			})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "authentication failed",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Profile godoc
// @Summary Get the current user's profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/profile [get]
func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := h.authService.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "user not found",
		})
		return
	}
	c.JSON(http.StatusOK, user)
}
