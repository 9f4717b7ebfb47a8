package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"north-backend/internal/api/middleware"
	"north-backend/internal/models"
	"north-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type DriveHandler struct {
	driveService *services.DriveService
}

func NewDriveHandler(driveService *services.DriveService) *DriveHandler {
	return &DriveHandler{driveService: driveService}
}

// ListFiles godoc
// @Summary List the caller's Google Drive files
// @Description Lists files from Drive and refreshes the local mirror
// @Tags drive
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DriveFile
// @Failure 400 {object} models.ErrorResponse
// @Router /drive/files [get]
func (h *DriveHandler) ListFiles(c *gin.Context) {
	files, err := h.driveService.ListFiles(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeDriveError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

// DirectList godoc
// @Summary List Drive files without touching the local mirror
// @Tags drive
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DriveItem
// @Failure 400 {object} models.ErrorResponse
// @Router /drive/files/direct [get]
func (h *DriveHandler) DirectList(c *gin.Context) {
	items, err := h.driveService.DirectList(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeDriveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": items})
}

// Upload godoc
// @Summary Upload a file to the caller's Google Drive
// @Tags drive
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Param folder_id formData string false "Destination folder ID"
// @Success 201 {object} models.DriveFile
// @Failure 400 {object} models.ErrorResponse
// @Router /drive/files/upload [post]
func (h *DriveHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "No file provided",
		})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "failed to read uploaded file",
		})
		return
	}
	defer src.Close()

	file, err := h.driveService.Upload(
		c.Request.Context(),
		middleware.UserID(c),
		header.Filename,
		header.Header.Get("Content-Type"),
		src,
		header.Size,
		c.PostForm("folder_id"),
	)
	if err != nil {
		writeDriveError(c, err)
		return
	}

	c.JSON(http.StatusCreated, file)
}

// Download godoc
// @Summary Download a mirrored Drive file
// @Description Streams the file content from Google Drive through the server
// @Tags drive
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Mirrored file ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /drive/files/{id}/download [get]
func (h *DriveHandler) Download(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid file id",
		})
		return
	}

	body, file, err := h.driveService.Download(c.Request.Context(), middleware.UserID(c), uint(id))
	if err != nil {
		writeDriveError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	if file.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(file.Size, 10))
	}

	if _, err := io.Copy(c.Writer, body); err != nil {
		// Headers are already out; all we can do is stop.
		c.Abort()
	}
}

// ImportFile godoc
// @Summary Import a Drive file into the local mirror
// @Description Fetches the file's metadata from Drive and upserts the mirror row
// @Tags drive
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ImportFileRequest true "Drive file ID"
// @Success 201 {object} models.DriveFile
// @Failure 400 {object} models.ErrorResponse
// @Router /drive/files/import [post]
func (h *DriveHandler) ImportFile(c *gin.Context) {
	var req models.ImportFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
			Details: err.Error(),
		})
		return
	}

	file, err := h.driveService.ImportFile(c.Request.Context(), middleware.UserID(c), req.FileID)
	if err != nil {
		writeDriveError(c, err)
		return
	}

	c.JSON(http.StatusCreated, file)
}

// PickerConfig godoc
// @Summary Get configuration for the Google Picker widget
// @Tags drive
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.PickerConfigResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /drive/picker-config [get]
func (h *DriveHandler) PickerConfig(c *gin.Context) {
	cfg, err := h.driveService.PickerConfig(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeDriveError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func writeDriveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDriveNotConnected):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Google Drive is not connected for this account",
		})
	case errors.Is(err, services.ErrFileNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: "file not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "drive request failed",
			Details: err.Error(),
		})
	}
}
