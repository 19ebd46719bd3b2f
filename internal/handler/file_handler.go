package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
	"github.com/noah-isme/sma-events-api/pkg/response"
)

type fileService interface {
	Upload(ctx context.Context, req dto.UploadFileRequest) (*models.EventFile, error)
	Review(ctx context.Context, req dto.ReviewFileRequest) (*models.Feedback, error)
	GetContent(ctx context.Context, fileID string) (*models.EventFile, error)
	ListFiles(ctx context.Context, eventID, userID string) ([]models.EventFile, error)
	ListFeedback(ctx context.Context, eventID, userID string) ([]models.FeedbackView, error)
}

// FileHandler exposes submission upload, review and download endpoints.
type FileHandler struct {
	service  fileService
	maxBytes int64
}

// NewFileHandler builds a new handler. maxBytes bounds how much of a multipart file is read.
func NewFileHandler(service fileService, maxBytes int64) *FileHandler {
	return &FileHandler{service: service, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload a PDF submission
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Event ID"
// @Param file formData file true "PDF file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /events/{id}/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	claims, ok := currentActor(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	src, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
		return
	}
	defer src.Close() //nolint:errcheck

	var reader io.Reader = src
	if h.maxBytes > 0 {
		reader = io.LimitReader(src, h.maxBytes+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read upload"))
		return
	}

	file, err := h.service.Upload(c.Request.Context(), dto.UploadFileRequest{
		EventID:  c.Param("id"),
		UserID:   claims.UserID,
		FileName: header.Filename,
		Content:  content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// Review godoc
// @Summary Approve or decline a submission
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param payload body dto.ReviewFileRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /files/{id}/review [post]
func (h *FileHandler) Review(c *gin.Context) {
	claims, ok := currentActor(c)
	if !ok {
		return
	}
	var req dto.ReviewFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	req.FileID = c.Param("id")
	req.ReviewerID = claims.UserID
	feedback, err := h.service.Review(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback)
}

// Download godoc
// @Summary Download a submission
// @Tags Files
// @Produce application/pdf
// @Param id path string true "File ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	claims, ok := currentActor(c)
	if !ok {
		return
	}
	file, err := h.service.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if isStudent(claims) && file.UserID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students can only download their own files"))
		return
	}
	response.Attachment(c, file.Name, "application/pdf", file.Content)
}

// Files godoc
// @Summary List submissions of a user for an event
// @Tags Files
// @Produce json
// @Param id path string true "Event ID"
// @Param userId query string false "Student ID (ignored for students)"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/files [get]
func (h *FileHandler) Files(c *gin.Context) {
	userID, ok := h.subject(c)
	if !ok {
		return
	}
	files, err := h.service.ListFiles(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files)
}

// Feedback godoc
// @Summary List reviewer feedback for a user's submissions
// @Tags Files
// @Produce json
// @Param id path string true "Event ID"
// @Param userId query string false "Student ID (ignored for students)"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/feedback [get]
func (h *FileHandler) Feedback(c *gin.Context) {
	userID, ok := h.subject(c)
	if !ok {
		return
	}
	items, err := h.service.ListFeedback(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}

// subject resolves whose submissions are listed: students always see their own.
func (h *FileHandler) subject(c *gin.Context) (string, bool) {
	claims, ok := currentActor(c)
	if !ok {
		return "", false
	}
	if isStudent(claims) {
		return claims.UserID, true
	}
	userID := c.Query("userId")
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "userId query parameter is required"))
		return "", false
	}
	return userID, true
}
