package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
	"github.com/noah-isme/sma-events-api/pkg/response"
)

type assignmentService interface {
	Assign(ctx context.Context, req dto.AssignRequest) (*models.Assignment, error)
	Unassign(ctx context.Context, eventID, userID string) error
}

// AssignmentHandler attaches teachers and students to events.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler builds a new handler.
func NewAssignmentHandler(service assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// Assign godoc
// @Summary Assign a teacher or student to an event
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.AssignRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/assignments [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	req.EventID = c.Param("id")
	assignment, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Unassign godoc
// @Summary Remove a student from an event
// @Tags Assignments
// @Param id path string true "Event ID"
// @Param userId path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/assignments/{userId} [delete]
func (h *AssignmentHandler) Unassign(c *gin.Context) {
	if err := h.service.Unassign(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
