package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
	"github.com/noah-isme/sma-events-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context) ([]models.Event, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Event, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Event, error)
	ListByDate(ctx context.Context, date string) ([]models.Event, error)
	Create(ctx context.Context, req dto.CreateEventRequest) (*models.Event, error)
	Edit(ctx context.Context, id string, req dto.UpdateEventRequest) (*models.Event, error)
	Delete(ctx context.Context, id string) error
}

type availabilityService interface {
	AvailableTeachers(ctx context.Context, date time.Time) ([]models.UserSummary, error)
	EligibleStudents(ctx context.Context, eventID string) ([]models.UserSummary, error)
}

// EventHandler exposes event scheduling endpoints.
type EventHandler struct {
	events       eventService
	availability availabilityService
}

// NewEventHandler builds a new handler.
func NewEventHandler(events eventService, availability availabilityService) *EventHandler {
	return &EventHandler{events: events, availability: availability}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param date query string false "Calendar date (YYYY-MM-DD)"
// @Param teacherId query string false "Owning teacher"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var (
		events []models.Event
		err    error
	)
	switch {
	case c.Query("date") != "":
		events, err = h.events.ListByDate(c.Request.Context(), c.Query("date"))
	case c.Query("teacherId") != "":
		events, err = h.events.ListByTeacher(c.Request.Context(), c.Query("teacherId"))
	default:
		events, err = h.events.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, map[string]interface{}{"count": len(events)})
}

// Mine godoc
// @Summary List events of the current user
// @Description Teachers get the events they own, students the events they are assigned to
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/events [get]
func (h *EventHandler) Mine(c *gin.Context) {
	claims, ok := currentActor(c)
	if !ok {
		return
	}
	var (
		events []models.Event
		err    error
	)
	switch claims.Role {
	case models.RoleTeacher:
		events, err = h.events.ListByTeacher(c.Request.Context(), claims.UserID)
	case models.RoleStudent:
		events, err = h.events.ListByStudent(c.Request.Context(), claims.UserID)
	default:
		events, err = h.events.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events)
}

// Get godoc
// @Summary Get event detail
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Description Students only see events they are assigned to
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	claims, ok := currentActor(c)
	if !ok {
		return
	}
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if isStudent(claims) {
		joined, err := h.events.ListByStudent(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !containsEvent(joined, event.ID) {
			response.Error(c, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrForbidden, "students can only view events they are assigned to"),
				map[string]interface{}{"event_id": event.ID},
			))
			return
		}
	}
	response.JSON(c, http.StatusOK, event)
}

func containsEvent(events []models.Event, id string) bool {
	for _, e := range events {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Create godoc
// @Summary Create event
// @Description Books an event for a teacher who is free around the date
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.events.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.UpdateEventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event payload"))
		return
	}
	event, err := h.events.Edit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Delete godoc
// @Summary Delete event
// @Description Removes the event with its participation, files and feedback
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EligibleStudents godoc
// @Summary List students who can join an event
// @Tags Availability
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/students/eligible [get]
func (h *EventHandler) EligibleStudents(c *gin.Context) {
	students, err := h.availability.EligibleStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// AvailableTeachers godoc
// @Summary List teachers free around a date
// @Tags Availability
// @Produce json
// @Param date query string true "Calendar date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/available [get]
func (h *EventHandler) AvailableTeachers(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD"))
		return
	}
	teachers, err := h.availability.AvailableTeachers(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers)
}
