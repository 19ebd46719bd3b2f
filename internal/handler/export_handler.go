package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/pkg/response"
)

type rosterExporter interface {
	ExportRoster(ctx context.Context, eventID string, format dto.ExportFormat) (*dto.RosterExport, error)
}

// ExportHandler streams event rosters.
type ExportHandler struct {
	service rosterExporter
}

// NewExportHandler builds a new handler.
func NewExportHandler(service rosterExporter) *ExportHandler {
	return &ExportHandler{service: service}
}

// Roster godoc
// @Summary Download an event roster
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Event ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id}/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	out, err := h.service.ExportRoster(c.Request.Context(), c.Param("id"), dto.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, out.FileName, out.ContentType, out.Content)
}
