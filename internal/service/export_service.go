package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
	"github.com/noah-isme/sma-events-api/pkg/export"
)

type rosterReader interface {
	ListByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) ([]models.ParticipantDetail, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportService renders event rosters for download.
type ExportService struct {
	events       eventFinder
	participants rosterReader
	csv          datasetRenderer
	pdf          datasetRenderer
	logger       *zap.Logger
}

// NewExportService constructs the roster exporter.
func NewExportService(events eventFinder, participants rosterReader, csv, pdf datasetRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{events: events, participants: participants, csv: csv, pdf: pdf, logger: logger}
}

// ExportRoster renders the participants of an event as CSV or PDF.
func (s *ExportService) ExportRoster(ctx context.Context, eventID string, format dto.ExportFormat) (*dto.RosterExport, error) {
	format = dto.ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = dto.ExportFormatCSV
	}
	if format != dto.ExportFormatCSV && format != dto.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	event, err := s.events.FindByID(ctx, nil, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, classify(err, "failed to load event")
	}
	participants, err := s.participants.ListByEvent(ctx, nil, event.ID)
	if err != nil {
		return nil, classify(err, "failed to load roster")
	}

	dataset := export.Dataset{
		Title: event.Name,
		Subtitle: []string{
			fmt.Sprintf("%s %s-%s", event.Date.Format(dateLayout), event.StartTime, event.EndTime),
			fmt.Sprintf("%s, teacher %s", event.Venue, event.TeacherID),
		},
		Headers: []string{"User ID", "Name", "Responsibility"},
		Rows:    make([][]string, 0, len(participants)),
	}
	for _, p := range participants {
		dataset.Rows = append(dataset.Rows, []string{p.UserID, p.UserName, p.Responsibility})
	}

	out := &dto.RosterExport{FileName: fmt.Sprintf("%s_roster.%s", event.ID, format)}
	switch format {
	case dto.ExportFormatPDF:
		out.ContentType = "application/pdf"
		out.Content, err = s.pdf.Render(dataset)
	default:
		out.ContentType = "text/csv"
		out.Content, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.logger.Info("roster exported", zap.String("event_id", event.ID), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return out, nil
}
