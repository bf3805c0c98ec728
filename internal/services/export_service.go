// Package services – ExportService
//
// This file implements ExportService, which renders a project's full report
// as a downloadable PDF: analysis summary, AI vs human statistics, and the
// stored screenshot paginated across A4 pages.
package services

import (
	"context"
	"errors"
	"os"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rs/zerolog/log"

	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/export"
	"github.com/lemtool/lem-backend/internal/insights"
	"github.com/lemtool/lem-backend/internal/markers"
)

// ExportService renders project reports into portable documents.
type ExportService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Projects is the project repository used by this service.
	Projects ProjectRepo
	// Sessions is the session repository used by this service.
	Sessions SessionRepo
}

// NewExportService constructs an ExportService.
func NewExportService(db *gorm.DB, projects ProjectRepo, sessions SessionRepo) *ExportService {
	return &ExportService{DB: db, Projects: projects, Sessions: sessions}
}

// PDF renders the project's report as PDF bytes. The export always covers
// the full marker set from every source; view filters apply to the live
// report only. A missing or unreadable screenshot file degrades to a
// text-only document rather than failing the export.
func (s *ExportService) PDF(ctx context.Context, userID, projectID string) ([]byte, error) {
	tr := otel.Tracer("services/ExportService")
	ctx, span := tr.Start(ctx, "PDF",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	project, err := s.Projects.GetProject(ctx, s.DB, projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	sessions, err := s.Sessions.ListSessions(ctx, s.DB, projectID)
	if err != nil {
		return nil, err
	}

	merged := markers.Aggregate(project.Markers.Data(), sessions, markers.AllSources)
	aiCount := 0
	for _, m := range merged {
		if m.Source == domain.SourceAI {
			aiCount++
		}
	}
	ratio := insights.PositiveRatio(merged)

	doc := export.Document{
		TargetURL:     project.TargetURL,
		DemoMode:      project.DemoMode,
		Report:        project.Report.Data(),
		Breakdown:     insights.EmotionBreakdown(merged, insights.TopEmotions),
		PositiveRatio: ratio,
		Band:          insights.SentimentBand(ratio),
		Sessions:      insights.SessionBreakdown(sessions),
		AIMarkers:     aiCount,
		HumanMarkers:  len(merged) - aiCount,
	}

	if project.ScreenshotPath != "" {
		shot, err := os.ReadFile(project.ScreenshotPath)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", project.ScreenshotPath).Msg("screenshot unreadable; exporting without")
		} else {
			doc.Screenshot = shot
		}
	}

	return export.RenderPDF(doc)
}
