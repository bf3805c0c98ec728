// Package services – ReportService
//
// This file implements ReportService, which assembles the combined AI/human
// report view for a project: the merged marker overlay (with styling), the
// emotion breakdown, the sentiment band, and per-session statistics.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/insights"
	"github.com/lemtool/lem-backend/internal/markers"
)

// Overview is the assembled report state for one project under a given
// source toggle and filter combination.
type Overview struct {
	// Project is the underlying project row, report document included.
	Project *domain.Project
	// Markers is the merged, filtered, display-ready marker overlay.
	Markers []markers.Styled
	// Breakdown lists the most frequent emotions among the visible markers.
	Breakdown []insights.EmotionCount
	// PositiveRatio is the percentage of visible emotion markers whose
	// emotion category is positive.
	PositiveRatio float64
	// Band is the human-readable sentiment summary derived from the ratio.
	Band string
	// Sessions summarizes each test session regardless of the active filter.
	Sessions []insights.SessionStats
}

// ReportService builds report overviews from stored projects and sessions.
type ReportService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Projects is the project repository used by this service.
	Projects ProjectRepo
	// Sessions is the session repository used by this service.
	Sessions SessionRepo
}

// NewReportService constructs a ReportService.
func NewReportService(db *gorm.DB, projects ProjectRepo, sessions SessionRepo) *ReportService {
	return &ReportService{DB: db, Projects: projects, Sessions: sessions}
}

// Build assembles the report overview for a project. Toggles select which
// sources contribute markers; the view narrows them further. Statistics are
// computed over the markers that survive both.
func (s *ReportService) Build(ctx context.Context, userID, projectID string, t markers.Toggles, v markers.View) (*Overview, error) {
	tr := otel.Tracer("services/ReportService")
	ctx, span := tr.Start(ctx, "Build",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.Bool("toggle.ai", t.AI),
			attribute.Bool("toggle.human", t.Human),
		),
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

	merged := markers.Aggregate(project.Markers.Data(), sessions, t)
	visible := markers.Filter(merged, v)

	// Statistics run over the visible overlay so the numbers always match
	// what the user is looking at.
	flat := make([]domain.Marker, len(visible))
	for i, sm := range visible {
		flat[i] = sm.Marker
	}
	ratio := insights.PositiveRatio(flat)

	return &Overview{
		Project:       project,
		Markers:       visible,
		Breakdown:     insights.EmotionBreakdown(flat, insights.TopEmotions),
		PositiveRatio: ratio,
		Band:          insights.SentimentBand(ratio),
		Sessions:      insights.SessionBreakdown(sessions),
	}, nil
}
