// Package services – ProjectService
//
// This file implements ProjectService, the application-level component that
// owns the project lifecycle: URL submission, quota enforcement, screenshot
// capture, AI analysis with a deterministic demo fallback, and archival.
//
// Failure philosophy for Create: the user always receives a project. A dead
// browser or a misbehaving AI backend downgrades the result to demo mode
// instead of surfacing an error; only persistence and quota failures abort.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// project/user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lemtool/lem-backend/internal/ai"
	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/screenshot"
)

// ProjectRepo defines the repository contract required by ProjectService.
type ProjectRepo interface {
	// CreateProject inserts a new project row for the given owner.
	CreateProject(ctx context.Context, db *gorm.DB, ownerID, targetURL string, report domain.AnalysisReport, markers []domain.Marker, screenshotPath string, demoMode bool) (*domain.Project, error)

	// GetProject fetches a project by ID ensuring it belongs to the owner.
	GetProject(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Project, error)

	// GetProjectByID fetches a project by ID alone, for participant flows
	// where the caller is not the owner.
	GetProjectByID(ctx context.Context, db *gorm.DB, id string) (*domain.Project, error)

	// ListProjectsPage returns a page of the owner's projects.
	ListProjectsPage(ctx context.Context, db *gorm.DB, ownerID string, includeArchived bool, offset, limit int) ([]domain.Project, error)

	// CountProjects returns the total number of projects for pagination.
	CountProjects(ctx context.Context, db *gorm.DB, ownerID string, includeArchived bool) (int64, error)

	// SetProjectArchived toggles the archived flag (only for the owner).
	SetProjectArchived(ctx context.Context, db *gorm.DB, id, ownerID string, archived bool) error

	// DeleteProject removes the project and its sessions.
	DeleteProject(ctx context.Context, db *gorm.DB, id, ownerID string) error
}

// EntitlementRepo defines the quota contract required by ProjectService.
type EntitlementRepo interface {
	// GetEntitlement returns the user's quota counters (zero for unknown users).
	GetEntitlement(ctx context.Context, db *gorm.DB, userID string) (*domain.Entitlement, error)

	// ConsumeAnalysis atomically spends one unit of quota.
	ConsumeAnalysis(ctx context.Context, db *gorm.DB, userID string) error
}

// Analyzer produces an annotated analysis of a target URL, optionally guided
// by screenshot chunks of the rendered page.
type Analyzer interface {
	Analyze(ctx context.Context, targetURL string, screenshots [][]byte) (ai.RawAnalysis, error)
}

// Screenshotter captures a full-page screenshot of a URL.
type Screenshotter interface {
	Capture(ctx context.Context, targetURL string) ([]byte, error)
}

// ProjectService coordinates project creation and lifecycle management.
type ProjectService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the project repository used by this service.
	Repo ProjectRepo
	// Quota is the entitlement repository used for quota checks.
	Quota EntitlementRepo

	// AI performs the emotional-response analysis. Optional; when nil every
	// project is created in demo mode.
	AI Analyzer
	// Shots captures page screenshots. Optional; when nil analysis runs
	// without visual context and exports skip the screenshot pages.
	Shots Screenshotter

	// ScreenshotDir is where captured screenshots are stored. Empty disables
	// storage (captures still feed the analyzer).
	ScreenshotDir string
}

// NewProjectService constructs a ProjectService.
func NewProjectService(db *gorm.DB, r ProjectRepo, q EntitlementRepo, analyzer Analyzer, shots Screenshotter, screenshotDir string) *ProjectService {
	return &ProjectService{
		DB:            db,
		Repo:          r,
		Quota:         q,
		AI:            analyzer,
		Shots:         shots,
		ScreenshotDir: screenshotDir,
	}
}

// Create analyzes targetURL and persists the resulting project. The quota is
// checked up front and consumed in the same transaction that stores the
// project, so a failed insert never burns a credit.
func (s *ProjectService) Create(ctx context.Context, userID, targetURL string) (*domain.Project, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	targetURL, err := normalizeTargetURL(targetURL)
	if err != nil {
		return nil, err
	}

	ent, err := s.Quota.GetEntitlement(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if !ent.CanAnalyze() {
		return nil, ErrQuotaExceeded
	}

	shot, shotPath := s.captureAndStore(ctx, targetURL)
	markers, report, demoMode := s.analyze(ctx, targetURL, shot)

	var project *domain.Project
	err = s.inTx(ctx, func(tx *gorm.DB) error {
		p, err := s.Repo.CreateProject(ctx, tx, userID, targetURL, report, markers, shotPath, demoMode)
		if err != nil {
			return err
		}
		project = p
		return s.Quota.ConsumeAnalysis(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// inTx runs fn inside a transaction. A nil DB (unit tests with fake repos)
// runs fn directly.
func (s *ProjectService) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.DB == nil {
		return fn(nil)
	}
	return s.DB.WithContext(ctx).Transaction(fn)
}

// captureAndStore takes a best-effort screenshot and persists it to disk.
// Both steps are allowed to fail; the project is created regardless.
func (s *ProjectService) captureAndStore(ctx context.Context, targetURL string) (shot []byte, path string) {
	if s.Shots == nil {
		return nil, ""
	}
	shot, err := s.Shots.Capture(ctx, targetURL)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("url", targetURL).Msg("screenshot capture failed; continuing without")
		return nil, ""
	}
	if s.ScreenshotDir == "" {
		return shot, ""
	}
	path = filepath.Join(s.ScreenshotDir, uuid.NewString()+".png")
	if err := os.WriteFile(path, shot, 0o644); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("screenshot store failed; continuing without")
		return shot, ""
	}
	return shot, path
}

// analyze runs the AI analysis and falls back to the deterministic demo
// result when the analyzer is unavailable, errors, or returns an unusable
// payload. All failure paths funnel into the same fallback.
func (s *ProjectService) analyze(ctx context.Context, targetURL string, shot []byte) ([]domain.Marker, domain.AnalysisReport, bool) {
	if s.AI == nil {
		ms, report := ai.FallbackAnalysis(targetURL)
		return ms, report, true
	}

	var chunks [][]byte
	if len(shot) > 0 {
		sliced, err := screenshot.SliceChunks(shot)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("screenshot slicing failed; analyzing without images")
		} else {
			chunks = sliced
		}
	}

	raw, err := s.AI.Analyze(ctx, targetURL, chunks)
	if err == nil {
		var ms []domain.Marker
		var report domain.AnalysisReport
		ms, report, err = ai.ToDomain(raw)
		if err == nil {
			return ms, report, false
		}
	}
	log.Ctx(ctx).Warn().Err(err).Str("url", targetURL).Msg("analysis failed; serving demo result")
	ms, report := ai.FallbackAnalysis(targetURL)
	return ms, report, true
}

// Get returns the user's project or ErrProjectNotFound.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	p, err := s.Repo.GetProject(ctx, s.DB, projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPage returns a page of the user's projects. Archived projects are
// hidden unless includeArchived is set. Defaults are applied for invalid
// page/pageSize and the total count is returned for pagination.
func (s *ProjectService) ListPage(ctx context.Context, userID string, includeArchived bool, page, pageSize int) ([]domain.Project, int64, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountProjects(ctx, s.DB, userID, includeArchived)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Project{}, 0, nil
	}

	items, err := s.Repo.ListProjectsPage(ctx, s.DB, userID, includeArchived, offset, pageSize)
	return items, total, err
}

// Archive hides a project from the default listing. The stored analysis and
// sessions are retained.
func (s *ProjectService) Archive(ctx context.Context, userID, projectID string) error {
	return s.setArchived(ctx, userID, projectID, true)
}

// Unarchive restores an archived project to the default listing.
func (s *ProjectService) Unarchive(ctx context.Context, userID, projectID string) error {
	return s.setArchived(ctx, userID, projectID, false)
}

func (s *ProjectService) setArchived(ctx context.Context, userID, projectID string, archived bool) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "setArchived",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.Bool("archived", archived),
		),
	)
	defer span.End()

	err := s.Repo.SetProjectArchived(ctx, s.DB, projectID, userID, archived)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProjectNotFound
	}
	return err
}

// Delete removes the project and its sessions.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	// Ensure ownership before deleting so a foreign ID maps to not-found.
	if _, err := s.Repo.GetProject(ctx, s.DB, projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return err
	}
	return s.Repo.DeleteProject(ctx, s.DB, projectID, userID)
}

// Entitlement returns the user's current quota counters.
func (s *ProjectService) Entitlement(ctx context.Context, userID string) (*domain.Entitlement, error) {
	return s.Quota.GetEntitlement(ctx, s.DB, userID)
}

// normalizeTargetURL validates the submitted URL and strips surrounding
// whitespace. Only absolute http/https URLs with a host are accepted.
func normalizeTargetURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidURL
	}
	return u.String(), nil
}
