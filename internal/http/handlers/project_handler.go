// Project HTTP handlers.
//
// This file exposes REST endpoints for project resources:
//   - POST   /projects                  (submit a URL for analysis)
//   - GET    /projects                  (list, paginated, ETag support)
//   - GET    /projects/{id}            (fetch one project with its analysis)
//   - POST   /projects/{id}/archive    (hide from default listing)
//   - POST   /projects/{id}/unarchive  (restore to default listing)
//   - DELETE /projects/{id}            (remove project and sessions)
//   - GET    /entitlement              (current quota counters)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/markers"
	"github.com/lemtool/lem-backend/internal/repo"
	"github.com/lemtool/lem-backend/internal/services"
	"github.com/lemtool/lem-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ProjectService defines project lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ProjectService interface {
	// Create analyzes targetURL for userID and returns the stored project.
	Create(ctx context.Context, userID, targetURL string) (*domain.Project, error)
	// Get fetches one project owned by userID.
	Get(ctx context.Context, userID, projectID string) (*domain.Project, error)
	// ListPage returns a page of the user's projects and the total count.
	ListPage(ctx context.Context, userID string, includeArchived bool, page, pageSize int) ([]domain.Project, int64, error)
	// Archive hides a project from the default listing.
	Archive(ctx context.Context, userID, projectID string) error
	// Unarchive restores an archived project.
	Unarchive(ctx context.Context, userID, projectID string) error
	// Delete removes the project and its sessions.
	Delete(ctx context.Context, userID, projectID string) error
	// Entitlement returns the user's quota counters.
	Entitlement(ctx context.Context, userID string) (*domain.Entitlement, error)
}

// SessionService defines test-session operations consumed by HTTP handlers.
type SessionService interface {
	// Submit stores a participant's marker batch as a new session.
	Submit(ctx context.Context, projectID, participantName string, ms []domain.Marker) (*domain.TestSession, error)
	// List returns the project's sessions in arrival order.
	List(ctx context.Context, userID, projectID string) ([]domain.TestSession, error)
}

// ReportService defines report assembly operations consumed by HTTP handlers.
type ReportService interface {
	// Build assembles the report overview under the given toggles and view.
	Build(ctx context.Context, userID, projectID string, t markers.Toggles, v markers.View) (*services.Overview, error)
}

// ExportService defines document export operations consumed by HTTP handlers.
type ExportService interface {
	// PDF renders the full project report as PDF bytes.
	PDF(ctx context.Context, userID, projectID string) ([]byte, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for projects, sessions, reports, and exports.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	projectSvc ProjectService
	sessionSvc SessionService
	reportSvc  ReportService
	exportSvc  ExportService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(projectSvc ProjectService, sessionSvc SessionService, reportSvc ReportService, exportSvc ExportService) *Handlers {
	return &Handlers{projectSvc: projectSvc, sessionSvc: sessionSvc, reportSvc: reportSvc, exportSvc: exportSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateProjectRequest is the JSON payload for submitting a URL for analysis.
type CreateProjectRequest struct {
	// TargetURL is the page to analyze. Must be absolute http/https.
	TargetURL string `json:"target_url" binding:"required,min=1" example:"https://example.com/landing"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListProjectsResponse wraps a page of projects and pagination information.
type ListProjectsResponse struct {
	Projects   []domain.Project `json:"projects"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// boolQuery reads a query parameter as a boolean with a default.
func boolQuery(c *gin.Context, key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

//
// Handlers
//

// CreateProject godoc
// @ID          createProject
// @Summary     Analyze a URL and create a project
// @Description Submits a URL for AI analysis. The response carries the annotated
// @Description markers and the generated report; demo_mode is true when the live
// @Description analysis was unavailable and a deterministic sample was served.
// @Tags        Projects
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.CreateProjectRequest  true  "Analysis request"
//
// @Success     201  {object}  domain.Project
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse  "Quota exhausted"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /projects [post]
func (h *Handlers) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "target_url required")
		return
	}

	p, err := h.projectSvc.Create(c.Request.Context(), userID(c), req.TargetURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidURL):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "target_url must be an absolute http(s) URL")
		case errors.Is(err, services.ErrQuotaExceeded):
			fail(c, http.StatusPaymentRequired, ErrCodeQuotaExceeded, "analysis quota exhausted")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListProjects godoc
// @ID          listProjects
// @Summary     List projects (paginated)
// @Description Returns a page of the user's projects. Archived projects are hidden
// @Description unless include_archived=true. Supports weak ETag via If-None-Match.
// @Tags        Projects
// @Produce     json
//
// @Param       X-User-ID         header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match     header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       include_archived  query   bool    false "Include archived projects"   default(false)
// @Param       page              query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size         query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListProjectsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /projects [get]
func (h *Handlers) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)
	includeArchived := boolQuery(c, "include_archived", false)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.projectSvc.(*services.ProjectService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ProjectsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"projects:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.projectSvc.ListPage(ctx, uid, includeArchived, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListProjectsResponse{
		Projects: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetProject godoc
// @ID          getProject
// @Summary     Fetch one project
// @Description Returns a project with its stored analysis report and AI markers.
// @Tags        Projects
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Project ID (UUID)"      format(uuid)
//
// @Success     200  {object} domain.Project
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Project not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /projects/{id} [get]
func (h *Handlers) GetProject(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := uuid.Parse(projectID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "project id must be a UUID")
		return
	}

	p, err := h.projectSvc.Get(c.Request.Context(), userID(c), projectID)
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, p)
}

// ArchiveProject godoc
// @ID          archiveProject
// @Summary     Archive a project
// @Description Hides the project from the default listing. Data is retained.
// @Tags        Projects
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Project ID (UUID)"      format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Project not found"
// @Router      /projects/{id}/archive [post]
func (h *Handlers) ArchiveProject(c *gin.Context) {
	h.setArchived(c, true)
}

// UnarchiveProject godoc
// @ID          unarchiveProject
// @Summary     Unarchive a project
// @Description Restores an archived project to the default listing.
// @Tags        Projects
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Project ID (UUID)"      format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Project not found"
// @Router      /projects/{id}/unarchive [post]
func (h *Handlers) UnarchiveProject(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *Handlers) setArchived(c *gin.Context, archived bool) {
	projectID := c.Param("id")
	if _, err := uuid.Parse(projectID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "project id must be a UUID")
		return
	}

	var err error
	if archived {
		err = h.projectSvc.Archive(c.Request.Context(), userID(c), projectID)
	} else {
		err = h.projectSvc.Unarchive(c.Request.Context(), userID(c), projectID)
	}
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// DeleteProject godoc
// @ID          deleteProject
// @Summary     Delete a project
// @Description Removes the project and every test session recorded under it.
// @Tags        Projects
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Project ID (UUID)"      format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Project not found"
// @Router      /projects/{id} [delete]
func (h *Handlers) DeleteProject(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := uuid.Parse(projectID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "project id must be a UUID")
		return
	}

	if err := h.projectSvc.Delete(c.Request.Context(), userID(c), projectID); err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// GetEntitlement godoc
// @ID          getEntitlement
// @Summary     Current analysis quota
// @Description Returns the user's remaining monthly analyses and pack credits.
// @Tags        Entitlement
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object} domain.Entitlement
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /entitlement [get]
func (h *Handlers) GetEntitlement(c *gin.Context) {
	e, err := h.projectSvc.Entitlement(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, e)
}
