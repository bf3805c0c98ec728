// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/lemtool/lem-backend/internal/config"
	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/http/handlers"
	"github.com/lemtool/lem-backend/internal/http/middleware"
	"github.com/lemtool/lem-backend/internal/repo"
	"github.com/lemtool/lem-backend/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	_ "github.com/lemtool/lem-backend/docs"
)

// projectRepoShim adapts the repository free functions to the
// services.ProjectRepo interface expected by the ProjectService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type projectRepoShim struct{}

// CreateProject proxies repo.CreateProject.
func (projectRepoShim) CreateProject(ctx context.Context, db *gorm.DB, ownerID, targetURL string, report domain.AnalysisReport, markers []domain.Marker, screenshotPath string, demoMode bool) (*domain.Project, error) {
	return repo.CreateProject(ctx, db, ownerID, targetURL, report, markers, screenshotPath, demoMode)
}

// GetProject proxies repo.GetProject.
func (projectRepoShim) GetProject(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Project, error) {
	return repo.GetProject(ctx, db, id, ownerID)
}

// GetProjectByID proxies repo.GetProjectByID (participant submission).
func (projectRepoShim) GetProjectByID(ctx context.Context, db *gorm.DB, id string) (*domain.Project, error) {
	return repo.GetProjectByID(ctx, db, id)
}

// ListProjectsPage proxies repo.ListProjectsPage (pagination support).
func (projectRepoShim) ListProjectsPage(ctx context.Context, db *gorm.DB, ownerID string, includeArchived bool, offset, limit int) ([]domain.Project, error) {
	return repo.ListProjectsPage(ctx, db, ownerID, includeArchived, offset, limit)
}

// CountProjects proxies repo.CountProjects (pagination support).
func (projectRepoShim) CountProjects(ctx context.Context, db *gorm.DB, ownerID string, includeArchived bool) (int64, error) {
	return repo.CountProjects(ctx, db, ownerID, includeArchived)
}

// SetProjectArchived proxies repo.SetProjectArchived.
func (projectRepoShim) SetProjectArchived(ctx context.Context, db *gorm.DB, id, ownerID string, archived bool) error {
	return repo.SetProjectArchived(ctx, db, id, ownerID, archived)
}

// DeleteProject proxies repo.DeleteProject.
func (projectRepoShim) DeleteProject(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	return repo.DeleteProject(ctx, db, id, ownerID)
}

// sessionRepoShim adapts the repository free functions to services.SessionRepo.
type sessionRepoShim struct{}

// CreateSession proxies repo.CreateSession.
func (sessionRepoShim) CreateSession(ctx context.Context, db *gorm.DB, id, projectID, participantName string, ms []domain.Marker) (*domain.TestSession, error) {
	return repo.CreateSession(ctx, db, id, projectID, participantName, ms)
}

// ListSessions proxies repo.ListSessions.
func (sessionRepoShim) ListSessions(ctx context.Context, db *gorm.DB, projectID string) ([]domain.TestSession, error) {
	return repo.ListSessions(ctx, db, projectID)
}

// CountSessions proxies repo.CountSessions.
func (sessionRepoShim) CountSessions(ctx context.Context, db *gorm.DB, projectID string) (int64, error) {
	return repo.CountSessions(ctx, db, projectID)
}

// entitlementRepoShim adapts the repository free functions to
// services.EntitlementRepo.
type entitlementRepoShim struct{}

// GetEntitlement proxies repo.GetEntitlement.
func (entitlementRepoShim) GetEntitlement(ctx context.Context, db *gorm.DB, userID string) (*domain.Entitlement, error) {
	return repo.GetEntitlement(ctx, db, userID)
}

// ConsumeAnalysis proxies repo.ConsumeAnalysis.
func (entitlementRepoShim) ConsumeAnalysis(ctx context.Context, db *gorm.DB, userID string) error {
	return repo.ConsumeAnalysis(ctx, db, userID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// The analyzer and screenshotter are injected so the caller decides whether
// live analysis and capture are available; either may be nil, in which case
// projects fall back to demo mode and screenshots are skipped.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Response compression (PDF exports excluded)
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, analyzer services.Analyzer, shots services.Screenshotter, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses; PDFs are already compressed
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".pdf"}),
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, projectID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, projectID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (opt-in)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/analyzer/capturer
	projectSvc := services.NewProjectService(db, projectRepoShim{}, entitlementRepoShim{}, analyzer, shots, cfg.Screenshot.Dir)
	sessionSvc := services.NewSessionService(db, sessionRepoShim{}, projectRepoShim{})
	sessionSvc.MinMarkers = cfg.MinSessionMarkers
	sessionSvc.NameLocale = language.English
	reportSvc := services.NewReportService(db, projectRepoShim{}, sessionRepoShim{})
	exportSvc := services.NewExportService(db, projectRepoShim{}, sessionRepoShim{})
	h := handlers.New(projectSvc, sessionSvc, reportSvc, exportSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Projects
		api.POST("/projects", h.CreateProject)
		api.GET("/projects", h.ListProjects)
		api.GET("/projects/:id", h.GetProject)
		api.DELETE("/projects/:id", h.DeleteProject)
		api.POST("/projects/:id/archive", h.ArchiveProject)
		api.POST("/projects/:id/unarchive", h.UnarchiveProject)

		// Test sessions
		api.POST("/projects/:id/sessions", h.SubmitSession)
		api.GET("/projects/:id/sessions", h.ListSessions)

		// Report and export
		api.GET("/projects/:id/report", h.GetReport)
		api.GET("/projects/:id/export.pdf", h.ExportPDF)

		// Quota
		api.GET("/entitlement", h.GetEntitlement)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
