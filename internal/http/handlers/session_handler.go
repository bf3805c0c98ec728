// Test session HTTP handlers.
//
// This file exposes REST endpoints for human test sessions:
//   - POST /projects/{id}/sessions   (submit a participant's marker batch)
//   - GET  /projects/{id}/sessions   (list a project's sessions)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (marker batch, participant name)
//   - delegate to application services (SessionService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, project, key), the handler returns that recorded
// session and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/repo"
	"github.com/lemtool/lem-backend/internal/services"
)

//
// DTOs
//

// SubmitSessionRequest is the JSON payload for recording a test session.
type SubmitSessionRequest struct {
	// ParticipantName labels the session in reports. Optional.
	ParticipantName string `json:"participant_name" example:"Alex Smith"`
	// Markers is the participant's full marker batch.
	Markers []domain.Marker `json:"markers" binding:"required,min=1"`
}

// ListSessionsResponse wraps a project's sessions.
type ListSessionsResponse struct {
	Sessions []domain.TestSession `json:"sessions"`
}

//
// Handlers
//

// SubmitSession godoc
// @ID          submitSession
// @Summary     Record a test session
// @Description Stores a participant's marker batch as one atomic session.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Project ID (UUID)"      format(uuid)
// @Param       body             body    handlers.SubmitSessionRequest  true  "Session payload"
//
// @Success     201  {object}  domain.TestSession
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Project not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Project archived"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /projects/{id}/sessions [post]
func (h *Handlers) SubmitSession(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	if _, err := uuid.Parse(projectID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "project id must be a UUID")
		return
	}

	var req SubmitSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "markers required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if idemKey != "" {
		if svc, okSvc := h.sessionSvc.(*services.SessionService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, projectID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetSession(ctx, svc.DB, rec.SessionID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, prev)
					return
				}
			}
		}
	}

	sess, err := h.sessionSvc.Submit(ctx, projectID, req.ParticipantName, req.Markers)
	if err != nil {
		var tooFew services.ErrTooFewMarkers
		switch {
		case errors.As(err, &tooFew):
			fail(c, http.StatusBadRequest, ErrCodeTooFewMarkers,
				fmt.Sprintf("at least %d markers required, got %d", tooFew.Min, tooFew.Got))
		case err == services.ErrInvalidMarker:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "marker layer and payload do not match")
		case err == services.ErrProjectNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
		case err == services.ErrProjectArchived:
			fail(c, http.StatusConflict, ErrCodeProjectArchived, "project is archived")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.sessionSvc.(*services.SessionService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, projectID, idemKey, sess.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, sess)
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List test sessions
// @Description Returns the project's sessions in arrival order. Supports weak ETag.
// @Tags        Sessions
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       id             path    string  true  "Project ID (UUID)"           format(uuid)
//
// @Success     200  {object} handlers.ListSessionsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Project not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /projects/{id}/sessions [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	if _, err := uuid.Parse(projectID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "project id must be a UUID")
		return
	}

	currentUser := userID(c)

	// ETag pre-check (best effort). Sessions are immutable, so count plus
	// latest CreatedAt fully describes the collection. The stats run only
	// after the project is confirmed to belong to the caller, so a 404
	// response carries no ETag derived from someone else's data.
	var db *gorm.DB
	if svc, ok := h.sessionSvc.(*services.SessionService); ok {
		db = svc.DB
	}
	if db != nil {
		if _, err := repo.GetProject(ctx, db, projectID, currentUser); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
				return
			}
			// Other errors fall through; List surfaces them uniformly.
		} else if count, maxTS, err := repo.SessionsStats(ctx, db, projectID); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"sessions:%s:%d:%d"`, projectID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.sessionSvc.List(ctx, currentUser, projectID)
	if err != nil {
		if err == services.ErrProjectNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListSessionsResponse{Sessions: items})
}
