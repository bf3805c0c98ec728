// Report and export HTTP handlers.
//
// This file exposes the assembled report view and the PDF export:
//   - GET /projects/{id}/report      (merged AI/human overlay plus statistics)
//   - GET /projects/{id}/export.pdf  (full report as a downloadable PDF)
//
// The report endpoint is where the source toggles and view filters live:
// everything is expressed as query parameters so the frontend can re-request
// the exact overlay state it renders.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/insights"
	"github.com/lemtool/lem-backend/internal/markers"
	"github.com/lemtool/lem-backend/internal/services"
)

//
// DTOs
//

// ReportResponse is the assembled report state for one project.
type ReportResponse struct {
	ProjectID     string                  `json:"project_id"`
	TargetURL     string                  `json:"target_url"`
	DemoMode      bool                    `json:"demo_mode"`
	Report        domain.AnalysisReport   `json:"report"`
	Markers       []markers.Styled        `json:"markers"`
	Breakdown     []insights.EmotionCount `json:"breakdown"`
	PositiveRatio float64                 `json:"positive_ratio"`
	Band          string                  `json:"band"`
	Sessions      []insights.SessionStats `json:"sessions"`
}

//
// Helpers
//

// reportFilters parses the toggle and view query parameters. Unknown values
// fall back to the defaults instead of failing the request, except the layer,
// which is validated because a typo there silently empties the overlay.
func reportFilters(c *gin.Context) (markers.Toggles, markers.View, error) {
	t := markers.Toggles{
		AI:    boolQuery(c, "ai", true),
		Human: boolQuery(c, "human", true),
	}

	v := markers.DefaultView()
	if raw := strings.TrimSpace(c.Query("layer")); raw != "" {
		layer := domain.Layer(raw)
		if !layer.Valid() {
			return t, v, fmt.Errorf("unknown layer %q", raw)
		}
		v.Layer = layer
	}
	switch c.Query("shape") {
	case string(markers.ShapeAreas):
		v.Shape = markers.ShapeAreas
	case string(markers.ShapePoints), "":
		v.Shape = markers.ShapePoints
	}
	switch c.Query("source") {
	case string(markers.SourceAI):
		v.Source = markers.SourceAI
	case string(markers.SourceHuman):
		v.Source = markers.SourceHuman
	default:
		v.Source = markers.SourceAll
	}
	if p := strings.TrimSpace(c.Query("participant")); p != "" {
		v.Participant = p
	}
	return t, v, nil
}

//
// Handlers
//

// GetReport godoc
// @ID          getReport
// @Summary     Assembled project report
// @Description Returns the merged AI/human marker overlay with per-marker styling,
// @Description the emotion breakdown, the sentiment band, and session statistics.
// @Description Toggles and filters are query parameters; statistics follow the
// @Description visible overlay.
// @Tags        Reports
// @Produce     json
//
// @Param       X-User-ID    header  string  false "User ID (demo header)"  example(user123)
// @Param       id           path    string  true  "Project ID (UUID)"      format(uuid)
// @Param       ai           query   bool    false "Include AI markers"     default(true)
// @Param       human        query   bool    false "Include human markers"  default(true)
// @Param       layer        query   string  false "Marker layer"           Enums(emotions, needs, strategy) default(emotions)
// @Param       shape        query   string  false "Marker shape"           Enums(points, areas) default(points)
// @Param       source       query   string  false "Source filter"          Enums(all, ai, human) default(all)
// @Param       participant  query   string  false "Participant filter: all, ai-only, or a session id" default(all)
//
// @Success     200  {object} handlers.ReportResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Project not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /projects/{id}/report [get]
func (h *Handlers) GetReport(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := uuid.Parse(projectID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "project id must be a UUID")
		return
	}

	toggles, view, err := reportFilters(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	ov, err := h.reportSvc.Build(c.Request.Context(), userID(c), projectID, toggles, view)
	if err != nil {
		if err == services.ErrProjectNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, ReportResponse{
		ProjectID:     ov.Project.ID,
		TargetURL:     ov.Project.TargetURL,
		DemoMode:      ov.Project.DemoMode,
		Report:        ov.Project.Report.Data(),
		Markers:       ov.Markers,
		Breakdown:     ov.Breakdown,
		PositiveRatio: ov.PositiveRatio,
		Band:          ov.Band,
		Sessions:      ov.Sessions,
	})
}

// ExportPDF godoc
// @ID          exportPDF
// @Summary     Export the report as PDF
// @Description Renders the full report (all sources, all layers) as a PDF with the
// @Description screenshot paginated across A4 pages.
// @Tags        Reports
// @Produce     application/pdf
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Project ID (UUID)"      format(uuid)
//
// @Success     200  {file}   file "PDF document"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Project not found"
// @Failure     500  {object} handlers.ErrorResponse "Export failed"
// @Router      /projects/{id}/export.pdf [get]
func (h *Handlers) ExportPDF(c *gin.Context) {
	projectID := c.Param("id")
	if _, err := uuid.Parse(projectID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "project id must be a UUID")
		return
	}

	pdf, err := h.exportSvc.PDF(c.Request.Context(), userID(c), projectID)
	if err != nil {
		if err == services.ErrProjectNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.pdf"`, projectID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
