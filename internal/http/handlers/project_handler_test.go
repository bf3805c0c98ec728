package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/lemtool/lem-backend/internal/domain"
	"github.com/lemtool/lem-backend/internal/markers"
	"github.com/lemtool/lem-backend/internal/services"
)

const testProjectID = "141add05-4415-4938-b5a1-17e0d3171aff"

// ----- Fake services -----

type fakeProjectSvc struct {
	createURL  string
	createOut  *domain.Project
	createErr  error
	getOut     *domain.Project
	getErr     error
	listOut    []domain.Project
	listTotal  int64
	listErr    error
	archiveErr error
	deleteErr  error
	entOut     *domain.Entitlement
}

func (f *fakeProjectSvc) Create(ctx context.Context, userID, targetURL string) (*domain.Project, error) {
	f.createURL = targetURL
	return f.createOut, f.createErr
}

func (f *fakeProjectSvc) Get(ctx context.Context, userID, projectID string) (*domain.Project, error) {
	return f.getOut, f.getErr
}

func (f *fakeProjectSvc) ListPage(ctx context.Context, userID string, includeArchived bool, page, pageSize int) ([]domain.Project, int64, error) {
	return f.listOut, f.listTotal, f.listErr
}

func (f *fakeProjectSvc) Archive(ctx context.Context, userID, projectID string) error   { return f.archiveErr }
func (f *fakeProjectSvc) Unarchive(ctx context.Context, userID, projectID string) error { return f.archiveErr }
func (f *fakeProjectSvc) Delete(ctx context.Context, userID, projectID string) error    { return f.deleteErr }

func (f *fakeProjectSvc) Entitlement(ctx context.Context, userID string) (*domain.Entitlement, error) {
	if f.entOut != nil {
		return f.entOut, nil
	}
	return &domain.Entitlement{UserID: userID}, nil
}

type fakeSessionSvc struct {
	submitName string
	submitOut  *domain.TestSession
	submitErr  error
	listOut    []domain.TestSession
	listErr    error
}

func (f *fakeSessionSvc) Submit(ctx context.Context, projectID, participantName string, ms []domain.Marker) (*domain.TestSession, error) {
	f.submitName = participantName
	return f.submitOut, f.submitErr
}

func (f *fakeSessionSvc) List(ctx context.Context, userID, projectID string) ([]domain.TestSession, error) {
	return f.listOut, f.listErr
}

type fakeReportSvc struct {
	gotToggles markers.Toggles
	gotView    markers.View
	out        *services.Overview
	err        error
}

func (f *fakeReportSvc) Build(ctx context.Context, userID, projectID string, t markers.Toggles, v markers.View) (*services.Overview, error) {
	f.gotToggles, f.gotView = t, v
	return f.out, f.err
}

type fakeExportSvc struct {
	out []byte
	err error
}

func (f *fakeExportSvc) PDF(ctx context.Context, userID, projectID string) ([]byte, error) {
	return f.out, f.err
}

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/projects", h.CreateProject)
	r.GET("/projects", h.ListProjects)
	r.GET("/projects/:id", h.GetProject)
	r.POST("/projects/:id/archive", h.ArchiveProject)
	r.POST("/projects/:id/unarchive", h.UnarchiveProject)
	r.DELETE("/projects/:id", h.DeleteProject)
	r.POST("/projects/:id/sessions", h.SubmitSession)
	r.GET("/projects/:id/sessions", h.ListSessions)
	r.GET("/projects/:id/report", h.GetReport)
	r.GET("/projects/:id/export.pdf", h.ExportPDF)
	r.GET("/entitlement", h.GetEntitlement)
	return r
}

// ----- Projects -----

func TestCreateProject_Created(t *testing.T) {
	svc := &fakeProjectSvc{createOut: &domain.Project{ID: testProjectID, TargetURL: "https://example.com"}}
	r := newTestRouter(New(svc, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"target_url":"https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.createURL != "https://example.com" {
		t.Fatalf("service got url %q", svc.createURL)
	}
}

func TestCreateProject_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrInvalidURL, http.StatusBadRequest, ErrCodeBadRequest},
		{services.ErrQuotaExceeded, http.StatusPaymentRequired, ErrCodeQuotaExceeded},
	}
	for _, tc := range cases {
		svc := &fakeProjectSvc{createErr: tc.err}
		r := newTestRouter(New(svc, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"target_url":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		if w.Code != tc.status {
			t.Errorf("%v: status=%d; want %d", tc.err, w.Code, tc.status)
		}
		var resp ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Code != tc.code {
			t.Errorf("%v: code=%q; want %q", tc.err, resp.Code, tc.code)
		}
	}
}

func TestCreateProject_MissingBody(t *testing.T) {
	r := newTestRouter(New(&fakeProjectSvc{}, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGetProject_InvalidIDAndNotFound(t *testing.T) {
	svc := &fakeProjectSvc{getErr: services.ErrProjectNotFound}
	r := newTestRouter(New(svc, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-uuid id: status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/"+testProjectID, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing project: status=%d", w.Code)
	}
}

func TestListProjects_Pagination(t *testing.T) {
	svc := &fakeProjectSvc{
		listOut:   []domain.Project{{ID: "a"}, {ID: "b"}},
		listTotal: 42,
	}
	r := newTestRouter(New(svc, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects?page=2&page_size=10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}

	var resp ListProjectsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Pagination.Total != 42 || resp.Pagination.TotalPages != 5 || !resp.Pagination.HasNext {
		t.Fatalf("pagination = %+v", resp.Pagination)
	}
	if len(resp.Projects) != 2 {
		t.Fatalf("projects = %d", len(resp.Projects))
	}
}

func TestArchiveDelete_StatusMapping(t *testing.T) {
	svc := &fakeProjectSvc{}
	r := newTestRouter(New(svc, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/"+testProjectID+"/archive", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("archive: status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/projects/"+testProjectID, nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status=%d", w.Code)
	}

	svc.archiveErr = services.ErrProjectNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects/"+testProjectID+"/unarchive", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unarchive missing: status=%d", w.Code)
	}
}

func TestGetEntitlement(t *testing.T) {
	svc := &fakeProjectSvc{entOut: &domain.Entitlement{UserID: "u1", RemainingAnalyses: 4, PackCredits: 2}}
	r := newTestRouter(New(svc, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/entitlement", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var e domain.Entitlement
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if e.RemainingAnalyses != 4 || e.PackCredits != 2 {
		t.Fatalf("entitlement = %+v", e)
	}
}

// ----- Sessions -----

func TestSubmitSession_CreatedAndErrors(t *testing.T) {
	sess := &fakeSessionSvc{submitOut: &domain.TestSession{ID: "s1", ParticipantName: "Alex"}}
	r := newTestRouter(New(&fakeProjectSvc{}, sess, &fakeReportSvc{}, &fakeExportSvc{}))

	body := `{"participant_name":"alex","markers":[{"x":10,"y":10,"layer":"emotions","emotion":"Joy"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects/"+testProjectID+"/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if sess.submitName != "alex" {
		t.Fatalf("service got name %q", sess.submitName)
	}

	cases := []struct {
		err    error
		status int
	}{
		{services.ErrTooFewMarkers{Got: 1, Min: 3}, http.StatusBadRequest},
		{services.ErrInvalidMarker, http.StatusBadRequest},
		{services.ErrProjectNotFound, http.StatusNotFound},
		{services.ErrProjectArchived, http.StatusConflict},
	}
	for _, tc := range cases {
		sess.submitErr = tc.err
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/projects/"+testProjectID+"/sessions", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Errorf("%v: status=%d; want %d", tc.err, w.Code, tc.status)
		}
	}
}

func TestSubmitSession_EmptyMarkersRejectedAtEdge(t *testing.T) {
	r := newTestRouter(New(&fakeProjectSvc{}, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects/"+testProjectID+"/sessions",
		strings.NewReader(`{"participant_name":"x","markers":[]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestListSessions_OK(t *testing.T) {
	sess := &fakeSessionSvc{listOut: []domain.TestSession{{ID: "s1"}, {ID: "s2"}}}
	r := newTestRouter(New(&fakeProjectSvc{}, sess, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/"+testProjectID+"/sessions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ListSessionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("sessions = %d", len(resp.Sessions))
	}
}

// ----- Reports -----

func TestGetReport_FilterParsing(t *testing.T) {
	report := &fakeReportSvc{out: &services.Overview{
		Project: &domain.Project{ID: testProjectID, Report: datatypes.NewJSONType(domain.AnalysisReport{Score: 70})},
	}}
	r := newTestRouter(New(&fakeProjectSvc{}, &fakeSessionSvc{}, report, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/projects/"+testProjectID+"/report?ai=false&layer=needs&shape=areas&source=human&participant=s1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if report.gotToggles.AI || !report.gotToggles.Human {
		t.Fatalf("toggles = %+v", report.gotToggles)
	}
	v := report.gotView
	if v.Layer != domain.LayerNeeds || v.Shape != markers.ShapeAreas || v.Source != markers.SourceHuman || v.Participant != "s1" {
		t.Fatalf("view = %+v", v)
	}
}

func TestGetReport_UnknownLayerRejected(t *testing.T) {
	r := newTestRouter(New(&fakeProjectSvc{}, &fakeSessionSvc{}, &fakeReportSvc{}, &fakeExportSvc{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/"+testProjectID+"/report?layer=feelings", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

// ----- Export -----

func TestExportPDF_ContentTypeAndDisposition(t *testing.T) {
	exp := &fakeExportSvc{out: []byte("%PDF-1.4 fake")}
	r := newTestRouter(New(&fakeProjectSvc{}, &fakeSessionSvc{}, &fakeReportSvc{}, exp))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/"+testProjectID+"/export.pdf", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content-type=%q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, testProjectID) {
		t.Fatalf("content-disposition=%q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Fatalf("body: %q", w.Body.String())
	}
}

func TestExportPDF_NotFound(t *testing.T) {
	exp := &fakeExportSvc{err: services.ErrProjectNotFound}
	r := newTestRouter(New(&fakeProjectSvc{}, &fakeSessionSvc{}, &fakeReportSvc{}, exp))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/"+testProjectID+"/export.pdf", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}
