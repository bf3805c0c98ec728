package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lemtool/lem-backend/internal/ai"
	"github.com/lemtool/lem-backend/internal/domain"
)

// ----- Fake repos -----

type fakeProjectRepo struct {
	// capture args
	createOwnerID  string
	createURL      string
	createReport   domain.AnalysisReport
	createMarkers  []domain.Marker
	createShotPath string
	createDemo     bool
	createErr      error

	getID      string
	getOwnerID string
	getProject *domain.Project
	getErr     error

	getByIDCalled string

	countTotal int64
	countErr   error

	pageOffset   int
	pageLimit    int
	pageArchived bool
	pageItems    []domain.Project
	pageErr      error

	archivedID  string
	archivedVal bool
	archivedErr error

	deleteID  string
	deleteErr error
}

func (r *fakeProjectRepo) CreateProject(ctx context.Context, db *gorm.DB, ownerID, targetURL string, report domain.AnalysisReport, markers []domain.Marker, screenshotPath string, demoMode bool) (*domain.Project, error) {
	r.createOwnerID, r.createURL = ownerID, targetURL
	r.createReport, r.createMarkers = report, markers
	r.createShotPath, r.createDemo = screenshotPath, demoMode
	if r.createErr != nil {
		return nil, r.createErr
	}
	return &domain.Project{
		ID:       "p1",
		OwnerID:  ownerID,
		DemoMode: demoMode,
		Report:   datatypes.NewJSONType(report),
		Markers:  datatypes.NewJSONType(markers),
	}, nil
}

func (r *fakeProjectRepo) GetProject(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Project, error) {
	r.getID, r.getOwnerID = id, ownerID
	return r.getProject, r.getErr
}

func (r *fakeProjectRepo) GetProjectByID(ctx context.Context, db *gorm.DB, id string) (*domain.Project, error) {
	r.getByIDCalled = id
	return r.getProject, r.getErr
}

func (r *fakeProjectRepo) ListProjectsPage(ctx context.Context, db *gorm.DB, ownerID string, includeArchived bool, offset, limit int) ([]domain.Project, error) {
	r.pageArchived, r.pageOffset, r.pageLimit = includeArchived, offset, limit
	return r.pageItems, r.pageErr
}

func (r *fakeProjectRepo) CountProjects(ctx context.Context, db *gorm.DB, ownerID string, includeArchived bool) (int64, error) {
	return r.countTotal, r.countErr
}

func (r *fakeProjectRepo) SetProjectArchived(ctx context.Context, db *gorm.DB, id, ownerID string, archived bool) error {
	r.archivedID, r.archivedVal = id, archived
	return r.archivedErr
}

func (r *fakeProjectRepo) DeleteProject(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	r.deleteID = id
	return r.deleteErr
}

type fakeQuotaRepo struct {
	ent        *domain.Entitlement
	getErr     error
	consumed   int
	consumeErr error
}

func (r *fakeQuotaRepo) GetEntitlement(ctx context.Context, db *gorm.DB, userID string) (*domain.Entitlement, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.ent != nil {
		return r.ent, nil
	}
	return &domain.Entitlement{UserID: userID}, nil
}

func (r *fakeQuotaRepo) ConsumeAnalysis(ctx context.Context, db *gorm.DB, userID string) error {
	r.consumed++
	return r.consumeErr
}

type fakeAnalyzer struct {
	raw      ai.RawAnalysis
	err      error
	calls    int
	gotURL   string
	gotShots int
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, targetURL string, screenshots [][]byte) (ai.RawAnalysis, error) {
	a.calls++
	a.gotURL = targetURL
	a.gotShots = len(screenshots)
	return a.raw, a.err
}

type fakeShots struct {
	data []byte
	err  error
}

func (s *fakeShots) Capture(ctx context.Context, targetURL string) ([]byte, error) {
	return s.data, s.err
}

func goodAnalysis() ai.RawAnalysis {
	return ai.RawAnalysis{
		Markers: []ai.RawMarker{
			{X: 10, Y: 10, Layer: "emotions", Emotion: "Joy"},
			{X: 20, Y: 20, Layer: "needs", Need: "Autonomy"},
			{X: 30, Y: 30, Layer: "strategy", Brief: "Insight"},
		},
		Report: domain.AnalysisReport{Score: 80, Summary: "solid"},
	}
}

func entitled() *domain.Entitlement {
	return &domain.Entitlement{UserID: "u1", RemainingAnalyses: 5, MonthlyLimit: 10}
}

// ----- Create -----

func TestCreate_InvalidURL(t *testing.T) {
	s := NewProjectService(nil, &fakeProjectRepo{}, &fakeQuotaRepo{ent: entitled()}, nil, nil, "")

	for _, raw := range []string{"", "   ", "ftp://example.com", "not a url", "https://"} {
		if _, err := s.Create(context.Background(), "u1", raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Create(%q) err = %v; want ErrInvalidURL", raw, err)
		}
	}
}

func TestCreate_QuotaExhausted(t *testing.T) {
	q := &fakeQuotaRepo{ent: &domain.Entitlement{UserID: "u1"}}
	an := &fakeAnalyzer{raw: goodAnalysis()}
	s := NewProjectService(nil, &fakeProjectRepo{}, q, an, nil, "")

	_, err := s.Create(context.Background(), "u1", "https://example.com")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v; want ErrQuotaExceeded", err)
	}
	if an.calls != 0 {
		t.Fatalf("analysis must not run without quota")
	}
}

func TestCreate_SuccessfulAnalysis(t *testing.T) {
	r := &fakeProjectRepo{}
	q := &fakeQuotaRepo{ent: entitled()}
	an := &fakeAnalyzer{raw: goodAnalysis()}
	s := NewProjectService(nil, r, q, an, nil, "")

	p, err := s.Create(context.Background(), "u1", "https://example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.DemoMode {
		t.Fatalf("successful analysis should not be demo mode")
	}
	if r.createDemo {
		t.Fatalf("repo received demoMode=true")
	}
	if len(r.createMarkers) != 3 {
		t.Fatalf("markers persisted = %d; want 3", len(r.createMarkers))
	}
	if r.createReport.Score != 80 {
		t.Fatalf("report score = %v; want 80", r.createReport.Score)
	}
	if q.consumed != 1 {
		t.Fatalf("quota consumed %d times; want 1", q.consumed)
	}
}

func TestCreate_AIFailureFallsBackToDemo(t *testing.T) {
	r := &fakeProjectRepo{}
	q := &fakeQuotaRepo{ent: entitled()}
	an := &fakeAnalyzer{err: errors.New("upstream 500")}
	s := NewProjectService(nil, r, q, an, nil, "")

	p, err := s.Create(context.Background(), "u1", "https://example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !p.DemoMode {
		t.Fatalf("AI failure must produce a demo project")
	}
	if len(r.createMarkers) == 0 {
		t.Fatalf("demo fallback produced no markers")
	}
	// Demo still spends quota: the user asked for an analysis and got one.
	if q.consumed != 1 {
		t.Fatalf("quota consumed %d times; want 1", q.consumed)
	}
}

func TestCreate_EmptyAnalysisFallsBackToDemo(t *testing.T) {
	r := &fakeProjectRepo{}
	an := &fakeAnalyzer{raw: ai.RawAnalysis{}} // parses but carries no markers
	s := NewProjectService(nil, r, &fakeQuotaRepo{ent: entitled()}, an, nil, "")

	p, err := s.Create(context.Background(), "u1", "https://example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !p.DemoMode {
		t.Fatalf("empty analysis must produce a demo project")
	}
}

func TestCreate_NilAnalyzerIsDemo(t *testing.T) {
	r := &fakeProjectRepo{}
	s := NewProjectService(nil, r, &fakeQuotaRepo{ent: entitled()}, nil, nil, "")

	p, err := s.Create(context.Background(), "u1", "https://example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !p.DemoMode {
		t.Fatalf("nil analyzer must produce a demo project")
	}
}

func TestCreate_ScreenshotFailureDoesNotAbort(t *testing.T) {
	r := &fakeProjectRepo{}
	an := &fakeAnalyzer{raw: goodAnalysis()}
	shots := &fakeShots{err: errors.New("browser gone")}
	s := NewProjectService(nil, r, &fakeQuotaRepo{ent: entitled()}, an, shots, "")

	p, err := s.Create(context.Background(), "u1", "https://example.com")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.DemoMode {
		t.Fatalf("screenshot failure alone should not force demo mode")
	}
	if an.gotShots != 0 {
		t.Fatalf("analyzer received %d screenshots; want 0", an.gotShots)
	}
	if r.createShotPath != "" {
		t.Fatalf("stored screenshot path %q for a failed capture", r.createShotPath)
	}
}

func TestCreate_PersistErrorDoesNotConsumeQuota(t *testing.T) {
	// The fake has no real transaction, but the service must stop at the
	// create error and never reach the quota decrement.
	r := &fakeProjectRepo{createErr: errors.New("disk full")}
	q := &fakeQuotaRepo{ent: entitled()}
	s := NewProjectService(nil, r, q, &fakeAnalyzer{raw: goodAnalysis()}, nil, "")

	if _, err := s.Create(context.Background(), "u1", "https://example.com"); err == nil {
		t.Fatalf("expected create error to propagate")
	}
	if q.consumed != 0 {
		t.Fatalf("quota consumed despite persistence failure")
	}
}

// ----- Get / List / Archive / Delete -----

func TestGet_MapsNotFound(t *testing.T) {
	r := &fakeProjectRepo{getErr: gorm.ErrRecordNotFound}
	s := NewProjectService(nil, r, &fakeQuotaRepo{}, nil, nil, "")

	if _, err := s.Get(context.Background(), "u1", "p-miss"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("err = %v; want ErrProjectNotFound", err)
	}
	if r.getID != "p-miss" || r.getOwnerID != "u1" {
		t.Fatalf("repo got (%q,%q)", r.getID, r.getOwnerID)
	}
}

func TestListPage_DefaultsAndTotalZero(t *testing.T) {
	r := &fakeProjectRepo{countTotal: 0}
	s := NewProjectService(nil, r, &fakeQuotaRepo{}, nil, nil, "")

	items, total, err := s.ListPage(context.Background(), "u1", false, 0, 0)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("expected empty result; got total=%d len=%d", total, len(items))
	}
}

func TestListPage_OffsetLimitForwarded(t *testing.T) {
	r := &fakeProjectRepo{
		countTotal: 42,
		pageItems:  []domain.Project{{ID: "a"}, {ID: "b"}},
	}
	s := NewProjectService(nil, r, &fakeQuotaRepo{}, nil, nil, "")

	items, total, err := s.ListPage(context.Background(), "u1", true, 3, 10)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 42 || len(items) != 2 {
		t.Fatalf("total/len = %d/%d; want 42/2", total, len(items))
	}
	if r.pageOffset != 20 || r.pageLimit != 10 || !r.pageArchived {
		t.Fatalf("repo got offset=%d limit=%d archived=%v", r.pageOffset, r.pageLimit, r.pageArchived)
	}
}

func TestArchiveUnarchive(t *testing.T) {
	r := &fakeProjectRepo{}
	s := NewProjectService(nil, r, &fakeQuotaRepo{}, nil, nil, "")

	if err := s.Archive(context.Background(), "u1", "p1"); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if r.archivedID != "p1" || !r.archivedVal {
		t.Fatalf("repo got (%q,%v)", r.archivedID, r.archivedVal)
	}

	if err := s.Unarchive(context.Background(), "u1", "p1"); err != nil {
		t.Fatalf("Unarchive: %v", err)
	}
	if r.archivedVal {
		t.Fatalf("unarchive did not clear the flag")
	}

	r.archivedErr = gorm.ErrRecordNotFound
	if err := s.Archive(context.Background(), "u1", "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("err = %v; want ErrProjectNotFound", err)
	}
}

func TestDelete_ChecksOwnershipFirst(t *testing.T) {
	r := &fakeProjectRepo{getErr: gorm.ErrRecordNotFound}
	s := NewProjectService(nil, r, &fakeQuotaRepo{}, nil, nil, "")

	if err := s.Delete(context.Background(), "u1", "p1"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("err = %v; want ErrProjectNotFound", err)
	}
	if r.deleteID != "" {
		t.Fatalf("delete reached repo despite missing project")
	}

	r2 := &fakeProjectRepo{getProject: &domain.Project{ID: "p1", OwnerID: "u1"}}
	s2 := NewProjectService(nil, r2, &fakeQuotaRepo{}, nil, nil, "")
	if err := s2.Delete(context.Background(), "u1", "p1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if r2.deleteID != "p1" {
		t.Fatalf("repo delete got %q", r2.deleteID)
	}
}

func TestNormalizeTargetURL(t *testing.T) {
	got, err := normalizeTargetURL("  https://example.com/page  ")
	if err != nil || got != "https://example.com/page" {
		t.Fatalf("normalize = (%q,%v)", got, err)
	}
	if _, err := normalizeTargetURL("javascript:alert(1)"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("scheme filter failed: %v", err)
	}
}
