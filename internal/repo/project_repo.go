// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Project
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a project is not found (or not owned by the caller), functions
//     return gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Ownership is enforced at this level: lookups and mutations are scoped to
// (id, owner_id), so a project that exists but belongs to someone else is
// indistinguishable from one that does not exist. GetProjectByID is the one
// deliberate exception, serving participant flows where the caller is not
// the owner.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lemtool/lem-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateProject inserts a new Project row owned by ownerID with the analysis
// result embedded. The project ID is a randomly generated UUID and CreatedAt
// is set to UTC.
func CreateProject(ctx context.Context, db *gorm.DB, ownerID, targetURL string, report domain.AnalysisReport, markers []domain.Marker, screenshotPath string, demoMode bool) (*domain.Project, error) {
	p := &domain.Project{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		TargetURL:      targetURL,
		Report:         datatypes.NewJSONType(report),
		Markers:        datatypes.NewJSONType(markers),
		ScreenshotPath: screenshotPath,
		DemoMode:       demoMode,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject fetches a single project by its ID and owner. If the record
// does not exist (or is owned by someone else), it returns ErrNotFound.
func GetProject(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProjectByID fetches a project by ID regardless of owner. Participant
// submission resolves projects through this lookup, since participants are
// invited to projects they do not own.
func GetProjectByID(ctx context.Context, db *gorm.DB, id string) (*domain.Project, error) {
	var p domain.Project
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjectsPage returns a paginated slice of the owner's projects ordered
// by creation time descending. Archived projects are hidden unless
// includeArchived is set.
func ListProjectsPage(ctx context.Context, db *gorm.DB, ownerID string, includeArchived bool, offset, limit int) ([]domain.Project, error) {
	q := db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if !includeArchived {
		q = q.Where("archived = ?", false)
	}
	var out []domain.Project
	err := q.Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountProjects returns the total number of the owner's projects, subject to
// the same archived visibility rule as ListProjectsPage.
func CountProjects(ctx context.Context, db *gorm.DB, ownerID string, includeArchived bool) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Project{}).Where("owner_id = ?", ownerID)
	if !includeArchived {
		q = q.Where("archived = ?", false)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// SetProjectArchived flips the archived flag on a project owned by ownerID.
// Returns ErrNotFound when no row matches.
func SetProjectArchived(ctx context.Context, db *gorm.DB, id, ownerID string, archived bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("archived", archived)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteProject removes a project owned by ownerID together with its test
// sessions. The project row is hard-deleted (Unscoped) to match the session
// delete, so no soft-deleted parent lingers behind its removed children. The
// session delete and the project delete run in the caller's handle; wrap in
// a transaction for atomicity.
func DeleteProject(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	res := db.WithContext(ctx).
		Unscoped().
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&domain.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return db.WithContext(ctx).
		Where("project_id = ?", id).
		Delete(&domain.TestSession{}).Error
}
