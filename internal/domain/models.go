// Package domain defines the persistence models for projects, test sessions,
// and entitlements. These types are mapped with GORM and form the core data
// layer of the application. Marker collections and analysis reports are
// embedded JSON documents: markers have no storage identity outside their
// parent row.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project represents one analyzed target URL, owned by a user. The generated
// AnalysisReport and the AI-sourced marker collection are embedded as JSON
// columns; both are written atomically when an analysis run succeeds and are
// never mutated by any party other than the owner.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - OwnerID: identifier of the project owner; indexed for retrieval.
//   - TargetURL: the analyzed website URL.
//   - Report: embedded AnalysisReport document (1:1 with the project).
//   - Markers: embedded AI-sourced marker collection.
//   - ScreenshotPath: optional path to the stored full-page screenshot.
//   - DemoMode: true when the analysis fell back to deterministic demo data.
//   - Archived: soft-hidden from default listings without deleting data.
//   - DeletedAt: GORM soft deletion marker.
type Project struct {
	ID             string                             `json:"id"              gorm:"type:char(36);primaryKey"`
	OwnerID        string                             `json:"owner_id"        gorm:"type:varchar(64);not null;index:idx_owner_projects"`
	TargetURL      string                             `json:"target_url"      gorm:"type:varchar(2048);not null"`
	Report         datatypes.JSONType[AnalysisReport] `json:"report"`
	Markers        datatypes.JSONType[[]Marker]       `json:"markers"`
	ScreenshotPath string                             `json:"screenshot_path,omitempty" gorm:"type:varchar(1024)"`
	DemoMode       bool                               `json:"demo_mode"       gorm:"not null;default:false"`
	Archived       bool                               `json:"archived"        gorm:"not null;default:false;index"`
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`
	DeletedAt      gorm.DeletedAt                     `json:"-"               gorm:"index"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string { return "projects" }

// TestSession is one human participant's complete contribution to a project:
// the markers they produced during a test flow, persisted as a single row so
// a session is either fully visible to report consumers or not at all.
// Sessions are immutable after creation.
type TestSession struct {
	ID              string                       `json:"id"               gorm:"type:char(36);primaryKey"`
	ProjectID       string                       `json:"project_id"       gorm:"type:char(36);not null;index:idx_project_sessions"`
	ParticipantName string                       `json:"participant_name" gorm:"type:varchar(255);not null"`
	Markers         datatypes.JSONType[[]Marker] `json:"markers"`
	CreatedAt       time.Time                    `json:"created_at"`

	// Project is the parent. Sessions are cascade-deleted with their project.
	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TestSession.
func (TestSession) TableName() string { return "test_sessions" }

// Entitlement mirrors the billing platform's view of a user's analysis quota.
// The values are opaque to this service: it only reads and decrements them.
type Entitlement struct {
	UserID            string    `json:"user_id"            gorm:"type:varchar(64);primaryKey"`
	RemainingAnalyses int       `json:"remaining_analyses" gorm:"not null;default:0"`
	MonthlyLimit      int       `json:"monthly_limit"      gorm:"not null;default:0"`
	PackCredits       int       `json:"pack_credits"       gorm:"not null;default:0"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name for Entitlement.
func (Entitlement) TableName() string { return "entitlements" }

// CanAnalyze reports whether the user has quota left for one more analysis,
// either from the monthly allowance or from purchased pack credits.
func (e Entitlement) CanAnalyze() bool {
	return e.RemainingAnalyses > 0 || e.PackCredits > 0
}
