// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// TestSession model.
//
// A session is one row: its whole marker collection is embedded as a JSON
// document, so a submitted session is either fully persisted or not at all.
// Sessions are never updated after creation.
package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lemtool/lem-backend/internal/domain"
)

// CreateSession inserts a new TestSession row. The caller supplies the id so
// it can stamp the markers with the session's id before the write; CreatedAt
// is set to UTC.
func CreateSession(ctx context.Context, db *gorm.DB, id, projectID, participantName string, ms []domain.Marker) (*domain.TestSession, error) {
	s := &domain.TestSession{
		ID:              id,
		ProjectID:       projectID,
		ParticipantName: participantName,
		Markers:         datatypes.NewJSONType(ms),
		CreatedAt:       time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a single session by ID, or ErrNotFound.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.TestSession, error) {
	var s domain.TestSession
	if err := db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns all sessions for a project ordered by creation time
// ascending, so aggregation sees participants in arrival order.
func ListSessions(ctx context.Context, db *gorm.DB, projectID string) ([]domain.TestSession, error) {
	var out []domain.TestSession
	err := db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// CountSessions returns the number of sessions attached to a project.
func CountSessions(ctx context.Context, db *gorm.DB, projectID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.TestSession{}).
		Where("project_id = ?", projectID).
		Count(&total).Error
	return total, err
}
