// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Entitlement model, which mirrors the billing platform's quota counters.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lemtool/lem-backend/internal/domain"
)

// ErrNoQuota indicates an attempted quota decrement with nothing left to
// spend.
var ErrNoQuota = errors.New("no analysis quota remaining")

// GetEntitlement returns the user's entitlement row. A user without a row
// gets the zero entitlement (no quota) rather than an error, matching how
// the billing platform treats unknown users.
func GetEntitlement(ctx context.Context, db *gorm.DB, userID string) (*domain.Entitlement, error) {
	var e domain.Entitlement
	err := db.WithContext(ctx).First(&e, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.Entitlement{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertEntitlement writes the counters received from the billing platform.
func UpsertEntitlement(ctx context.Context, db *gorm.DB, e *domain.Entitlement) error {
	e.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(e).Error
}

// ConsumeAnalysis atomically decrements one unit of quota: the monthly
// allowance first, then pack credits. The guarded UPDATE makes concurrent
// consumers safe; when nothing was decremented, ErrNoQuota is returned.
func ConsumeAnalysis(ctx context.Context, db *gorm.DB, userID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Entitlement{}).
		Where("user_id = ? AND remaining_analyses > 0", userID).
		UpdateColumn("remaining_analyses", gorm.Expr("remaining_analyses - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	res = db.WithContext(ctx).
		Model(&domain.Entitlement{}).
		Where("user_id = ? AND pack_credits > 0", userID).
		UpdateColumn("pack_credits", gorm.Expr("pack_credits - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoQuota
	}
	return nil
}
