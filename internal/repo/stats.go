// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) in the HTTP layer and for the
// operator dashboard. Each function is context-aware and safe to call from
// services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// ItemsStats returns aggregate metadata for the items matching a filter: the
// total number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When no items match, the returned count is 0 and maxUpdatedAt is nil.
//
// Return values:
//   - count:        total items matching the filter
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func ItemsStats(ctx context.Context, db *gorm.DB, f ItemFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.FeedbackItem{}))

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// StateCount is one row of the per-state item breakdown.
type StateCount struct {
	State domain.FeedbackState `json:"state"`
	Count int64                `json:"count"`
}

// CountItemsByState returns the item total per lifecycle state, ordered by
// state name for stable output. States with no items are absent.
func CountItemsByState(ctx context.Context, db *gorm.DB, accountID string) ([]StateCount, error) {
	var rows []StateCount
	q := db.WithContext(ctx).
		Model(&domain.FeedbackItem{}).
		Select("state, COUNT(*) as count").
		Group("state").
		Order("state ASC")
	if accountID != "" {
		q = q.Where("account_id = ?", accountID)
	}
	err := q.Scan(&rows).Error
	return rows, err
}

// AccountCount is one row of the per-account item breakdown.
type AccountCount struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Total     int64  `json:"total"`
	Sent      int64  `json:"sent"`
}

// CountItemsByAccount returns per-account totals with the delivered share,
// ordered by account name.
func CountItemsByAccount(ctx context.Context, db *gorm.DB) ([]AccountCount, error) {
	var rows []AccountCount
	err := db.WithContext(ctx).
		Model(&domain.FeedbackItem{}).
		Select("feedback_items.account_id, accounts.name, COUNT(*) as total, SUM(CASE WHEN feedback_items.state = 'sent' THEN 1 ELSE 0 END) as sent").
		Joins("JOIN accounts ON accounts.id = feedback_items.account_id").
		Group("feedback_items.account_id, accounts.name").
		Order("accounts.name ASC").
		Scan(&rows).Error
	return rows, err
}
