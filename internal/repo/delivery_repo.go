// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for DeliveryRecord
// rows, the per-attempt audit trail of the dispatcher.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// CreateDeliveryRecord appends one dispatch-attempt outcome for an item.
func CreateDeliveryRecord(ctx context.Context, db *gorm.DB, itemID string, ok bool, replyID, errMsg *string) (*domain.DeliveryRecord, error) {
	rec := &domain.DeliveryRecord{
		ID:                 uuid.NewString(),
		ItemID:             itemID,
		OK:                 ok,
		MarketplaceReplyID: replyID,
		Error:              errMsg,
		AttemptedAt:        time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// ListDeliveryRecords returns the attempt history of an item, oldest first.
func ListDeliveryRecords(ctx context.Context, db *gorm.DB, itemID string) ([]domain.DeliveryRecord, error) {
	var out []domain.DeliveryRecord
	err := db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("attempted_at ASC, id ASC").
		Find(&out).Error
	return out, err
}
