// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the curated
// ReferenceExample corpus consumed by the prompt assembler.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// CreateExample inserts a curated (feedback, reply) pair.
func CreateExample(ctx context.Context, db *gorm.DB, productName string, rating *int, feedbackText, replyText string) (*domain.ReferenceExample, error) {
	ex := &domain.ReferenceExample{
		ID:           uuid.NewString(),
		ProductName:  productName,
		Rating:       rating,
		FeedbackText: feedbackText,
		ReplyText:    replyText,
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ex).Error; err != nil {
		return nil, err
	}
	return ex, nil
}

// GetExample fetches an example by ID, or ErrNotFound.
func GetExample(ctx context.Context, db *gorm.DB, id string) (*domain.ReferenceExample, error) {
	var ex domain.ReferenceExample
	if err := db.WithContext(ctx).Where("id = ?", id).First(&ex).Error; err != nil {
		return nil, err
	}
	return &ex, nil
}

// CountExamples returns the total number of live examples.
func CountExamples(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.ReferenceExample{}).Count(&total).Error
	return total, err
}

// ListExamplesPage returns a paginated slice ordered newest first.
func ListExamplesPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ReferenceExample, error) {
	var out []domain.ReferenceExample
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListRecentExamples returns up to limit of the most recent examples. The
// prompt assembler ranks this candidate pool in memory, so the limit only
// bounds how far back retrieval looks, not the final selection size.
func ListRecentExamples(ctx context.Context, db *gorm.DB, limit int) ([]domain.ReferenceExample, error) {
	var out []domain.ReferenceExample
	q := db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// UpdateExample overwrites the editable fields of an example. If no rows are
// affected (example missing or soft-deleted), it returns ErrNotFound.
func UpdateExample(ctx context.Context, db *gorm.DB, id, productName string, rating *int, feedbackText, replyText string) error {
	res := db.WithContext(ctx).
		Model(&domain.ReferenceExample{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"product_name":  productName,
			"rating":        rating,
			"feedback_text": feedbackText,
			"reply_text":    replyText,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteExample soft-deletes an example so past prompt inputs remain
// auditable. If no rows are affected, it returns ErrNotFound.
func DeleteExample(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.ReferenceExample{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
