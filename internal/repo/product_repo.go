// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the cached
// ProductContext rows that ground generated replies.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// GetProductContext fetches the cached product row for (accountID,
// productRef), or ErrNotFound when the product was never fetched.
func GetProductContext(ctx context.Context, db *gorm.DB, accountID, productRef string) (*domain.ProductContext, error) {
	var pc domain.ProductContext
	err := db.WithContext(ctx).
		Where("account_id = ? AND product_ref = ?", accountID, productRef).
		First(&pc).Error
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// UpsertProductContext refreshes the cached metadata of a product, creating
// the row on first sight. Only the ingest path writes product rows, so a
// lookup-then-write without row locking is sufficient here.
func UpsertProductContext(ctx context.Context, db *gorm.DB, accountID, productRef, title, description string, attributes datatypes.JSON) (*domain.ProductContext, error) {
	now := time.Now().UTC()

	existing, err := GetProductContext(ctx, db, accountID, productRef)
	switch {
	case err == nil:
		res := db.WithContext(ctx).
			Model(&domain.ProductContext{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"title":        title,
				"description":  description,
				"attributes":   attributes,
				"refreshed_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		existing.Title = title
		existing.Description = description
		existing.Attributes = attributes
		existing.RefreshedAt = now
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		pc := &domain.ProductContext{
			ID:          uuid.NewString(),
			AccountID:   accountID,
			ProductRef:  productRef,
			Title:       title,
			Description: description,
			Attributes:  attributes,
			RefreshedAt: now,
			CreatedAt:   now,
		}
		if err := db.WithContext(ctx).Create(pc).Error; err != nil {
			return nil, err
		}
		return pc, nil
	default:
		return nil, err
	}
}

// StaleProductRefs returns the distinct product references of an account's
// items that have no cached context yet, or whose cache is older than ttl.
// The result drives the lazy refresh during ingestion.
func StaleProductRefs(ctx context.Context, db *gorm.DB, accountID string, ttl time.Duration, limit int) ([]string, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	var refs []string
	q := db.WithContext(ctx).
		Model(&domain.FeedbackItem{}).
		Distinct("feedback_items.product_ref").
		Joins("LEFT JOIN product_contexts pc ON pc.account_id = feedback_items.account_id AND pc.product_ref = feedback_items.product_ref").
		Where("feedback_items.account_id = ? AND feedback_items.product_ref <> ''", accountID).
		Where("pc.id IS NULL OR pc.refreshed_at < ?", cutoff)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Pluck("feedback_items.product_ref", &refs).Error
	return refs, err
}
