// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// FeedbackItem model, including the conditional state-transition primitive
// the whole pipeline is built on.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving business rules to the services package.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (gorm.ErrRecordNotFound).
//   - A conditional transition whose WHERE clause matched no row (the state
//     changed underneath the caller, or the row is gone) returns ErrStaleState.
//     The service layer translates that into its benign-conflict semantics.
//   - On other DB errors (connectivity, constraints, etc.), the raw gorm
//     error is propagated.
//
// The transition contract is the load-bearing piece: every state change is a
// single UPDATE guarded by the expected current state, so two concurrent
// actors (polling loop, admin surface) can never both advance the same item.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStaleState is returned when a conditional state transition matched no
// row: another actor already moved the item (or it never existed). Callers
// treat it as "someone else won the race", not as a failure.
var ErrStaleState = errors.New("stale state")

// ItemFilter narrows item listing queries. Zero values mean "no constraint".
type ItemFilter struct {
	AccountID string
	States    []domain.FeedbackState
}

func (f ItemFilter) apply(q *gorm.DB) *gorm.DB {
	if f.AccountID != "" {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	return q
}

// CreateItem inserts a newly sighted feedback item in state "new".
// The (account_id, external_id) pair is unique; a concurrent insert of the
// same sighting surfaces as a DB unique-constraint error for the service
// layer to translate.
func CreateItem(ctx context.Context, db *gorm.DB, item *domain.FeedbackItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.State == "" {
		item.State = domain.StateNew
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.LastSeenAt.IsZero() {
		item.LastSeenAt = now
	}
	return db.WithContext(ctx).Create(item).Error
}

// GetItem fetches an item by primary key, or ErrNotFound.
func GetItem(ctx context.Context, db *gorm.DB, id string) (*domain.FeedbackItem, error) {
	var it domain.FeedbackItem
	if err := db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// GetItemByExternalID fetches an item by its natural key, or ErrNotFound.
func GetItemByExternalID(ctx context.Context, db *gorm.DB, accountID, externalID string) (*domain.FeedbackItem, error) {
	var it domain.FeedbackItem
	err := db.WithContext(ctx).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		First(&it).Error
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// RefreshItem overwrites the mutable ingest fields of an item, but only while
// it still sits in "new" or "skipped". Items that progressed further are left
// untouched and the call reports ErrStaleState, which ingestion treats as
// "already being handled". The state column itself is never written here.
func RefreshItem(ctx context.Context, db *gorm.DB, id string, rating *int, text, pros, cons, authorName string, seenAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.FeedbackItem{}).
		Where("id = ? AND state IN ?", id, []domain.FeedbackState{domain.StateNew, domain.StateSkipped}).
		Updates(map[string]any{
			"rating":       rating,
			"text":         text,
			"pros":         pros,
			"cons":         cons,
			"author_name":  authorName,
			"last_seen_at": seenAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// TouchLastSeen bumps last_seen_at without touching anything else. Used when
// a re-polled item is past ingestion and its payload must be ignored.
func TouchLastSeen(ctx context.Context, db *gorm.DB, id string, seenAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.FeedbackItem{}).
		Where("id = ?", id).
		Update("last_seen_at", seenAt).Error
}

// TransitionState performs the conditional atomic transition from -> to on a
// single item, optionally writing extra columns in the same UPDATE. If the
// item is no longer in the expected state, nothing is written and
// ErrStaleState is returned.
//
// This is the only way state may change after insertion; services never write
// the state column directly.
func TransitionState(ctx context.Context, db *gorm.DB, id string, from, to domain.FeedbackState, extra map[string]any) error {
	updates := map[string]any{"state": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := db.WithContext(ctx).
		Model(&domain.FeedbackItem{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// ClaimStep marks an item as being worked on by bumping its attempts counter,
// guarded by both the expected state and the attempts value the caller read.
// Exactly one of any number of concurrent claimants with the same snapshot
// succeeds; the rest get ErrStaleState. Services take a claim before calling
// out to a marketplace or the generator, so a double-triggered step performs
// the external call once.
func ClaimStep(ctx context.Context, db *gorm.DB, id string, state domain.FeedbackState, seenAttempts int) error {
	res := db.WithContext(ctx).
		Model(&domain.FeedbackItem{}).
		Where("id = ? AND state = ? AND attempts = ?", id, state, seenAttempts).
		Update("attempts", seenAttempts+1)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

// FirstItemByProductRef returns the most recently received item of an account
// that references the given product, or ErrNotFound. Used to recover an
// embedded product name for marketplaces without a product card endpoint.
func FirstItemByProductRef(ctx context.Context, db *gorm.DB, accountID, productRef string) (*domain.FeedbackItem, error) {
	var it domain.FeedbackItem
	err := db.WithContext(ctx).
		Where("account_id = ? AND product_ref = ?", accountID, productRef).
		Order("received_at DESC, id DESC").
		First(&it).Error
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ListItemsInState returns up to limit items of one account in the given
// state, oldest received first, so a backlog drains in arrival order.
func ListItemsInState(ctx context.Context, db *gorm.DB, accountID string, state domain.FeedbackState, limit int) ([]domain.FeedbackItem, error) {
	var out []domain.FeedbackItem
	q := db.WithContext(ctx).
		Where("account_id = ? AND state = ?", accountID, state).
		Order("received_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountItems returns the number of items matching the filter.
func CountItems(ctx context.Context, db *gorm.DB, f ItemFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.FeedbackItem{})).Count(&total).Error
	return total, err
}

// ListItemsPage returns a paginated slice of items matching the filter,
// most recently received first (the admin inbox ordering).
func ListItemsPage(ctx context.Context, db *gorm.DB, f ItemFilter, offset, limit int) ([]domain.FeedbackItem, error) {
	var out []domain.FeedbackItem
	err := f.apply(db.WithContext(ctx)).
		Order("received_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
