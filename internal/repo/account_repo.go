// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an account is not found, functions return gorm.ErrRecordNotFound
//     (exported in this package as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - UpsertAccount(ctx, db, name, marketplace, token) -> *domain.Account, error
//     Creates the account on first sight or refreshes its token. Used when
//     provisioning accounts from configuration at startup.
//
//   - ListAccounts(ctx, db) -> []domain.Account, error
//     Returns all accounts ordered by name.
//
//   - ListActiveAccounts(ctx, db) -> []domain.Account, error
//     Returns only accounts the polling loop should visit.
//
//   - GetAccount(ctx, db, id) -> *domain.Account, error
//     Fetches a single account, or ErrNotFound if missing.
//
//   - SetAutoReply(ctx, db, id, enabled) -> error
//     Toggles the auto-reply flag; the one account field the admin actor owns.
//
//   - SetActive(ctx, db, id, active) -> error
//     Activates or deactivates an account for polling.
//
//   - SetBusinessID(ctx, db, id, businessID) -> error
//     Caches the lazily resolved marketplace business id.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// UpsertAccount creates an account row named name, or refreshes the token and
// marketplace binding of the existing row. Flags (active, auto-reply) and the
// cached business id are preserved on refresh so configuration reloads do not
// undo operator decisions.
func UpsertAccount(ctx context.Context, db *gorm.DB, name, marketplace, token string) (*domain.Account, error) {
	var acc domain.Account
	err := db.WithContext(ctx).Where("name = ?", name).First(&acc).Error
	switch {
	case err == nil:
		res := db.WithContext(ctx).
			Model(&domain.Account{}).
			Where("id = ?", acc.ID).
			Updates(map[string]any{"marketplace": marketplace, "token": token})
		if res.Error != nil {
			return nil, res.Error
		}
		acc.Marketplace = marketplace
		acc.Token = token
		return &acc, nil
	case err == gorm.ErrRecordNotFound:
		acc = domain.Account{
			ID:          uuid.NewString(),
			Name:        name,
			Marketplace: marketplace,
			Token:       token,
			Active:      true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&acc).Error; err != nil {
			return nil, err
		}
		return &acc, nil
	default:
		return nil, err
	}
}

// ListAccounts returns every account ordered by name. It returns an empty
// slice when none are provisioned. On DB error, it returns the error.
func ListAccounts(ctx context.Context, db *gorm.DB) ([]domain.Account, error) {
	var out []domain.Account
	err := db.WithContext(ctx).Order("name asc").Find(&out).Error
	return out, err
}

// ListActiveAccounts returns the accounts the polling loop should visit,
// ordered by name for a stable cycle order.
func ListActiveAccounts(ctx context.Context, db *gorm.DB) ([]domain.Account, error) {
	var out []domain.Account
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("name asc").
		Find(&out).Error
	return out, err
}

// GetAccount fetches a single account by its ID. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is returned.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var acc domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&acc).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

// SetAutoReply updates the auto-reply flag of an account. If no rows are
// affected (account missing), it returns ErrNotFound.
func SetAutoReply(ctx context.Context, db *gorm.DB, id string, enabled bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("auto_reply_enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetActive updates the active flag of an account. If no rows are affected
// (account missing), it returns ErrNotFound.
func SetActive(ctx context.Context, db *gorm.DB, id string, active bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetBusinessID caches the resolved business id on an account. If no rows are
// affected (account missing), it returns ErrNotFound.
func SetBusinessID(ctx context.Context, db *gorm.DB, id, businessID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", id).
		Update("business_id", businessID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
