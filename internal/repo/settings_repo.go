// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Setting
// key/value overrides the admin surface may edit.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// GetSetting returns the value stored under key, or ErrNotFound.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var s domain.Setting
	if err := db.WithContext(ctx).Where("key = ?", key).First(&s).Error; err != nil {
		return "", err
	}
	return s.Value, nil
}

// SetSetting writes or overwrites the value stored under key.
func SetSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	res := db.WithContext(ctx).
		Model(&domain.Setting{}).
		Where("key = ?", key).
		Update("value", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.WithContext(ctx).Create(&domain.Setting{
			Key:       key,
			Value:     value,
			UpdatedAt: time.Now().UTC(),
		}).Error
	}
	return nil
}

// AllSettings returns every stored override as a map. The orchestrator reads
// this once per cycle to build its settings snapshot.
func AllSettings(ctx context.Context, db *gorm.DB) (map[string]string, error) {
	var rows []domain.Setting
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// DeleteSetting removes an override so the configured default applies again.
// A missing key is not an error.
func DeleteSetting(ctx context.Context, db *gorm.DB, key string) error {
	err := db.WithContext(ctx).Delete(&domain.Setting{}, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
