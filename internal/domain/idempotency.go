// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded outcome of a previously processed admin
// mutation, keyed by (item_id, operation, key). It enables safe retries for
// the approve/retry POST endpoints by letting the handler answer a replay
// with the original status code. The conditional state update already makes
// a duplicate attempt a no-op; this record only restores the original
// response semantics.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ItemID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_item_op_key,priority:1"`
	Operation string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_item_op_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_item_op_key,priority:3"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
