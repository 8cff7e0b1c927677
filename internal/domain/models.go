// Package domain defines the persistence models for marketplace accounts,
// feedback items, cached product context, and the curated reply-example
// corpus. These types are mapped with GORM and form the core data layer
// of the responder application.
package domain

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account represents one marketplace seller account the responder polls.
// Credentials are provisioned from configuration at startup; at runtime the
// pipeline treats accounts as read-only except for the auto-reply flag and
// the cached business id, both of which the admin surface may change.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: operator-facing unique account label.
//   - Marketplace: which marketplace the token belongs to ("wildberries"
//     or "yandex_market", enforced by DB constraint).
//   - Token: API credential used by the marketplace client.
//   - BusinessID: lazily resolved Yandex business id; empty for Wildberries.
//   - AutoReplyEnabled: when true, high-rated items bypass human review.
//   - Active: inactive accounts are skipped by the polling loop.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Account struct {
	ID               string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name             string    `json:"name"       gorm:"type:varchar(128);not null;uniqueIndex:ux_account_name"`
	Marketplace      string    `json:"marketplace" gorm:"type:varchar(32);not null;check:marketplace IN ('wildberries','yandex_market')"`
	Token            string    `json:"-"          gorm:"type:text;not null"`
	BusinessID       string    `json:"business_id,omitempty" gorm:"type:varchar(64)"`
	AutoReplyEnabled bool      `json:"auto_reply_enabled" gorm:"not null;default:false"`
	Active           bool      `json:"active"     gorm:"not null;default:true"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// FeedbackItem represents a single customer review or question fetched from
// a marketplace. Identity is (AccountID, ExternalID); the external id is
// immutable once created, and the State column is the single source of truth
// for where the item sits in the processing lifecycle. All state changes go
// through conditional updates keyed on the expected current state, so the
// polling loop and the admin surface can write concurrently without
// double-processing an item.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - AccountID: owning marketplace account (part of the natural key).
//   - ExternalID: marketplace-assigned feedback id (part of the natural key).
//   - Rating: 1..5 star rating, nil when the marketplace sent none.
//   - Text / Pros / Cons: customer-authored content.
//   - AuthorName: customer display name, used in the reply greeting.
//   - ProductRef: marketplace product reference (nmId / offerId).
//   - ProductName: product name as embedded in the feedback payload.
//   - State: lifecycle state, see FeedbackState.
//   - RoutePath: routing decision attribute ("auto" or "review"), set
//     atomically with the NEW -> routed transition.
//   - DraftText: generated candidate reply awaiting delivery or approval.
//   - SentText: the reply text actually delivered to the marketplace.
//   - LastError: most recent processing failure, surfaced to the operator.
//   - FailedFrom: state the item held before entering FAILED; the operator
//     retry edge restores it.
//   - Attempts: gateway attempts consumed by the current step.
//   - ReceivedAt: marketplace-side creation time of the feedback.
//   - LastSeenAt: last poll in which the marketplace still returned the item.
type FeedbackItem struct {
	ID          string        `json:"id"          gorm:"type:char(36);primaryKey"`
	AccountID   string        `json:"account_id"  gorm:"type:char(36);not null;index;uniqueIndex:ux_account_external,priority:1"`
	ExternalID  string        `json:"external_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_account_external,priority:2"`
	Rating      *int          `json:"rating,omitempty" gorm:"type:integer"`
	Text        string        `json:"text"        gorm:"type:text;not null"`
	Pros        string        `json:"pros,omitempty" gorm:"type:text"`
	Cons        string        `json:"cons,omitempty" gorm:"type:text"`
	AuthorName  string        `json:"author_name,omitempty" gorm:"type:varchar(255)"`
	ProductRef  string        `json:"product_ref,omitempty" gorm:"type:varchar(128);index"`
	ProductName string        `json:"product_name,omitempty" gorm:"type:varchar(512)"`
	State       FeedbackState `json:"state"       gorm:"type:varchar(24);not null;default:'new';index:idx_state_account"`
	RoutePath   RoutePath     `json:"route_path,omitempty" gorm:"type:varchar(16)"`
	DraftText   *string       `json:"draft_text,omitempty" gorm:"type:text"`
	SentText    *string       `json:"sent_text,omitempty" gorm:"type:text"`
	LastError   *string       `json:"last_error,omitempty" gorm:"type:text"`
	FailedFrom  FeedbackState `json:"failed_from,omitempty" gorm:"type:varchar(24)"`
	Attempts    int           `json:"attempts"    gorm:"not null;default:0"`
	ReceivedAt  time.Time     `json:"received_at"`
	LastSeenAt  time.Time     `json:"last_seen_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Account is the owning seller account. Items are cascade-deleted only
	// if their account row is removed outright.
	Account Account `json:"-" gorm:"foreignKey:AccountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for FeedbackItem.
func (FeedbackItem) TableName() string { return "feedback_items" }

// ProductContext is a cached copy of marketplace product metadata used to
// ground generated replies. Rows are refreshed lazily during ingestion;
// staleness is tolerated, so a stale or missing row never blocks drafting.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - AccountID / ProductRef: natural key; one cache row per product per account.
//   - Title / Description: marketplace card content, possibly truncated later
//     by the prompt assembler.
//   - Attributes: raw characteristics payload as returned by the marketplace.
//   - RefreshedAt: last successful refresh, drives the staleness TTL.
type ProductContext struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	AccountID   string         `json:"account_id"  gorm:"type:char(36);not null;uniqueIndex:ux_account_product,priority:1"`
	ProductRef  string         `json:"product_ref" gorm:"type:varchar(128);not null;uniqueIndex:ux_account_product,priority:2"`
	Title       string         `json:"title"       gorm:"type:varchar(512)"`
	Description string         `json:"description" gorm:"type:text"`
	Attributes  datatypes.JSON `json:"attributes,omitempty" gorm:"type:json"`
	RefreshedAt time.Time      `json:"refreshed_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName returns the database table name for ProductContext.
func (ProductContext) TableName() string { return "product_contexts" }

// ReferenceExample is a curated (feedback text, approved reply) pair used as
// few-shot guidance by the prompt assembler. The pipeline only ever reads
// these rows; curation happens through the admin surface, and deletions are
// soft so past prompt inputs stay auditable.
type ReferenceExample struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	ProductName  string         `json:"product_name,omitempty" gorm:"type:varchar(512);index"`
	Rating       *int           `json:"rating,omitempty" gorm:"type:integer"`
	FeedbackText string         `json:"feedback_text" gorm:"type:text;not null"`
	ReplyText    string         `json:"reply_text"    gorm:"type:text;not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for ReferenceExample.
func (ReferenceExample) TableName() string { return "reference_examples" }

// DeliveryRecord captures the outcome of a single dispatch attempt against
// the marketplace. One row is written per attempt, success or failure, so
// the delivery history of an item stays reconstructible.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ItemID: the feedback item the attempt belongs to (indexed).
//   - OK: whether the marketplace accepted the reply.
//   - MarketplaceReplyID: reply id assigned by the marketplace, when the
//     API returns one (Wildberries does not).
//   - Error: failure detail for unsuccessful attempts.
//   - AttemptedAt: when the submit call completed.
type DeliveryRecord struct {
	ID                 string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ItemID             string    `json:"item_id"      gorm:"type:char(36);not null;index:idx_delivery_item"`
	OK                 bool      `json:"ok"           gorm:"not null"`
	MarketplaceReplyID *string   `json:"marketplace_reply_id,omitempty" gorm:"type:varchar(128)"`
	Error              *string   `json:"error,omitempty" gorm:"type:text"`
	AttemptedAt        time.Time `json:"attempted_at" gorm:"index:idx_delivery_item,priority:2"`

	// Item is the parent feedback item. Records are cascade-deleted with it.
	Item FeedbackItem `json:"-" gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for DeliveryRecord.
func (DeliveryRecord) TableName() string { return "delivery_records" }

// Setting is an admin-editable key/value override (prompt template, example
// budget). The orchestrator snapshots settings at cycle boundaries, so an
// edit never races an in-flight item.
type Setting struct {
	Key       string    `json:"key"   gorm:"type:varchar(64);primaryKey"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Setting.
func (Setting) TableName() string { return "settings" }
