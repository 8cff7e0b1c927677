// Package marketplace implements the outbound clients for the seller APIs the
// responder polls and replies through. Each marketplace gets one Gateway
// implementation; the rest of the application talks to the Gateway interface
// and never sees marketplace-specific payloads.
//
//   - No persistence in this package (callers own the store)
//   - Per-call context deadlines; every request is ctx-aware
//   - Client-side throttling with golang.org/x/time/rate, because both
//     upstream APIs rate-limit aggressively
//   - Failures surface as *APIError so callers can split transient
//     (throttling, upstream 5xx) from permanent rejections
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// Marketplace discriminator values, matching the accounts.marketplace column.
const (
	Wildberries  = "wildberries"
	YandexMarket = "yandex_market"
)

// ErrProductUnsupported is returned by GetProduct when the marketplace has no
// standalone product-card endpoint. Callers fall back to the product fields
// embedded in the feedback payload itself.
var ErrProductUnsupported = errors.New("marketplace: product lookup not supported")

// RawItem is one unanswered review as normalized from a marketplace payload.
// ExternalID is the marketplace-assigned feedback id and, together with the
// account, forms the dedupe identity downstream.
type RawItem struct {
	ExternalID  string
	Rating      *int
	Text        string
	Pros        string
	Cons        string
	AuthorName  string
	ProductRef  string
	ProductName string
	CreatedAt   time.Time
}

// ProductInfo is a marketplace product card used to ground generated replies.
// Attributes carries the raw characteristics list as JSON
// ([{"name": ..., "value": ...}, ...]) so the prompt layer can render it
// without another round trip.
type ProductInfo struct {
	Title       string
	Description string
	Attributes  json.RawMessage
}

// DeliveryResult is the outcome of a successful reply submission. ReplyID is
// the marketplace-assigned comment id when the API returns one; Wildberries
// does not, so a nil ReplyID on a successful submit is normal.
type DeliveryResult struct {
	ReplyID *string
}

// Gateway is the seller-API surface the pipeline depends on. Implementations
// must throttle themselves and must honor ctx cancellation mid-pagination.
type Gateway interface {
	// ListUnanswered fetches every feedback item the marketplace still
	// considers unanswered for the account, across all pages.
	ListUnanswered(ctx context.Context, acc *domain.Account) ([]RawItem, error)

	// GetProduct fetches the product card for a marketplace product
	// reference, or ErrProductUnsupported when no such endpoint exists.
	GetProduct(ctx context.Context, acc *domain.Account, productRef string) (*ProductInfo, error)

	// SubmitReply posts the reply text for the given feedback id. It must be
	// called at most once per item by construction of the dispatch layer.
	SubmitReply(ctx context.Context, acc *domain.Account, externalID, text string) (*DeliveryResult, error)
}

// Registry maps the Account.Marketplace discriminator to the Gateway serving
// it. Populated once at startup; read-only afterwards.
type Registry map[string]Gateway

// For returns the gateway serving the account's marketplace.
func (r Registry) For(acc *domain.Account) (Gateway, bool) {
	gw, ok := r[acc.Marketplace]
	return gw, ok
}
