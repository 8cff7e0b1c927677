// Package services – IngestService
//
// This file implements the IngestService, which pulls unanswered feedback
// from a marketplace account and reconciles it with the local store. Unseen
// items are inserted in state "new"; items still sitting in "new" or
// "skipped" get their mutable fields overwritten (ratings can arrive late);
// items past ingestion only get their last-seen marker bumped. The state
// column is never written here, so a terminal "skipped" item stays terminal
// no matter what the marketplace re-sends.
//
// Ingestion also keeps the product-context cache warm: after reconciling
// items it refreshes every stale or missing product the account's feedback
// references, tolerating individual lookup failures (a stale card never
// blocks drafting).
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the account identifiers.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/marketplace"
	"github.com/tbourn/go-feedback-responder/internal/repo"
)

// IngestService reconciles marketplace feedback with the feedback_items table
// and maintains the product-context cache.
type IngestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gateways maps marketplace names to their API clients.
	Gateways marketplace.Registry

	// ProductTTL is how long a cached product context stays fresh.
	ProductTTL time.Duration
	// ProductSyncLimit caps product lookups per ingest pass so one account
	// with a huge catalog cannot monopolize a cycle.
	ProductSyncLimit int
}

// NewIngestService constructs an IngestService with the default cache policy.
func NewIngestService(db *gorm.DB, gws marketplace.Registry) *IngestService {
	return &IngestService{
		DB:               db,
		Gateways:         gws,
		ProductTTL:       24 * time.Hour,
		ProductSyncLimit: 50,
	}
}

// IngestResult summarizes one ingest pass over a single account.
type IngestResult struct {
	// Fetched is how many raw items the marketplace returned.
	Fetched int `json:"fetched"`
	// Created is how many previously unseen items were inserted.
	Created int `json:"created"`
	// Refreshed is how many known items had their mutable fields overwritten.
	Refreshed int `json:"refreshed"`
	// Ignored is how many known items were past ingestion; only their
	// last-seen marker moved.
	Ignored int `json:"ignored"`
	// Malformed is how many raw items were dropped for missing an external id.
	Malformed int `json:"malformed"`
	// ProductsSynced is how many product contexts were refreshed afterwards.
	ProductsSynced int `json:"products_synced"`
}

// Changed returns the number of items this pass created or updated.
func (r IngestResult) Changed() int { return r.Created + r.Refreshed }

// Ingest fetches all unanswered feedback for one account and upserts it.
//
// Semantics:
//   - A raw item without an external id is counted as malformed and dropped.
//   - Unseen (account_id, external_id) pairs are inserted in state "new".
//   - Known items still in "new" or "skipped" get rating/text/pros/cons and
//     the author name overwritten; anything further along is left untouched
//     apart from last_seen_at.
//   - A concurrent insert of the same sighting degrades to the refresh path.
//
// Store-level failures abort the pass and are returned; the caller isolates
// them per account. Product sync failures never fail the pass.
func (s *IngestService) Ingest(ctx context.Context, acc *domain.Account) (IngestResult, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(
			attribute.String("account.id", acc.ID),
			attribute.String("account.marketplace", acc.Marketplace),
		),
	)
	defer span.End()

	var res IngestResult

	gw, ok := s.Gateways.For(acc)
	if !ok {
		return res, ErrUnsupportedMarketplace
	}

	businessIDBefore := acc.BusinessID
	raws, err := gw.ListUnanswered(ctx, acc)
	if err != nil {
		return res, err
	}
	// The Yandex client resolves the business id lazily and writes it back to
	// the account value; persist it so later cycles skip the extra call.
	if acc.BusinessID != businessIDBefore {
		if err := repo.SetBusinessID(ctx, s.DB, acc.ID, acc.BusinessID); err != nil && !isNotFound(err) {
			return res, err
		}
	}

	now := time.Now().UTC()
	for i := range raws {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		raw := &raws[i]
		res.Fetched++
		if strings.TrimSpace(raw.ExternalID) == "" {
			res.Malformed++
			continue
		}
		if err := s.reconcile(ctx, acc, raw, now, &res); err != nil {
			return res, err
		}
	}

	// Product metadata is best-effort; a failed sync never fails the pass.
	synced, _ := s.SyncProducts(ctx, acc)
	res.ProductsSynced = synced
	return res, nil
}

// reconcile applies one raw sighting to the store.
func (s *IngestService) reconcile(ctx context.Context, acc *domain.Account, raw *marketplace.RawItem, now time.Time, res *IngestResult) error {
	existing, err := repo.GetItemByExternalID(ctx, s.DB, acc.ID, raw.ExternalID)
	switch {
	case err == nil:
		return s.refresh(ctx, existing.ID, raw, now, res)

	case isNotFound(err):
		item := &domain.FeedbackItem{
			AccountID:   acc.ID,
			ExternalID:  raw.ExternalID,
			Rating:      raw.Rating,
			Text:        raw.Text,
			Pros:        raw.Pros,
			Cons:        raw.Cons,
			AuthorName:  raw.AuthorName,
			ProductRef:  raw.ProductRef,
			ProductName: raw.ProductName,
			ReceivedAt:  raw.CreatedAt.UTC(),
			LastSeenAt:  now,
		}
		if item.ReceivedAt.IsZero() {
			item.ReceivedAt = now
		}
		if cerr := repo.CreateItem(ctx, s.DB, item); cerr != nil {
			if isDuplicate(cerr) {
				// Lost an insert race against an overlapping poll; the row
				// exists now, so fall back to the refresh path.
				winner, gerr := repo.GetItemByExternalID(ctx, s.DB, acc.ID, raw.ExternalID)
				if gerr != nil {
					return gerr
				}
				return s.refresh(ctx, winner.ID, raw, now, res)
			}
			return cerr
		}
		res.Created++
		return nil

	default:
		return err
	}
}

// refresh overwrites the mutable fields of a known item, degrading to a
// last-seen bump when the item is past ingestion.
func (s *IngestService) refresh(ctx context.Context, id string, raw *marketplace.RawItem, now time.Time, res *IngestResult) error {
	err := repo.RefreshItem(ctx, s.DB, id, raw.Rating, raw.Text, raw.Pros, raw.Cons, raw.AuthorName, now)
	if err == nil {
		res.Refreshed++
		return nil
	}
	if errors.Is(err, repo.ErrStaleState) {
		if terr := repo.TouchLastSeen(ctx, s.DB, id, now); terr != nil {
			return terr
		}
		res.Ignored++
		return nil
	}
	return err
}

// SyncProducts refreshes the cached product context for every product the
// account's items reference whose cache row is missing or older than
// ProductTTL, up to ProductSyncLimit products. Individual lookup failures are
// tolerated; the method reports how many rows were actually refreshed.
func (s *IngestService) SyncProducts(ctx context.Context, acc *domain.Account) (int, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "SyncProducts",
		trace.WithAttributes(attribute.String("account.id", acc.ID)),
	)
	defer span.End()

	gw, ok := s.Gateways.For(acc)
	if !ok {
		return 0, ErrUnsupportedMarketplace
	}

	refs, err := repo.StaleProductRefs(ctx, s.DB, acc.ID, s.ProductTTL, s.ProductSyncLimit)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := s.syncProduct(ctx, gw, acc, ref); err != nil {
			continue
		}
		synced++
	}
	return synced, nil
}

// syncProduct fetches one product card and upserts its cache row. For
// marketplaces without a product endpoint (Wildberries), the name embedded in
// the most recent sighting of the product is cached instead.
func (s *IngestService) syncProduct(ctx context.Context, gw marketplace.Gateway, acc *domain.Account, ref string) error {
	info, err := gw.GetProduct(ctx, acc, ref)
	if err != nil {
		if errors.Is(err, marketplace.ErrProductUnsupported) {
			item, gerr := repo.FirstItemByProductRef(ctx, s.DB, acc.ID, ref)
			if gerr != nil {
				return gerr
			}
			_, uerr := repo.UpsertProductContext(ctx, s.DB, acc.ID, ref, item.ProductName, "", nil)
			return uerr
		}
		return err
	}
	var attrs datatypes.JSON
	if len(info.Attributes) > 0 {
		attrs = datatypes.JSON(info.Attributes)
	}
	_, uerr := repo.UpsertProductContext(ctx, s.DB, acc.ID, ref, info.Title, info.Description, attrs)
	return uerr
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
