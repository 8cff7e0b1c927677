package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

func newItemsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Account{}, &domain.FeedbackItem{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedAccount(t *testing.T, db *gorm.DB) *domain.Account {
	t.Helper()
	acc := &domain.Account{ID: uuid.NewString(), Name: "acc-" + uuid.NewString()[:8], Marketplace: "wildberries", Token: "tok", Active: true}
	if err := db.Create(acc).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func seedItem(t *testing.T, db *gorm.DB, accountID string, state domain.FeedbackState) *domain.FeedbackItem {
	t.Helper()
	rating := 5
	it := &domain.FeedbackItem{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		ExternalID: "ext-" + uuid.NewString()[:8],
		Rating:     &rating,
		Text:       "nice product",
		State:      state,
		ReceivedAt: time.Now().UTC(),
		LastSeenAt: time.Now().UTC(),
	}
	if err := db.Create(it).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return it
}

func TestCreateItem_FillsDefaults(t *testing.T) {
	db := newItemsDB(t)
	acc := seedAccount(t, db)

	it := &domain.FeedbackItem{AccountID: acc.ID, ExternalID: "wb-1", Text: "hello"}
	if err := CreateItem(context.Background(), db, it); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if it.ID == "" {
		t.Fatalf("expected generated ID")
	}
	if it.State != domain.StateNew {
		t.Fatalf("expected state new, got %q", it.State)
	}

	got, err := GetItemByExternalID(context.Background(), db, acc.ID, "wb-1")
	if err != nil {
		t.Fatalf("GetItemByExternalID: %v", err)
	}
	if got.ID != it.ID || got.LastSeenAt.IsZero() {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	db := newItemsDB(t)
	if _, err := GetItem(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetItemByExternalID(context.Background(), db, "a", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionState_AdvancesExactlyOnce(t *testing.T) {
	db := newItemsDB(t)
	acc := seedAccount(t, db)
	it := seedItem(t, db, acc.ID, domain.StateNew)

	ctx := context.Background()
	if err := TransitionState(ctx, db, it.ID, domain.StateNew, domain.StateAutoEligible, map[string]any{"route_path": domain.RouteAuto}); err != nil {
		t.Fatalf("first transition: %v", err)
	}

	// The same edge again must lose: the WHERE clause no longer matches.
	err := TransitionState(ctx, db, it.ID, domain.StateNew, domain.StateNeedsReview, nil)
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState on second transition, got %v", err)
	}

	got, err := GetItem(ctx, db, it.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.State != domain.StateAutoEligible || got.RoutePath != domain.RouteAuto {
		t.Fatalf("unexpected row after race: state=%q path=%q", got.State, got.RoutePath)
	}
}

func TestTransitionState_WritesExtraColumnsAtomically(t *testing.T) {
	db := newItemsDB(t)
	acc := seedAccount(t, db)
	it := seedItem(t, db, acc.ID, domain.StateAutoEligible)

	draft := "thank you!"
	err := TransitionState(context.Background(), db, it.ID, domain.StateAutoEligible, domain.StateDraftedAuto, map[string]any{
		"draft_text": draft,
		"attempts":   2,
	})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	got, _ := GetItem(context.Background(), db, it.ID)
	if got.State != domain.StateDraftedAuto || got.DraftText == nil || *got.DraftText != draft || got.Attempts != 2 {
		t.Fatalf("extra columns not written with the transition: %+v", got)
	}
}

func TestTransitionState_MissingRow(t *testing.T) {
	db := newItemsDB(t)
	err := TransitionState(context.Background(), db, "nope", domain.StateNew, domain.StateSkipped, nil)
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState for missing row, got %v", err)
	}
}

func TestRefreshItem_OnlyWhileNewOrSkipped(t *testing.T) {
	db := newItemsDB(t)
	acc := seedAccount(t, db)
	ctx := context.Background()
	seen := time.Now().UTC().Add(time.Minute)

	fresh := seedItem(t, db, acc.ID, domain.StateNew)
	rating := 2
	if err := RefreshItem(ctx, db, fresh.ID, &rating, "updated", "p", "c", "Anna", seen); err != nil {
		t.Fatalf("refresh new item: %v", err)
	}
	got, _ := GetItem(ctx, db, fresh.ID)
	if got.Text != "updated" || got.Rating == nil || *got.Rating != 2 || got.AuthorName != "Anna" {
		t.Fatalf("mutable fields not refreshed: %+v", got)
	}
	if got.State != domain.StateNew {
		t.Fatalf("refresh must not change state, got %q", got.State)
	}

	skipped := seedItem(t, db, acc.ID, domain.StateSkipped)
	if err := RefreshItem(ctx, db, skipped.ID, &rating, "late rating", "", "", "", seen); err != nil {
		t.Fatalf("refresh skipped item: %v", err)
	}
	got, _ = GetItem(ctx, db, skipped.ID)
	if got.State != domain.StateSkipped {
		t.Fatalf("skipped must stay terminal, got %q", got.State)
	}

	// Anything past ingestion is frozen for the ingest path.
	drafted := seedItem(t, db, acc.ID, domain.StateDraftedAuto)
	err := RefreshItem(ctx, db, drafted.ID, &rating, "must not land", "", "", "", seen)
	if !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState refreshing drafted item, got %v", err)
	}
	got, _ = GetItem(ctx, db, drafted.ID)
	if got.Text == "must not land" {
		t.Fatalf("refresh leaked into a drafted item")
	}
}

func TestListItemsInState_OrdersOldestFirst(t *testing.T) {
	db := newItemsDB(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	old := seedItem(t, db, acc.ID, domain.StateNew)
	db.Model(&domain.FeedbackItem{}).Where("id = ?", old.ID).Update("received_at", time.Now().UTC().Add(-time.Hour))
	_ = seedItem(t, db, acc.ID, domain.StateNew)
	_ = seedItem(t, db, acc.ID, domain.StateSkipped) // different state, excluded

	items, err := ListItemsInState(ctx, db, acc.ID, domain.StateNew, 10)
	if err != nil {
		t.Fatalf("ListItemsInState: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 new items, got %d", len(items))
	}
	if items[0].ID != old.ID {
		t.Fatalf("expected oldest item first")
	}
}

func TestListItemsPage_FilterAndCount(t *testing.T) {
	db := newItemsDB(t)
	accA := seedAccount(t, db)
	accB := seedAccount(t, db)
	ctx := context.Background()

	seedItem(t, db, accA.ID, domain.StateNeedsReview)
	seedItem(t, db, accA.ID, domain.StateSent)
	seedItem(t, db, accB.ID, domain.StateNeedsReview)

	f := ItemFilter{AccountID: accA.ID, States: []domain.FeedbackState{domain.StateNeedsReview}}
	total, err := CountItems(ctx, db, f)
	if err != nil {
		t.Fatalf("CountItems: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 match, got %d", total)
	}

	page, err := ListItemsPage(ctx, db, ItemFilter{}, 0, 10)
	if err != nil {
		t.Fatalf("ListItemsPage: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected all 3 items without filter, got %d", len(page))
	}
}

func TestClaimStep_SingleWinner(t *testing.T) {
	db := newItemsDB(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	it := seedItem(t, db, acc.ID, domain.StateAutoEligible)

	if err := ClaimStep(ctx, db, it.ID, domain.StateAutoEligible, 0); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	// A second claimant holding the same snapshot must lose.
	if err := ClaimStep(ctx, db, it.ID, domain.StateAutoEligible, 0); !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState for second claim, got %v", err)
	}

	got, err := GetItem(ctx, db, it.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Attempts != 1 {
		t.Fatalf("expected attempts=1 after a single claim, got %d", got.Attempts)
	}
	if got.State != domain.StateAutoEligible {
		t.Fatalf("claim must not change state, got %q", got.State)
	}
}

func TestClaimStep_WrongState(t *testing.T) {
	db := newItemsDB(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	it := seedItem(t, db, acc.ID, domain.StateSent)
	if err := ClaimStep(ctx, db, it.ID, domain.StateApproved, 0); !errors.Is(err, ErrStaleState) {
		t.Fatalf("expected ErrStaleState claiming wrong state, got %v", err)
	}
}

func TestFirstItemByProductRef(t *testing.T) {
	db := newItemsDB(t)
	acc := seedAccount(t, db)
	ctx := context.Background()

	older := seedItem(t, db, acc.ID, domain.StateSent)
	db.Model(&domain.FeedbackItem{}).Where("id = ?", older.ID).
		Updates(map[string]any{"product_ref": "12345", "product_name": "old name", "received_at": time.Now().UTC().Add(-time.Hour)})
	newer := seedItem(t, db, acc.ID, domain.StateNew)
	db.Model(&domain.FeedbackItem{}).Where("id = ?", newer.ID).
		Updates(map[string]any{"product_ref": "12345", "product_name": "new name"})

	got, err := FirstItemByProductRef(ctx, db, acc.ID, "12345")
	if err != nil {
		t.Fatalf("FirstItemByProductRef: %v", err)
	}
	if got.ID != newer.ID {
		t.Fatalf("expected most recent item, got %s", got.ID)
	}

	if _, err := FirstItemByProductRef(ctx, db, acc.ID, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent ref, got %v", err)
	}
}
