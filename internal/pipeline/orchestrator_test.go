package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/generation"
	"github.com/tbourn/go-feedback-responder/internal/marketplace"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/services"
)

// ---------- Fixtures ----------

func newPipeDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:pipe_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	err = db.AutoMigrate(
		&domain.Account{},
		&domain.FeedbackItem{},
		&domain.ProductContext{},
		&domain.ReferenceExample{},
		&domain.DeliveryRecord{},
		&domain.Setting{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, mk string, autoReply, active bool) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		ID:               uuid.NewString(),
		Name:             "acc-" + uuid.NewString()[:8],
		Marketplace:      mk,
		Token:            "tok",
		AutoReplyEnabled: autoReply,
		Active:           active,
	}
	if err := db.Create(acc).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func intPtr(v int) *int { return &v }

// loopGateway is a scriptable marketplace.Gateway for whole-loop tests.
type loopGateway struct {
	mu sync.Mutex

	items   []marketplace.RawItem
	listErr error

	submitCalls int
	submitted   []string
}

func (f *loopGateway) ListUnanswered(ctx context.Context, acc *domain.Account) ([]marketplace.RawItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]marketplace.RawItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *loopGateway) GetProduct(ctx context.Context, acc *domain.Account, productRef string) (*marketplace.ProductInfo, error) {
	return nil, marketplace.ErrProductUnsupported
}

func (f *loopGateway) SubmitReply(ctx context.Context, acc *domain.Account, externalID, text string) (*marketplace.DeliveryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	f.submitted = append(f.submitted, text)
	return &marketplace.DeliveryResult{}, nil
}

func (f *loopGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

// loopGenerator is a scriptable services.Generator for whole-loop tests.
type loopGenerator struct {
	mu sync.Mutex

	reply   string
	calls   int
	lastReq generation.Request
}

func (f *loopGenerator) Generate(ctx context.Context, req generation.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	return f.reply, nil
}

func (f *loopGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newLoop(db *gorm.DB, gws marketplace.Registry, gen services.Generator) *Orchestrator {
	draft := services.NewDraftService(db, gen)
	draft.InitialBackoff = time.Millisecond
	dispatch := services.NewDispatchService(db, gws)
	dispatch.InitialBackoff = time.Millisecond

	o := NewOrchestrator(db,
		services.NewIngestService(db, gws),
		services.NewRouteService(db),
		draft,
		dispatch,
	)
	o.Interval = 5 * time.Millisecond
	o.Logger = zerolog.Nop()
	return o
}

func itemByExternalID(t *testing.T, db *gorm.DB, accountID, externalID string) *domain.FeedbackItem {
	t.Helper()
	it, err := repo.GetItemByExternalID(context.Background(), db, accountID, externalID)
	if err != nil {
		t.Fatalf("load item %s: %v", externalID, err)
	}
	return it
}

// ---------- Full-path cycles ----------

func TestRunCycle_AutoPathDeliversWithoutHumanStep(t *testing.T) {
	db := newPipeDB(t)
	acc := seedAccount(t, db, marketplace.Wildberries, true, true)
	gw := &loopGateway{items: []marketplace.RawItem{{
		ExternalID:  "fb-1",
		Rating:      intPtr(5),
		Text:        "Кофта супер, размер подошёл",
		AuthorName:  "Анна",
		ProductRef:  "100500",
		ProductName: "Кофта женская",
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
	}}}
	gen := &loopGenerator{reply: "Анна, спасибо за отзыв!"}
	o := newLoop(db, marketplace.Registry{marketplace.Wildberries: gw}, gen)

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	it := itemByExternalID(t, db, acc.ID, "fb-1")
	if it.State != domain.StateSent {
		t.Fatalf("state = %s, want %s", it.State, domain.StateSent)
	}
	if it.SentText == nil || *it.SentText != "Анна, спасибо за отзыв!" {
		t.Fatalf("sent text = %v, want generated reply", it.SentText)
	}
	if got := gw.calls(); got != 1 {
		t.Fatalf("submit calls = %d, want 1", got)
	}
	recs, err := repo.ListDeliveryRecords(context.Background(), db, it.ID)
	if err != nil {
		t.Fatalf("list delivery records: %v", err)
	}
	if len(recs) != 1 || !recs[0].OK {
		t.Fatalf("delivery records = %+v, want one successful record", recs)
	}
}

func TestRunCycle_ReviewPathWaitsForApproval(t *testing.T) {
	db := newPipeDB(t)
	acc := seedAccount(t, db, marketplace.Wildberries, true, true)
	gw := &loopGateway{items: []marketplace.RawItem{{
		ExternalID: "fb-low",
		Rating:     intPtr(2),
		Text:       "Пришёл брак, очень расстроена",
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
	}}}
	gen := &loopGenerator{reply: "Нам очень жаль, напишите нам в поддержку."}
	o := newLoop(db, marketplace.Registry{marketplace.Wildberries: gw}, gen)

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("first RunCycle: %v", err)
	}
	it := itemByExternalID(t, db, acc.ID, "fb-low")
	if it.State != domain.StateDraftedPending {
		t.Fatalf("state after cycle = %s, want %s", it.State, domain.StateDraftedPending)
	}
	if gw.calls() != 0 {
		t.Fatalf("submit calls before approval = %d, want 0", gw.calls())
	}

	// More cycles change nothing while the draft waits for a human.
	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("second RunCycle: %v", err)
	}
	it = itemByExternalID(t, db, acc.ID, "fb-low")
	if it.State != domain.StateDraftedPending || gw.calls() != 0 {
		t.Fatalf("pending draft moved without approval: state=%s submits=%d", it.State, gw.calls())
	}

	review := services.NewReviewService(db)
	if _, err := review.Approve(context.Background(), it.ID, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("post-approval RunCycle: %v", err)
	}

	it = itemByExternalID(t, db, acc.ID, "fb-low")
	if it.State != domain.StateSent {
		t.Fatalf("state after approval = %s, want %s", it.State, domain.StateSent)
	}
	if gw.calls() != 1 {
		t.Fatalf("submit calls after approval = %d, want 1", gw.calls())
	}
}

func TestRunCycle_SkipsUnratedFeedback(t *testing.T) {
	db := newPipeDB(t)
	acc := seedAccount(t, db, marketplace.Wildberries, true, true)
	gw := &loopGateway{items: []marketplace.RawItem{{
		ExternalID: "fb-unrated",
		Text:       "Без оценки",
		CreatedAt:  time.Now().UTC(),
	}}}
	gen := &loopGenerator{reply: "не должно вызываться"}
	o := newLoop(db, marketplace.Registry{marketplace.Wildberries: gw}, gen)

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	it := itemByExternalID(t, db, acc.ID, "fb-unrated")
	if it.State != domain.StateSkipped {
		t.Fatalf("state = %s, want %s", it.State, domain.StateSkipped)
	}
	if gen.callCount() != 0 {
		t.Fatalf("generator calls = %d, want 0", gen.callCount())
	}
	if gw.calls() != 0 {
		t.Fatalf("submit calls = %d, want 0", gw.calls())
	}
}

func TestRunCycle_DispatchesOperatorApprovedItems(t *testing.T) {
	db := newPipeDB(t)
	acc := seedAccount(t, db, marketplace.YandexMarket, false, true)
	draft := "Спасибо, что поделились!"
	it := &domain.FeedbackItem{
		ID:         uuid.NewString(),
		AccountID:  acc.ID,
		ExternalID: "fb-approved",
		Rating:     intPtr(3),
		Text:       "Нормально",
		State:      domain.StateApproved,
		RoutePath:  domain.RouteReview,
		DraftText:  &draft,
		ReceivedAt: time.Now().UTC(),
		LastSeenAt: time.Now().UTC(),
	}
	if err := db.Create(it).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	gw := &loopGateway{}
	o := newLoop(db, marketplace.Registry{marketplace.YandexMarket: gw}, &loopGenerator{})

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	got := itemByExternalID(t, db, acc.ID, "fb-approved")
	if got.State != domain.StateSent {
		t.Fatalf("state = %s, want %s", got.State, domain.StateSent)
	}
	if len(gw.submitted) != 1 || gw.submitted[0] != draft {
		t.Fatalf("submitted = %v, want the approved draft", gw.submitted)
	}
}

// ---------- Isolation and filtering ----------

func TestRunCycle_AccountFailureIsolated(t *testing.T) {
	db := newPipeDB(t)
	broken := seedAccount(t, db, marketplace.Wildberries, true, true)
	healthy := seedAccount(t, db, marketplace.YandexMarket, true, true)

	brokenGW := &loopGateway{listErr: errors.New("wb outage")}
	healthyGW := &loopGateway{items: []marketplace.RawItem{{
		ExternalID: "fb-ok",
		Rating:     intPtr(5),
		Text:       "Отличный чайник",
		CreatedAt:  time.Now().UTC(),
	}}}
	gen := &loopGenerator{reply: "Спасибо!"}
	o := newLoop(db, marketplace.Registry{
		marketplace.Wildberries:  brokenGW,
		marketplace.YandexMarket: healthyGW,
	}, gen)

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	it := itemByExternalID(t, db, healthy.ID, "fb-ok")
	if it.State != domain.StateSent {
		t.Fatalf("healthy account state = %s, want %s", it.State, domain.StateSent)
	}

	var count int64
	if err := db.Model(&domain.FeedbackItem{}).Where("account_id = ?", broken.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("broken account items = %d, want 0", count)
	}
}

func TestRunCycle_InactiveAccountsAreSkipped(t *testing.T) {
	db := newPipeDB(t)
	seedAccount(t, db, marketplace.Wildberries, true, false)
	gw := &loopGateway{items: []marketplace.RawItem{{
		ExternalID: "fb-1",
		Rating:     intPtr(5),
		Text:       "Хорошо",
		CreatedAt:  time.Now().UTC(),
	}}}
	o := newLoop(db, marketplace.Registry{marketplace.Wildberries: gw}, &loopGenerator{})

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	var count int64
	if err := db.Model(&domain.FeedbackItem{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("items ingested for inactive account = %d, want 0", count)
	}
}

// ---------- Settings snapshot ----------

func TestRunCycle_SettingsOverrideTemplate(t *testing.T) {
	db := newPipeDB(t)
	seedAccount(t, db, marketplace.Wildberries, true, true)
	if err := repo.SetSetting(context.Background(), db, SettingPromptTemplate, "ОСОБЫЙ ШАБЛОН: {text}"); err != nil {
		t.Fatalf("set setting: %v", err)
	}
	gw := &loopGateway{items: []marketplace.RawItem{{
		ExternalID: "fb-tpl",
		Rating:     intPtr(5),
		Text:       "Отличный товар",
		CreatedAt:  time.Now().UTC(),
	}}}
	gen := &loopGenerator{reply: "Спасибо!"}
	o := newLoop(db, marketplace.Registry{marketplace.Wildberries: gw}, gen)

	if err := o.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if gen.callCount() != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.callCount())
	}
	if !strings.Contains(gen.lastReq.User, "ОСОБЫЙ ШАБЛОН: Отличный товар") {
		t.Fatalf("prompt did not use the settings template:\n%s", gen.lastReq.User)
	}
}

func TestDraftFor_SnapshotLeavesConfiguredServiceAlone(t *testing.T) {
	db := newPipeDB(t)
	o := newLoop(db, marketplace.Registry{}, &loopGenerator{})
	configured := o.Draft.Assembler.Template

	got := o.draftFor(cycleSettings{template: "другой шаблон", maxExamples: 0})
	if got == o.Draft {
		t.Fatal("override returned the configured service instead of a copy")
	}
	if got.Assembler.Template != "другой шаблон" {
		t.Fatalf("copy template = %q, want override", got.Assembler.Template)
	}
	if got.Assembler.MaxExamples != 0 {
		t.Fatalf("copy max examples = %d, want 0", got.Assembler.MaxExamples)
	}
	if o.Draft.Assembler.Template != configured {
		t.Fatalf("configured template mutated to %q", o.Draft.Assembler.Template)
	}

	if same := o.draftFor(cycleSettings{maxExamples: -1}); same != o.Draft {
		t.Fatal("no-override snapshot should reuse the configured service")
	}
}

// ---------- Lifecycle ----------

func TestRun_StopsOnCancel(t *testing.T) {
	db := newPipeDB(t)
	seedAccount(t, db, marketplace.Wildberries, true, true)
	gw := &loopGateway{}
	o := newLoop(db, marketplace.Registry{marketplace.Wildberries: gw}, &loopGenerator{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
