package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/services"
)

// ---------- test DB + seed helpers ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Enforce FKs and migrate schemas
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.FeedbackItem{},
		&domain.ProductContext{},
		&domain.ReferenceExample{},
		&domain.DeliveryRecord{},
		&domain.Setting{},
		&domain.Idempotency{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedHandlerAccount(t *testing.T, db *gorm.DB) *domain.Account {
	t.Helper()
	acc, err := repo.UpsertAccount(context.Background(), db, "shop-"+uuid.NewString()[:8], "wildberries", "tok")
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func seedItem(t *testing.T, db *gorm.DB, accountID string, state domain.FeedbackState, draft string) *domain.FeedbackItem {
	t.Helper()
	rating := 4
	item := &domain.FeedbackItem{
		ID:         uuid.NewString(),
		AccountID:  accountID,
		ExternalID: "ext-" + uuid.NewString()[:8],
		Rating:     &rating,
		Text:       "Хороший товар",
		AuthorName: "Анна",
		State:      state,
		ReceivedAt: time.Now().UTC(),
		LastSeenAt: time.Now().UTC(),
	}
	if draft != "" {
		item.DraftText = &draft
	}
	if state == domain.StateFailed {
		item.FailedFrom = domain.StateAutoEligible
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

// newTestHandlers wires real services over the given DB.
func newTestHandlers(db *gorm.DB) *Handlers {
	return New(
		services.NewReviewService(db),
		services.NewAccountService(db),
		services.NewExampleService(db),
	)
}

// ---------- flexible stub for error paths ----------

type stubReviewSvc struct {
	listPage func(context.Context, repo.ItemFilter, int, int) ([]domain.FeedbackItem, int64, error)
	overview func(context.Context) (*services.Stats, error)
}

func (s stubReviewSvc) ListPage(ctx context.Context, f repo.ItemFilter, page, pageSize int) ([]domain.FeedbackItem, int64, error) {
	if s.listPage != nil {
		return s.listPage(ctx, f, page, pageSize)
	}
	return nil, 0, nil
}

func (s stubReviewSvc) Get(context.Context, string) (*domain.FeedbackItem, []domain.DeliveryRecord, error) {
	return nil, nil, services.ErrItemNotFound
}

func (s stubReviewSvc) UpdateDraft(context.Context, string, string) (*domain.FeedbackItem, error) {
	return nil, services.ErrItemNotFound
}

func (s stubReviewSvc) Approve(context.Context, string, *string) (*domain.FeedbackItem, error) {
	return nil, services.ErrItemNotFound
}

func (s stubReviewSvc) Retry(context.Context, string) (*domain.FeedbackItem, error) {
	return nil, services.ErrItemNotFound
}

func (s stubReviewSvc) Overview(ctx context.Context) (*services.Stats, error) {
	if s.overview != nil {
		return s.overview(ctx)
	}
	return &services.Stats{}, nil
}

type stubAccountSvc struct{}

func (stubAccountSvc) List(context.Context) ([]domain.Account, error) { return nil, nil }
func (stubAccountSvc) SetAutoReply(context.Context, string, bool) (*domain.Account, error) {
	return nil, services.ErrAccountNotFound
}
func (stubAccountSvc) SetActive(context.Context, string, bool) (*domain.Account, error) {
	return nil, services.ErrAccountNotFound
}

type stubExampleSvc struct{}

func (stubExampleSvc) Create(context.Context, string, *int, string, string) (*domain.ReferenceExample, error) {
	return nil, services.ErrValidation
}
func (stubExampleSvc) Get(context.Context, string) (*domain.ReferenceExample, error) {
	return nil, services.ErrExampleNotFound
}
func (stubExampleSvc) ListPage(context.Context, int, int) ([]domain.ReferenceExample, int64, error) {
	return nil, 0, nil
}
func (stubExampleSvc) Update(context.Context, string, string, *int, string, string) (*domain.ReferenceExample, error) {
	return nil, services.ErrExampleNotFound
}
func (stubExampleSvc) Delete(context.Context, string) error { return services.ErrExampleNotFound }

// ---------- helpers-only tests ----------

func Test_clampPagination_and_parseStateFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// clampPagination bounds
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=-5&page_size=9999", nil)
	p, ps := clampPagination(c)
	if p != 1 || ps != 100 {
		t.Fatalf("clamp bounds got p=%d ps=%d", p, ps)
	}
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=&page_size=0", nil)
	p, ps = clampPagination(c)
	if p != 1 || ps != 1 {
		t.Fatalf("clamp defaults got p=%d ps=%d", p, ps)
	}

	// parseStateFilter
	states, valid := parseStateFilter("")
	if !valid || states != nil {
		t.Fatalf("empty filter: %v %v", states, valid)
	}
	states, valid = parseStateFilter(" drafted_pending , failed ")
	if !valid || len(states) != 2 || states[0] != domain.StateDraftedPending || states[1] != domain.StateFailed {
		t.Fatalf("two states: %v %v", states, valid)
	}
	if _, valid = parseStateFilter("drafted_pending,bogus"); valid {
		t.Fatalf("bogus state must be rejected")
	}
}

// ---------- ListFeedback ----------

func TestListFeedback_FilterPagination_UnknownState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	acc := seedHandlerAccount(t, db)
	other := seedHandlerAccount(t, db)

	seedItem(t, db, acc.ID, domain.StateDraftedPending, "Черновик 1")
	seedItem(t, db, acc.ID, domain.StateDraftedPending, "Черновик 2")
	seedItem(t, db, acc.ID, domain.StateSent, "")
	seedItem(t, db, other.ID, domain.StateDraftedPending, "Чужой черновик")

	h := newTestHandlers(db)
	r := gin.New()
	r.GET("/feedback", h.ListFeedback)

	// filtered by state + account, small page
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feedback?state=drafted_pending&account_id="+acc.ID+"&page=1&page_size=1", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}
	var out ListFeedbackResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Pagination.Total != 2 || out.Pagination.TotalPages != 2 || !out.Pagination.HasNext {
		t.Fatalf("pagination mismatch: %#v", out.Pagination)
	}
	if got := w.Header().Get("X-Total-Count"); got != "2" {
		t.Fatalf("X-Total-Count = %q, want 2", got)
	}
	if len(out.Items) != 1 || out.Items[0].State != domain.StateDraftedPending || out.Items[0].AccountID != acc.ID {
		t.Fatalf("unexpected items: %#v", out.Items)
	}

	// unknown state -> 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/feedback?state=happy", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown state -> %d", w.Code)
	}
}

func TestListFeedback_ServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(stubReviewSvc{
		listPage: func(context.Context, repo.ItemFilter, int, int) ([]domain.FeedbackItem, int64, error) {
			return nil, 0, gorm.ErrInvalidField
		},
	}, stubAccountSvc{}, stubExampleSvc{})

	r := gin.New()
	r.GET("/feedback", h.ListFeedback)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

// ---------- GetFeedback ----------

func TestGetFeedback_Detail_NotFound_BadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	acc := seedHandlerAccount(t, db)
	item := seedItem(t, db, acc.ID, domain.StateSent, "")

	errMsg := "timeout"
	if _, err := repo.CreateDeliveryRecord(context.Background(), db, item.ID, false, nil, &errMsg); err != nil {
		t.Fatalf("seed delivery: %v", err)
	}
	if _, err := repo.CreateDeliveryRecord(context.Background(), db, item.ID, true, nil, nil); err != nil {
		t.Fatalf("seed delivery: %v", err)
	}

	h := newTestHandlers(db)
	r := gin.New()
	r.GET("/feedback/:id", h.GetFeedback)

	// success with delivery history
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feedback/"+item.ID, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("detail -> %d body=%s", w.Code, w.Body.String())
	}
	var out FeedbackDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Item == nil || out.Item.ID != item.ID {
		t.Fatalf("unexpected item: %#v", out.Item)
	}
	if len(out.Deliveries) != 2 {
		t.Fatalf("expected 2 delivery records, got %d", len(out.Deliveries))
	}

	// unknown id -> 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/feedback/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing -> %d", w.Code)
	}

	// malformed id -> 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/feedback/not-a-uuid", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}
}

// ---------- UpdateDraft ----------

func TestUpdateDraft_PendingOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	acc := seedHandlerAccount(t, db)
	pending := seedItem(t, db, acc.ID, domain.StateDraftedPending, "Старый черновик")
	fresh := seedItem(t, db, acc.ID, domain.StateNew, "")
	sent := seedItem(t, db, acc.ID, domain.StateSent, "")

	h := newTestHandlers(db)
	r := gin.New()
	r.PUT("/feedback/:id/draft", h.UpdateDraft)

	put := func(id, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/feedback/"+id+"/draft", bytes.NewBufferString(body))
		r.ServeHTTP(w, req)
		return w
	}

	// success on a pending item
	w := put(pending.ID, `{"text":"  Новый черновик  "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("edit -> %d body=%s", w.Code, w.Body.String())
	}
	var out domain.FeedbackItem
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.DraftText == nil || *out.DraftText != "Новый черновик" {
		t.Fatalf("draft not trimmed/updated: %#v", out.DraftText)
	}
	if out.State != domain.StateDraftedPending {
		t.Fatalf("edit must not move the item: %s", out.State)
	}

	// item never held drafted_pending -> 422
	if w := put(fresh.ID, `{"text":"x"}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("new item edit -> %d", w.Code)
	}

	// item already past approval -> 409
	if w := put(sent.ID, `{"text":"x"}`); w.Code != http.StatusConflict {
		t.Fatalf("sent item edit -> %d", w.Code)
	}

	// missing text -> 400 (binding)
	if w := put(pending.ID, `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing text -> %d", w.Code)
	}

	// whitespace-only text -> 400 (service)
	if w := put(pending.ID, `{"text":"   "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("blank text -> %d", w.Code)
	}
}

// ---------- Approve ----------

func TestApprove_ReleasesDraft_ThenConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	acc := seedHandlerAccount(t, db)
	pending := seedItem(t, db, acc.ID, domain.StateDraftedPending, "Черновик")
	fresh := seedItem(t, db, acc.ID, domain.StateNew, "")

	h := newTestHandlers(db)
	r := gin.New()
	r.POST("/feedback/:id/approve", h.Approve)

	post := func(id, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(http.MethodPost, "/feedback/"+id+"/approve", nil)
		} else {
			req = httptest.NewRequest(http.MethodPost, "/feedback/"+id+"/approve", bytes.NewBufferString(body))
		}
		r.ServeHTTP(w, req)
		return w
	}

	// empty body approves as-is
	w := post(pending.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("approve -> %d body=%s", w.Code, w.Body.String())
	}
	var out domain.FeedbackItem
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.State != domain.StateApproved {
		t.Fatalf("state = %s, want approved", out.State)
	}

	// double approval -> 409
	if w := post(pending.ID, ""); w.Code != http.StatusConflict {
		t.Fatalf("double approve -> %d", w.Code)
	}

	// item not pending -> 422
	if w := post(fresh.ID, ""); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("approve new -> %d", w.Code)
	}

	// malformed body -> 400
	if w := post(fresh.ID, "{bad"); w.Code != http.StatusBadRequest {
		t.Fatalf("bad body -> %d", w.Code)
	}
}

func TestApprove_EditedTextAndReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	acc := seedHandlerAccount(t, db)
	pending := seedItem(t, db, acc.ID, domain.StateDraftedPending, "Черновик")

	h := newTestHandlers(db)
	r := gin.New()
	r.POST("/feedback/:id/approve", h.Approve)

	const key = "approve-key-1"

	// approve with edited text and an idempotency key
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/feedback/"+pending.ID+"/approve", bytes.NewBufferString(`{"text":"Исправленный ответ"}`))
	req.Header.Set("Idempotency-Key", key)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("approve -> %d body=%s", w.Code, w.Body.String())
	}
	var out domain.FeedbackItem
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.State != domain.StateApproved || out.DraftText == nil || *out.DraftText != "Исправленный ответ" {
		t.Fatalf("unexpected item: state=%s draft=%v", out.State, out.DraftText)
	}
	if w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first call must not be a replay")
	}

	// same key again: replayed 200 instead of 409
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/feedback/"+pending.ID+"/approve", bytes.NewBufferString(`{"text":"Исправленный ответ"}`))
	req.Header.Set("Idempotency-Key", key)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("replay -> %d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("expected Idempotency-Replayed header on second call")
	}

	// a different key is a real retry and hits the conflict
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/feedback/"+pending.ID+"/approve", bytes.NewBufferString(`{}`))
	req.Header.Set("Idempotency-Key", "approve-key-2")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("fresh key after approval -> %d", w.Code)
	}
}

// ---------- Retry ----------

func TestRetry_FailedOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	acc := seedHandlerAccount(t, db)
	failed := seedItem(t, db, acc.ID, domain.StateFailed, "")
	sent := seedItem(t, db, acc.ID, domain.StateSent, "")

	h := newTestHandlers(db)
	r := gin.New()
	r.POST("/feedback/:id/retry", h.Retry)

	// failed item goes back to where it fell out
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/feedback/"+failed.ID+"/retry", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("retry -> %d body=%s", w.Code, w.Body.String())
	}
	var out domain.FeedbackItem
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.State != domain.StateAutoEligible || out.Attempts != 0 || out.LastError != nil {
		t.Fatalf("unexpected item after retry: %#v", out)
	}

	// sent item cannot be retried -> 422
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/feedback/"+sent.ID+"/retry", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("retry sent -> %d", w.Code)
	}

	// unknown id -> 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/feedback/"+uuid.NewString()+"/retry", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("retry missing -> %d", w.Code)
	}
}

// ---------- Stats ----------

func TestGetStats_CountsHumanQueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	acc := seedHandlerAccount(t, db)
	seedItem(t, db, acc.ID, domain.StateDraftedPending, "Черновик")
	seedItem(t, db, acc.ID, domain.StateFailed, "")
	seedItem(t, db, acc.ID, domain.StateSent, "")

	h := newTestHandlers(db)
	r := gin.New()
	r.GET("/stats", h.GetStats)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stats -> %d body=%s", w.Code, w.Body.String())
	}
	var st services.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if st.Total != 3 || st.NeedsHuman != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if len(st.ByAccount) != 1 || st.ByAccount[0].Total != 3 || st.ByAccount[0].Sent != 1 {
		t.Fatalf("unexpected by_account: %+v", st.ByAccount)
	}
}
