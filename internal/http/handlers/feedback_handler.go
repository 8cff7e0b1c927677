// Feedback HTTP handlers.
//
// This file exposes REST endpoints for feedback items:
//   - GET  /feedback               (list, filtered + paginated)
//   - GET  /feedback/{id}          (detail incl. delivery history)
//   - PUT  /feedback/{id}/draft    (edit a pending draft)
//   - POST /feedback/{id}/approve  (release a pending draft for dispatch)
//   - POST /feedback/{id}/retry    (re-arm a failed item)
//   - GET  /stats                  (dashboard summary)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate service errors into HTTP results. Every mutation below is a
// conditional state transition in the service layer, so a request racing the
// background loop resolves to exactly one winner; the loser surfaces here as
// 409 or 422.
//
// Idempotency:
// If the client supplies an Idempotency-Key header on approve/retry and a
// previous successful result exists for (item, operation, key), the handler
// returns the current item with the recorded status and sets
// `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/services"
	"github.com/tbourn/go-feedback-responder/internal/utils"
)

//
// Service contracts (context-aware)
//

// ReviewService defines the operator-facing item operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ReviewService interface {
	// ListPage returns a page of items matching the filter and the total count.
	ListPage(ctx context.Context, f repo.ItemFilter, page, pageSize int) ([]domain.FeedbackItem, int64, error)
	// Get returns one item and its delivery history.
	Get(ctx context.Context, id string) (*domain.FeedbackItem, []domain.DeliveryRecord, error)
	// UpdateDraft replaces the draft text of an item awaiting approval.
	UpdateDraft(ctx context.Context, id, text string) (*domain.FeedbackItem, error)
	// Approve releases a pending draft, optionally replacing the text.
	Approve(ctx context.Context, id string, editedText *string) (*domain.FeedbackItem, error)
	// Retry re-arms a failed item.
	Retry(ctx context.Context, id string) (*domain.FeedbackItem, error)
	// Overview aggregates per-state and per-account counts.
	Overview(ctx context.Context) (*services.Stats, error)
}

// AccountService defines the marketplace account operations consumed by HTTP
// handlers.
type AccountService interface {
	// List returns all accounts ordered by name.
	List(ctx context.Context) ([]domain.Account, error)
	// SetAutoReply flips whether high-rated feedback bypasses human review.
	SetAutoReply(ctx context.Context, id string, enabled bool) (*domain.Account, error)
	// SetActive includes or excludes the account from polling.
	SetActive(ctx context.Context, id string, active bool) (*domain.Account, error)
}

// ExampleService defines the reference example corpus operations consumed by
// HTTP handlers.
type ExampleService interface {
	// Create stores a new (feedback, reply) example pair.
	Create(ctx context.Context, productName string, rating *int, feedbackText, replyText string) (*domain.ReferenceExample, error)
	// Get returns one example by id.
	Get(ctx context.Context, id string) (*domain.ReferenceExample, error)
	// ListPage returns a page of examples and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.ReferenceExample, int64, error)
	// Update replaces the fields of an existing example.
	Update(ctx context.Context, id, productName string, rating *int, feedbackText, replyText string) (*domain.ReferenceExample, error)
	// Delete removes an example from the corpus.
	Delete(ctx context.Context, id string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for feedback items, accounts, and reference
// examples. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	reviewSvc  ReviewService
	accountSvc AccountService
	exampleSvc ExampleService

	// IdemTTL is how long a recorded approve/retry outcome stays replayable.
	IdemTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(reviewSvc ReviewService, accountSvc AccountService, exampleSvc ExampleService) *Handlers {
	return &Handlers{
		reviewSvc:  reviewSvc,
		accountSvc: accountSvc,
		exampleSvc: exampleSvc,
		IdemTTL:    24 * time.Hour,
	}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListFeedbackResponse wraps a page of feedback items and pagination info.
type ListFeedbackResponse struct {
	Items      []domain.FeedbackItem `json:"items"`
	Pagination Pagination            `json:"pagination"`
}

// FeedbackDetailResponse is one item plus its delivery attempt history.
type FeedbackDetailResponse struct {
	Item       *domain.FeedbackItem    `json:"item"`
	Deliveries []domain.DeliveryRecord `json:"deliveries"`
}

// UpdateDraftRequest is the JSON payload for editing a pending draft.
type UpdateDraftRequest struct {
	// Text is the replacement draft reply. It must be non-empty.
	Text string `json:"text" binding:"required,min=1" example:"Анна, спасибо за тёплый отзыв!"`
}

// ApproveRequest is the JSON payload for approving a pending draft. The body
// is optional; when Text is present the draft is replaced in the same write.
type ApproveRequest struct {
	Text *string `json:"text,omitempty" example:"Анна, спасибо за тёплый отзыв!"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// parseStateFilter parses the comma-separated "state" query parameter into
// lifecycle states, rejecting unknown values.
func parseStateFilter(raw string) ([]domain.FeedbackState, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	var states []domain.FeedbackState
	for _, part := range strings.Split(raw, ",") {
		s := domain.FeedbackState(strings.TrimSpace(part))
		if s == "" {
			continue
		}
		if !s.Valid() {
			return nil, false
		}
		states = append(states, s)
	}
	return states, true
}

// failItemErr maps ReviewService mutation errors onto the error envelope.
func failItemErr(c *gin.Context, err error) {
	switch err {
	case services.ErrItemNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "feedback item not found")
	case services.ErrConflict:
		fail(c, http.StatusConflict, ErrCodeConflict, "item changed concurrently")
	case services.ErrInvalidState:
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidState, "operation not allowed in current state")
	case services.ErrEmptyDraft:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "draft text required")
	case services.ErrDraftTooLong:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "draft text too long")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// idemKey reads a raw Idempotency-Key header. Upstream middleware validates
// the shape; handlers only need presence.
func idemKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}

//
// Handlers
//

// ListFeedback godoc
// @ID          listFeedback
// @Summary     List feedback items
// @Description Returns a page of feedback items, newest first. Filterable by lifecycle state (comma-separated) and account.
// @Tags        Feedback
// @Produce     json
//
// @Param       state       query  string  false "Comma-separated lifecycle states" example(drafted_pending,failed)
// @Param       account_id  query  string  false "Only items of this account (UUID)" format(uuid)
// @Param       page        query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size   query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListFeedbackResponse
// @Header      200  {string} X-Total-Count "Total matching items across all pages"
// @Failure     400  {object} handlers.ErrorResponse "Unknown state filter"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /feedback [get]
func (h *Handlers) ListFeedback(c *gin.Context) {
	ctx := c.Request.Context()

	states, valid := parseStateFilter(c.Query("state"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown state filter")
		return
	}
	page, pageSize := clampPagination(c)

	f := repo.ItemFilter{
		AccountID: strings.TrimSpace(c.Query("account_id")),
		States:    states,
	}
	items, total, err := h.reviewSvc.ListPage(ctx, f, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	ok(c, http.StatusOK, ListFeedbackResponse{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetFeedback godoc
// @ID          getFeedback
// @Summary     Get one feedback item
// @Description Returns a feedback item and its delivery attempt history.
// @Tags        Feedback
// @Produce     json
//
// @Param       id  path  string  true  "Feedback item ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.FeedbackDetailResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /feedback/{id} [get]
func (h *Handlers) GetFeedback(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "item id must be a UUID")
		return
	}

	item, records, err := h.reviewSvc.Get(c.Request.Context(), id)
	if err != nil {
		if err == services.ErrItemNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "feedback item not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, FeedbackDetailResponse{Item: item, Deliveries: records})
}

// UpdateDraft godoc
// @ID          updateDraft
// @Summary     Edit a pending draft
// @Description Replaces the draft text of an item in drafted_pending. Items on the auto path or already dispatched are not editable.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Feedback item ID (UUID)"  format(uuid)
// @Param       body  body  handlers.UpdateDraftRequest  true  "New draft text"
//
// @Success     200  {object} domain.FeedbackItem
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     409  {object} handlers.ErrorResponse "Item changed concurrently"
// @Failure     422  {object} handlers.ErrorResponse "Item is not awaiting approval"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /feedback/{id}/draft [put]
func (h *Handlers) UpdateDraft(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "item id must be a UUID")
		return
	}

	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}

	item, err := h.reviewSvc.UpdateDraft(c.Request.Context(), id, req.Text)
	if err != nil {
		failItemErr(c, err)
		return
	}
	ok(c, http.StatusOK, item)
}

// Approve godoc
// @ID          approveFeedback
// @Summary     Approve a pending draft
// @Description Releases a drafted_pending item for dispatch; the next cycle submits it to the marketplace.
// @Description The body may carry edited text applied in the same write.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Feedback item ID (UUID)"  format(uuid)
// @Param       body             body    handlers.ApproveRequest  false  "Optional edited text"
//
// @Success     200  {object} domain.FeedbackItem
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     409  {object} handlers.ErrorResponse "Already approved or sent"
// @Failure     422  {object} handlers.ErrorResponse "Item is not awaiting approval"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /feedback/{id}/approve [post]
func (h *Handlers) Approve(c *gin.Context) {
	// The body is optional: an empty body approves the draft as-is.
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	h.mutateItem(c, "approve", func(ctx context.Context, id string) (*domain.FeedbackItem, error) {
		return h.reviewSvc.Approve(ctx, id, req.Text)
	})
}

// Retry godoc
// @ID          retryFeedback
// @Summary     Retry a failed item
// @Description Re-arms a failed item: the state it fell out of is restored and the next cycle picks it up again.
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Feedback
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Feedback item ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.FeedbackItem
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Item not found"
// @Failure     409  {object} handlers.ErrorResponse "Item changed concurrently"
// @Failure     422  {object} handlers.ErrorResponse "Item is not failed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /feedback/{id}/retry [post]
func (h *Handlers) Retry(c *gin.Context) {
	h.mutateItem(c, "retry", func(ctx context.Context, id string) (*domain.FeedbackItem, error) {
		return h.reviewSvc.Retry(ctx, id)
	})
}

// mutateItem wraps the shared approve/retry plumbing: UUID guard, idempotent
// replay, the mutation itself, and best-effort outcome recording.
func (h *Handlers) mutateItem(c *gin.Context, operation string, mutate func(ctx context.Context, id string) (*domain.FeedbackItem, error)) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "item id must be a UUID")
		return
	}

	// Idempotency replay: serve the recorded outcome if present.
	key := idemKey(c)
	if key != "" {
		if svc, okSvc := h.reviewSvc.(*services.ReviewService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, id, operation, key, time.Now().UTC()); err == nil && rec != nil {
				if item, _, err2 := h.reviewSvc.Get(ctx, id); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, rec.Status, item)
					return
				}
			}
		}
	}

	item, err := mutate(ctx, id)
	if err != nil {
		failItemErr(c, err)
		return
	}

	// Idempotency store: best effort.
	if key != "" {
		if svc, okSvc := h.reviewSvc.(*services.ReviewService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, id, operation, key, http.StatusOK, h.IdemTTL)
		}
	}

	ok(c, http.StatusOK, item)
}

// GetStats godoc
// @ID          getStats
// @Summary     Dashboard summary
// @Description Returns per-state and per-account item counts plus the size of the human queue (pending drafts and failed items).
// @Tags        Stats
// @Produce     json
//
// @Success     200  {object} services.Stats
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /stats [get]
func (h *Handlers) GetStats(c *gin.Context) {
	st, err := h.reviewSvc.Overview(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}
