// Package services – ReviewService
//
// This file implements the ReviewService, the operator's half of the
// pipeline. It lists and inspects feedback items, edits and approves pending
// drafts, and re-arms failed items. Every mutation is a conditional state
// transition, so an operator action racing the background loop (or another
// operator) resolves to exactly one winner; the loser gets ErrConflict or
// ErrInvalidState depending on where the item actually ended up.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the item identifier.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/repo"
)

// ReviewService implements the operator-facing item operations.
type ReviewService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// MaxDraftRunes caps operator-edited draft text, matching the limit the
	// marketplaces enforce on replies.
	MaxDraftRunes int
}

// NewReviewService constructs a ReviewService with the default draft cap.
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{DB: db, MaxDraftRunes: 5000}
}

// ListPage returns a page of items matching the filter, newest first, plus
// the total match count. It applies defaults for invalid page/pageSize.
func (s *ReviewService) ListPage(ctx context.Context, f repo.ItemFilter, page, pageSize int) ([]domain.FeedbackItem, int64, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountItems(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListItemsPage(ctx, s.DB, f, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns one item and its delivery history.
func (s *ReviewService) Get(ctx context.Context, id string) (*domain.FeedbackItem, []domain.DeliveryRecord, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	item, err := repo.GetItem(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrItemNotFound
		}
		return nil, nil, err
	}
	records, err := repo.ListDeliveryRecords(ctx, s.DB, id)
	if err != nil {
		return nil, nil, err
	}
	return item, records, nil
}

// UpdateDraft replaces the draft text of an item awaiting approval. Only
// drafted_pending items are editable; the operator edits the reply before
// releasing it, never after.
func (s *ReviewService) UpdateDraft(ctx context.Context, id, text string) (*domain.FeedbackItem, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "UpdateDraft",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	text, err := s.cleanDraft(text)
	if err != nil {
		return nil, err
	}

	// A self-transition keeps the edit conditional on the state without
	// moving the item.
	err = repo.TransitionState(ctx, s.DB, id, domain.StateDraftedPending, domain.StateDraftedPending, map[string]any{
		"draft_text": text,
	})
	if err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return nil, s.explainStale(ctx, id)
		}
		return nil, err
	}
	return s.reload(ctx, id)
}

// Approve releases a pending draft for dispatch, optionally replacing the
// text in the same write. The transition is conditional on drafted_pending,
// so double-approval and approval of an already-dispatched item both fail
// cleanly.
func (s *ReviewService) Approve(ctx context.Context, id string, editedText *string) (*domain.FeedbackItem, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "Approve",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	extra := map[string]any{}
	if editedText != nil {
		text, err := s.cleanDraft(*editedText)
		if err != nil {
			return nil, err
		}
		extra["draft_text"] = text
	}

	err := repo.TransitionState(ctx, s.DB, id, domain.StateDraftedPending, domain.StateApproved, extra)
	if err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return nil, s.explainStale(ctx, id)
		}
		return nil, err
	}
	return s.reload(ctx, id)
}

// Retry re-arms a failed item by restoring the state recorded in FailedFrom
// and clearing the failure bookkeeping. The next cycle picks the item up
// again from where it fell out.
func (s *ReviewService) Retry(ctx context.Context, id string) (*domain.FeedbackItem, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "Retry",
		trace.WithAttributes(attribute.String("item.id", id)),
	)
	defer span.End()

	item, err := repo.GetItem(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	if item.State != domain.StateFailed {
		return nil, ErrInvalidState
	}
	dest := item.FailedFrom
	if !domain.StateFailed.CanTransition(dest) {
		return nil, ErrInvalidState
	}

	err = repo.TransitionState(ctx, s.DB, id, domain.StateFailed, dest, map[string]any{
		"failed_from": "",
		"last_error":  nil,
		"attempts":    0,
	})
	if err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return s.reload(ctx, id)
}

// Stats is the operator dashboard summary.
type Stats struct {
	Total      int64               `json:"total"`
	ByState    []repo.StateCount   `json:"by_state"`
	ByAccount  []repo.AccountCount `json:"by_account"`
	NeedsHuman int64               `json:"needs_human"`
}

// Overview aggregates per-state and per-account item counts. NeedsHuman is
// the operator's queue: pending drafts plus failed items.
func (s *ReviewService) Overview(ctx context.Context) (*Stats, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "Overview")
	defer span.End()

	byState, err := repo.CountItemsByState(ctx, s.DB, "")
	if err != nil {
		return nil, err
	}
	byAccount, err := repo.CountItemsByAccount(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	st := &Stats{ByState: byState, ByAccount: byAccount}
	for _, row := range byState {
		st.Total += row.Count
		if row.State == domain.StateDraftedPending || row.State == domain.StateFailed {
			st.NeedsHuman += row.Count
		}
	}
	return st, nil
}

// cleanDraft normalizes and validates operator-provided draft text.
func (s *ReviewService) cleanDraft(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDraft
	}
	if s.MaxDraftRunes > 0 && utf8.RuneCountInString(text) > s.MaxDraftRunes {
		return "", ErrDraftTooLong
	}
	return text, nil
}

// reload returns the item as committed, for handler responses.
func (s *ReviewService) reload(ctx context.Context, id string) (*domain.FeedbackItem, error) {
	item, err := repo.GetItem(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// explainStale turns a lost conditional update into the error the caller can
// act on: the item is gone, already past the expected state, or simply not
// there yet.
func (s *ReviewService) explainStale(ctx context.Context, id string) error {
	item, err := repo.GetItem(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return ErrItemNotFound
		}
		return err
	}
	// Raced past the expected state (e.g. approved twice): a conflict.
	// Never held the expected state: the operation is simply not allowed.
	switch item.State {
	case domain.StateApproved, domain.StateSent:
		return ErrConflict
	default:
		return ErrInvalidState
	}
}
