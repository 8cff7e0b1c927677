// Package services – RouteService
//
// This file implements the RouteService, which turns freshly ingested items
// into work for the drafting stage. The routing rule itself is a pure
// function of the star rating and the account's auto-reply flag; the service
// wraps it with the conditional state transition so that overlapping cycles
// never route the same item twice.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/repo"
)

// skipReason is recorded on skipped items so the admin view explains the
// decision. A missing rating is a data condition, not a failure.
const skipReason = "no usable rating"

// RouteService applies the routing rule to items in state "new".
type RouteService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// BatchSize caps how many new items one pass routes per account.
	BatchSize int
}

// NewRouteService constructs a RouteService with a sane batch size.
func NewRouteService(db *gorm.DB) *RouteService {
	return &RouteService{DB: db, BatchSize: 200}
}

// Classify is the routing rule. It depends on nothing but its arguments:
//
//   - nil or out-of-range rating  -> skipped (terminal), no path
//   - rating >= 4 with auto-reply -> auto_eligible on the auto path
//   - rating >= 4 without it      -> needs_review on the review path
//   - rating 1..3                 -> needs_review on the review path
func Classify(rating *int, autoReply bool) (domain.FeedbackState, domain.RoutePath) {
	if rating == nil || *rating < 1 || *rating > 5 {
		return domain.StateSkipped, ""
	}
	if *rating >= 4 && autoReply {
		return domain.StateAutoEligible, domain.RouteAuto
	}
	return domain.StateNeedsReview, domain.RouteReview
}

// RouteResult summarizes one routing pass over a single account.
type RouteResult struct {
	AutoEligible int `json:"auto_eligible"`
	NeedsReview  int `json:"needs_review"`
	Skipped      int `json:"skipped"`
	// Conflicts counts items another actor routed first.
	Conflicts int `json:"conflicts"`
}

// RouteNew classifies every item of the account still in state "new", oldest
// first, committing each decision as a single conditional transition that
// also records the route path. Losing a transition race is a benign no-op.
func (s *RouteService) RouteNew(ctx context.Context, acc *domain.Account) (RouteResult, error) {
	tr := otel.Tracer("services/RouteService")
	ctx, span := tr.Start(ctx, "RouteNew",
		trace.WithAttributes(
			attribute.String("account.id", acc.ID),
			attribute.Bool("account.auto_reply", acc.AutoReplyEnabled),
		),
	)
	defer span.End()

	var res RouteResult

	items, err := repo.ListItemsInState(ctx, s.DB, acc.ID, domain.StateNew, s.BatchSize)
	if err != nil {
		return res, err
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		item := &items[i]
		to, path := Classify(item.Rating, acc.AutoReplyEnabled)

		extra := map[string]any{"route_path": path}
		if to == domain.StateSkipped {
			extra["last_error"] = skipReason
		}
		err := repo.TransitionState(ctx, s.DB, item.ID, domain.StateNew, to, extra)
		if err != nil {
			if errors.Is(err, repo.ErrStaleState) {
				res.Conflicts++
				continue
			}
			return res, err
		}
		switch to {
		case domain.StateAutoEligible:
			res.AutoEligible++
		case domain.StateNeedsReview:
			res.NeedsReview++
		case domain.StateSkipped:
			res.Skipped++
		}
	}
	return res, nil
}
