// Package services – DispatchService
//
// This file implements the DispatchService, the only component that submits
// replies to a marketplace. Eligible items hold a released draft: state
// drafted_auto (automatic path) or approved (review path). The service
// claims the item before the submit call, retries transient marketplace
// failures with bounded exponential backoff, and commits the outcome and its
// DeliveryRecord in one transaction: success moves the item to sent with the
// delivered text pinned in SentText; exhaustion or a permanent rejection
// moves it to failed with the source state preserved for the operator retry.
//
// Outcomes are values, not errors: an error return means the store or the
// context failed, never the marketplace.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/marketplace"
	"github.com/tbourn/go-feedback-responder/internal/repo"
)

// DispatchOutcome describes how a Dispatch call ended.
type DispatchOutcome string

const (
	// DispatchSent means the marketplace accepted the reply.
	DispatchSent DispatchOutcome = "sent"
	// DispatchFailed means the item moved to failed after exhausting retries
	// or hitting a permanent marketplace rejection.
	DispatchFailed DispatchOutcome = "failed"
	// DispatchConflict means another actor advanced the item first; nothing
	// was submitted or written.
	DispatchConflict DispatchOutcome = "conflict"
)

// DispatchService delivers released drafts to their marketplace.
type DispatchService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Gateways maps marketplace names to their API clients.
	Gateways marketplace.Registry

	// MaxAttempts is the submit attempt ceiling per Dispatch call.
	MaxAttempts int
	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration
}

// NewDispatchService constructs a DispatchService with the default retry
// policy.
func NewDispatchService(db *gorm.DB, gws marketplace.Registry) *DispatchService {
	return &DispatchService{
		DB:             db,
		Gateways:       gws,
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Dispatch submits the draft of one released item.
//
// The caller passes the item as it read it; the claim guards against any
// other actor (an overlapping cycle, or the admin surface racing the loop)
// having advanced it since, so concurrent dispatches of the same snapshot
// produce exactly one submit call. Outcomes:
//
//   - DispatchSent: the reply was delivered; the item is sent, SentText and
//     a successful DeliveryRecord are written atomically.
//   - DispatchFailed: retries exhausted or the rejection was permanent; the
//     item is failed with LastError, FailedFrom and a failed DeliveryRecord.
//   - DispatchConflict: the claim or the final transition lost a race.
//
// A non-nil error means the store failed or ctx ended; the item is left for
// the next cycle.
func (s *DispatchService) Dispatch(ctx context.Context, acc *domain.Account, item *domain.FeedbackItem) (DispatchOutcome, error) {
	tr := otel.Tracer("services/DispatchService")
	ctx, span := tr.Start(ctx, "Dispatch",
		trace.WithAttributes(
			attribute.String("item.id", item.ID),
			attribute.String("item.state", string(item.State)),
			attribute.String("account.id", acc.ID),
		),
	)
	defer span.End()

	from := item.State
	if from != domain.StateDraftedAuto && from != domain.StateApproved {
		return "", ErrInvalidState
	}

	gw, ok := s.Gateways.For(acc)
	if !ok {
		return "", ErrUnsupportedMarketplace
	}

	text := ""
	if item.DraftText != nil {
		text = strings.TrimSpace(*item.DraftText)
	}
	if text == "" {
		// Nothing deliverable; fail without touching the marketplace.
		return s.commitDispatchFailure(ctx, item.ID, from, ErrEmptyDraft, item.Attempts, false)
	}

	// Claim before calling the marketplace so a double-triggered dispatch
	// submits once.
	if err := repo.ClaimStep(ctx, s.DB, item.ID, from, item.Attempts); err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return DispatchConflict, nil
		}
		return "", err
	}

	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	backoff := s.InitialBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	attempts := 0
	var lastErr error
	for {
		attempts++
		res, err := gw.SubmitReply(ctx, acc, item.ExternalID, text)
		if err == nil {
			return s.commitDelivery(ctx, item.ID, from, text, res, attempts)
		}
		if cerr := ctx.Err(); cerr != nil {
			// Shutting down: leave the item in place for the next cycle.
			return "", cerr
		}
		lastErr = err
		if !IsTransient(err) || attempts >= maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return s.commitDispatchFailure(ctx, item.ID, from, lastErr, attempts, true)
}

// commitDelivery records the accepted reply: the sent transition and the
// DeliveryRecord land in one transaction so the delivery history can never
// disagree with the item state.
func (s *DispatchService) commitDelivery(ctx context.Context, id string, from domain.FeedbackState, text string, res *marketplace.DeliveryResult, attempts int) (DispatchOutcome, error) {
	var replyID *string
	if res != nil {
		replyID = res.ReplyID
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.TransitionState(ctx, tx, id, from, domain.StateSent, map[string]any{
			"sent_text":  text,
			"attempts":   attempts,
			"last_error": nil,
		}); err != nil {
			return err
		}
		_, err := repo.CreateDeliveryRecord(ctx, tx, id, true, replyID, nil)
		return err
	})
	if err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return DispatchConflict, nil
		}
		return "", err
	}
	return DispatchSent, nil
}

// commitDispatchFailure moves the item to failed. When the marketplace was
// actually called, the failed attempt is also recorded in the delivery
// history.
func (s *DispatchService) commitDispatchFailure(ctx context.Context, id string, from domain.FeedbackState, cause error, attempts int, attempted bool) (DispatchOutcome, error) {
	msg := "dispatch failed"
	if cause != nil {
		msg = cause.Error()
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.TransitionState(ctx, tx, id, from, domain.StateFailed, map[string]any{
			"failed_from": from,
			"last_error":  msg,
			"attempts":    attempts,
		}); err != nil {
			return err
		}
		if !attempted {
			return nil
		}
		_, err := repo.CreateDeliveryRecord(ctx, tx, id, false, nil, &msg)
		return err
	})
	if err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return DispatchConflict, nil
		}
		return "", err
	}
	return DispatchFailed, nil
}
