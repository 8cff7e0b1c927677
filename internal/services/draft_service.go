// Package services – DraftService
//
// This file implements the DraftService, the stage that turns a routed item
// into a candidate reply. It claims the item with an optimistic lock before
// spending money on the generation gateway, assembles a deterministic prompt
// (product context plus ranked reference examples), retries transient gateway
// failures with bounded exponential backoff, and commits the result in a
// single conditional transition: auto_eligible items become drafted_auto,
// needs_review items become drafted_pending, and exhausted or permanent
// failures become failed with the source state preserved in FailedFrom.
//
// Outcomes are values, not errors: an error return means the store or the
// context failed, never the generator.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/generation"
	"github.com/tbourn/go-feedback-responder/internal/prompt"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/search"
)

// Generator produces a reply for an assembled prompt. *generation.Client
// satisfies it; tests substitute doubles.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
}

// RankerFunc builds a relevance index over candidate example documents.
// The default is the lexical-overlap index from the search package.
type RankerFunc func(docs []search.Doc) search.Index

// DraftOutcome describes how a Draft call ended.
type DraftOutcome string

const (
	// DraftDrafted means a draft was generated and committed.
	DraftDrafted DraftOutcome = "drafted"
	// DraftFailed means the item moved to failed after exhausting retries or
	// hitting a permanent generation error.
	DraftFailed DraftOutcome = "failed"
	// DraftConflict means another actor advanced the item first; nothing was
	// generated or written.
	DraftConflict DraftOutcome = "conflict"
)

// DraftService generates reply drafts for routed items.
type DraftService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Generator is the generation gateway.
	Generator Generator
	// Assembler renders the prompt; its fields come from config and the
	// per-cycle settings snapshot.
	Assembler *prompt.Assembler
	// Ranker builds the example relevance index per call.
	Ranker RankerFunc

	// MaxAttempts is the gateway attempt ceiling per Draft call.
	MaxAttempts int
	// InitialBackoff is the first retry delay; it doubles per attempt.
	InitialBackoff time.Duration
	// MaxDraftRunes rejects generations longer than the marketplace allows.
	MaxDraftRunes int
	// ExamplePool is how many recent reference examples feed the ranker.
	ExamplePool int
}

// NewDraftService constructs a DraftService with the default retry policy and
// the lexical ranker.
func NewDraftService(db *gorm.DB, gen Generator) *DraftService {
	return &DraftService{
		DB:        db,
		Generator: gen,
		Assembler: &prompt.Assembler{MaxExamples: 3},
		Ranker: func(docs []search.Doc) search.Index {
			return search.NewIndex(docs)
		},
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxDraftRunes:  5000,
		ExamplePool:    200,
	}
}

// Draft generates and commits a reply draft for one routed item.
//
// The caller passes the item as it read it; the claim guards against any
// other actor having advanced it since. Outcomes:
//
//   - DraftDrafted: one generation succeeded and exactly one draft write
//     moved the item to drafted_auto or drafted_pending.
//   - DraftFailed: retries exhausted or the failure was permanent; the item
//     is failed with LastError and FailedFrom recorded.
//   - DraftConflict: the claim or the final transition lost a race. No
//     generation happened after a lost claim.
//
// A non-nil error means the store failed or ctx ended; the item is left for
// the next cycle.
func (s *DraftService) Draft(ctx context.Context, item *domain.FeedbackItem) (DraftOutcome, error) {
	tr := otel.Tracer("services/DraftService")
	ctx, span := tr.Start(ctx, "Draft",
		trace.WithAttributes(
			attribute.String("item.id", item.ID),
			attribute.String("item.state", string(item.State)),
		),
	)
	defer span.End()

	from := item.State
	var to domain.FeedbackState
	switch from {
	case domain.StateAutoEligible:
		to = domain.StateDraftedAuto
	case domain.StateNeedsReview:
		to = domain.StateDraftedPending
	default:
		return "", ErrInvalidState
	}

	// Claim before calling the gateway so overlapping cycles generate once.
	if err := repo.ClaimStep(ctx, s.DB, item.ID, from, item.Attempts); err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return DraftConflict, nil
		}
		return "", err
	}

	p := s.assemble(ctx, item)

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
		text, err := s.Generator.Generate(ctx, generation.Request{System: p.System, User: p.User})
		if err == nil {
			if lastErr = s.validateDraft(text); lastErr == nil {
				return s.commitDraft(ctx, item.ID, from, to, strings.TrimSpace(text), attempts)
			}
			break // malformed generation, permanent
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

	return s.commitFailure(ctx, item.ID, from, lastErr, attempts)
}

// assemble loads the product context and ranked examples and renders the
// prompt. Missing context never blocks drafting.
func (s *DraftService) assemble(ctx context.Context, item *domain.FeedbackItem) prompt.Prompt {
	asm := s.Assembler
	if asm == nil {
		asm = &prompt.Assembler{}
	}

	var product *domain.ProductContext
	if item.ProductRef != "" {
		if pc, err := repo.GetProductContext(ctx, s.DB, item.AccountID, item.ProductRef); err == nil {
			product = pc
		}
	}

	examples := s.selectExamples(ctx, item, asm.MaxExamples)
	return asm.Assemble(item, product, examples)
}

// selectExamples ranks the recent reference-example pool against the item's
// text by lexical overlap and returns the top k, falling back to the newest
// examples when nothing overlaps.
func (s *DraftService) selectExamples(ctx context.Context, item *domain.FeedbackItem, k int) []domain.ReferenceExample {
	if k <= 0 {
		return nil
	}
	poolSize := s.ExamplePool
	if poolSize <= 0 {
		poolSize = 200
	}
	pool, err := repo.ListRecentExamples(ctx, s.DB, poolSize)
	if err != nil || len(pool) == 0 {
		return nil
	}

	byRef := make(map[string]*domain.ReferenceExample, len(pool))
	docs := make([]search.Doc, 0, len(pool))
	for i := range pool {
		ex := &pool[i]
		byRef[ex.ID] = ex
		docs = append(docs, search.Doc{
			Ref:  ex.ID,
			Text: search.ComposeDoc(ex.ProductName, ex.FeedbackText, ex.ReplyText),
			At:   ex.CreatedAt,
		})
	}

	ranker := s.Ranker
	if ranker == nil {
		ranker = func(d []search.Doc) search.Index { return search.NewIndex(d) }
	}
	query := search.ComposeDoc(item.ProductName, item.Text, item.Pros, item.Cons)

	out := make([]domain.ReferenceExample, 0, k)
	for _, hit := range ranker(docs).TopK(query, k) {
		if ex, ok := byRef[hit.Ref]; ok {
			out = append(out, *ex)
		}
	}
	if len(out) == 0 {
		// No lexical overlap at all; recent examples still beat none.
		for i := 0; i < len(pool) && i < k; i++ {
			out = append(out, pool[i])
		}
	}
	return out
}

// validateDraft rejects generations the marketplace would refuse.
func (s *DraftService) validateDraft(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyDraft
	}
	if s.MaxDraftRunes > 0 && utf8.RuneCountInString(text) > s.MaxDraftRunes {
		return ErrDraftTooLong
	}
	return nil
}

// commitDraft performs the single draft write, conditional on the source
// state the item was claimed in.
func (s *DraftService) commitDraft(ctx context.Context, id string, from, to domain.FeedbackState, text string, attempts int) (DraftOutcome, error) {
	err := repo.TransitionState(ctx, s.DB, id, from, to, map[string]any{
		"draft_text": text,
		"attempts":   attempts,
		"last_error": nil,
	})
	if err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return DraftConflict, nil
		}
		return "", err
	}
	return DraftDrafted, nil
}

// commitFailure moves the item to failed, recording what went wrong and
// where the item came from so the operator retry can restore it.
func (s *DraftService) commitFailure(ctx context.Context, id string, from domain.FeedbackState, cause error, attempts int) (DraftOutcome, error) {
	msg := "generation failed"
	if cause != nil {
		msg = cause.Error()
	}
	err := repo.TransitionState(ctx, s.DB, id, from, domain.StateFailed, map[string]any{
		"failed_from": from,
		"last_error":  msg,
		"attempts":    attempts,
	})
	if err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return DraftConflict, nil
		}
		return "", err
	}
	return DraftFailed, nil
}
