// Package pipeline runs the background feedback-processing loop.
//
// One Orchestrator goroutine serves every account. Each interval it loads the
// active accounts and runs a full cycle per account, in sequence: ingest
// unanswered feedback, route new items by rating, draft replies for eligible
// items, and dispatch whatever is ready to send. A failure in one account's
// cycle is logged and isolated; the remaining accounts still run.
//
// The loop is one of two concurrent writers (the admin API is the other).
// Every state change it makes goes through a conditional transition, so a
// lost race surfaces as a benign conflict outcome, never as corruption.
// Admin-editable settings are snapshotted once per cycle; an edit takes
// effect at the next cycle boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-feedback-responder/internal/domain"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/services"
)

const (
	// DefaultInterval matches the source system's one-minute poll cadence.
	DefaultInterval = time.Minute
	// DefaultStepBatch bounds how many items a single cycle drafts or
	// dispatches per account; leftovers wait for the next cycle.
	DefaultStepBatch = 50
)

// Orchestrator drives the ingest → route → draft → dispatch loop.
type Orchestrator struct {
	// DB is the shared gorm handle.
	DB *gorm.DB

	// Ingest, Route, Draft and Dispatch are the stage services. All four
	// must be non-nil.
	Ingest   *services.IngestService
	Route    *services.RouteService
	Draft    *services.DraftService
	Dispatch *services.DispatchService

	// Interval is the pause between cycles. <= 0 selects DefaultInterval.
	Interval time.Duration

	// StepBatch caps per-account draft and dispatch work per cycle.
	// <= 0 selects DefaultStepBatch.
	StepBatch int

	// Logger receives loop events. Defaults to the global logger tagged
	// with the component name.
	Logger zerolog.Logger
}

// NewOrchestrator wires the loop with defaults applied.
func NewOrchestrator(db *gorm.DB, ingest *services.IngestService, route *services.RouteService, draft *services.DraftService, dispatch *services.DispatchService) *Orchestrator {
	return &Orchestrator{
		DB:        db,
		Ingest:    ingest,
		Route:     route,
		Draft:     draft,
		Dispatch:  dispatch,
		Interval:  DefaultInterval,
		StepBatch: DefaultStepBatch,
		Logger:    log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes cycles until ctx is cancelled. The first cycle starts
// immediately; subsequent cycles fire on the interval ticker. Run returns
// once ctx is done; the in-flight item finishes its current atomic step
// first, so no state is left half-written.
func (o *Orchestrator) Run(ctx context.Context) {
	interval := o.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	o.cycle(ctx)

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.cycle(ctx)
		}
	}
}

func (o *Orchestrator) cycle(ctx context.Context) {
	if err := o.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		o.Logger.Error().Err(err).Msg("cycle aborted")
	}
}

// RunCycle executes one full pass over all active accounts. Per-account
// failures are logged, counted and isolated; RunCycle itself returns an
// error only when the account list cannot be loaded or ctx ends.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	accounts, err := repo.ListActiveAccounts(ctx, o.DB)
	if err != nil {
		return fmt.Errorf("listing active accounts: %w", err)
	}
	snap := o.loadSettings(ctx)
	draft := o.draftFor(snap)

	for i := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		acc := &accounts[i]
		start := time.Now()
		err := o.runAccount(ctx, acc, draft)
		switch {
		case err == nil:
			observeCycle(acc.Name, "ok", time.Since(start))
		case errors.Is(err, context.Canceled):
			return err
		default:
			observeCycle(acc.Name, "error", time.Since(start))
			o.Logger.Warn().Err(err).
				Str("account", acc.Name).
				Str("marketplace", acc.Marketplace).
				Msg("account cycle failed")
		}
	}
	return nil
}

// runAccount runs the four stages for one account. The returned error means
// the cycle aborted mid-stage (store failure or cancellation); per-item
// gateway failures are recorded on the items and do not surface here.
func (o *Orchestrator) runAccount(ctx context.Context, acc *domain.Account, draft *services.DraftService) error {
	lg := o.Logger.With().
		Str("account", acc.Name).
		Str("marketplace", acc.Marketplace).
		Logger()

	ing, err := o.Ingest.Ingest(ctx, acc)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	recordOutcome(acc.Name, "ingest", "created", ing.Created)
	recordOutcome(acc.Name, "ingest", "refreshed", ing.Refreshed)
	recordOutcome(acc.Name, "ingest", "ignored", ing.Ignored)
	recordOutcome(acc.Name, "ingest", "malformed", ing.Malformed)
	recordOutcome(acc.Name, "ingest", "product_synced", ing.ProductsSynced)
	if ing.Changed() > 0 || ing.Malformed > 0 {
		lg.Info().
			Int("fetched", ing.Fetched).
			Int("created", ing.Created).
			Int("refreshed", ing.Refreshed).
			Int("malformed", ing.Malformed).
			Msg("ingested feedback")
	}

	rt, err := o.Route.RouteNew(ctx, acc)
	if err != nil {
		return fmt.Errorf("route: %w", err)
	}
	recordOutcome(acc.Name, "route", "auto_eligible", rt.AutoEligible)
	recordOutcome(acc.Name, "route", "needs_review", rt.NeedsReview)
	recordOutcome(acc.Name, "route", "skipped", rt.Skipped)
	recordOutcome(acc.Name, "route", "conflict", rt.Conflicts)
	if rt.AutoEligible+rt.NeedsReview+rt.Skipped > 0 {
		lg.Debug().
			Int("auto_eligible", rt.AutoEligible).
			Int("needs_review", rt.NeedsReview).
			Int("skipped", rt.Skipped).
			Msg("routed feedback")
	}

	if err := o.draftAccount(ctx, draft, acc, lg); err != nil {
		return fmt.Errorf("draft: %w", err)
	}
	if err := o.dispatchAccount(ctx, acc, lg); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}

// draftAccount drafts replies for routed items, auto path first so
// auto-eligible feedback reaches the marketplace within one cycle.
func (o *Orchestrator) draftAccount(ctx context.Context, draft *services.DraftService, acc *domain.Account, lg zerolog.Logger) error {
	for _, state := range []domain.FeedbackState{domain.StateAutoEligible, domain.StateNeedsReview} {
		items, err := repo.ListItemsInState(ctx, o.DB, acc.ID, state, o.stepBatch())
		if err != nil {
			return err
		}
		for i := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			out, err := draft.Draft(ctx, &items[i])
			draftDur.Observe(time.Since(start).Seconds())
			if err != nil {
				return err
			}
			recordOutcome(acc.Name, "draft", string(out), 1)
			switch out {
			case services.DraftFailed:
				lg.Warn().Str("item_id", items[i].ID).Msg("draft failed")
			case services.DraftConflict:
				lg.Debug().Str("item_id", items[i].ID).Msg("draft lost transition race")
			default:
				lg.Debug().Str("item_id", items[i].ID).Msg("draft ready")
			}
		}
	}
	return nil
}

// dispatchAccount delivers auto drafts and operator-approved drafts.
func (o *Orchestrator) dispatchAccount(ctx context.Context, acc *domain.Account, lg zerolog.Logger) error {
	for _, state := range []domain.FeedbackState{domain.StateDraftedAuto, domain.StateApproved} {
		items, err := repo.ListItemsInState(ctx, o.DB, acc.ID, state, o.stepBatch())
		if err != nil {
			return err
		}
		for i := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			out, err := o.Dispatch.Dispatch(ctx, acc, &items[i])
			dispatchDur.Observe(time.Since(start).Seconds())
			if err != nil {
				return err
			}
			recordOutcome(acc.Name, "dispatch", string(out), 1)
			switch out {
			case services.DispatchSent:
				lg.Info().Str("item_id", items[i].ID).Msg("reply sent")
			case services.DispatchFailed:
				lg.Warn().Str("item_id", items[i].ID).Msg("dispatch failed")
			default:
				lg.Debug().Str("item_id", items[i].ID).Msg("dispatch lost transition race")
			}
		}
	}
	return nil
}

func (o *Orchestrator) stepBatch() int {
	if o.StepBatch > 0 {
		return o.StepBatch
	}
	return DefaultStepBatch
}
