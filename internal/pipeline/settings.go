package pipeline

import (
	"context"
	"strconv"
	"strings"

	"github.com/tbourn/go-feedback-responder/internal/prompt"
	"github.com/tbourn/go-feedback-responder/internal/repo"
	"github.com/tbourn/go-feedback-responder/internal/services"
)

// Setting keys the loop consumes. Values live in the settings table and are
// admin-editable at runtime; the loop reads them once per cycle.
const (
	// SettingPromptTemplate overrides the configured user-prompt template.
	SettingPromptTemplate = "prompt_template"
	// SettingMaxExamples overrides how many reference examples a prompt may
	// carry. "0" disables examples entirely.
	SettingMaxExamples = "max_examples"
)

// cycleSettings is the snapshot of admin-editable knobs taken at a cycle
// boundary. maxExamples < 0 means "no override".
type cycleSettings struct {
	template    string
	maxExamples int
}

// loadSettings reads the settings table once. A read failure degrades to the
// configured defaults; the cycle still runs.
func (o *Orchestrator) loadSettings(ctx context.Context) cycleSettings {
	snap := cycleSettings{maxExamples: -1}
	vals, err := repo.AllSettings(ctx, o.DB)
	if err != nil {
		o.Logger.Warn().Err(err).Msg("settings snapshot failed, using configured defaults")
		return snap
	}
	snap.template = strings.TrimSpace(vals[SettingPromptTemplate])
	if raw := strings.TrimSpace(vals[SettingMaxExamples]); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			snap.maxExamples = n
		}
	}
	return snap
}

// draftFor applies the snapshot to the drafting service. The configured
// service is never mutated; overrides live on a per-cycle copy so an admin
// edit mid-cycle cannot change prompts between items.
func (o *Orchestrator) draftFor(snap cycleSettings) *services.DraftService {
	if snap.template == "" && snap.maxExamples < 0 {
		return o.Draft
	}
	draft := *o.Draft
	var asm prompt.Assembler
	if o.Draft.Assembler != nil {
		asm = *o.Draft.Assembler
	}
	if snap.template != "" {
		asm.Template = snap.template
	}
	if snap.maxExamples >= 0 {
		asm.MaxExamples = snap.maxExamples
	}
	draft.Assembler = &asm
	return &draft
}
