// Package prompt – Assembler
//
// This file implements the Assembler, which turns a feedback item plus its
// optional product context and reference examples into the final prompt pair
// under a bounded context budget. Budgeting uses a bytes/4 token estimate;
// the product description is truncated first and examples are appended only
// while they fit, so the prompt degrades gracefully down to the bare
// feedback text.
package prompt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-feedback-responder/internal/domain"
)

// DefaultTokenBudget caps the estimated size of the assembled user prompt.
const DefaultTokenBudget = 2000

// Prompt is the assembled request: a system instruction and the user prompt.
type Prompt struct {
	System string
	User   string
}

// Assembler builds prompts. The zero value works with defaults; fields are
// usually populated from configuration and the per-cycle settings snapshot.
type Assembler struct {
	// Template is the user-prompt template; empty selects DefaultTemplate.
	Template string
	// System is the system message; empty selects DefaultSystem.
	System string
	// TokenBudget caps the estimated prompt size; <=0 selects the default.
	TokenBudget int
	// MaxExamples bounds how many reference examples may be included.
	MaxExamples int
	// NameLocale drives title-casing of the customer name in the greeting.
	// The zero tag applies locale-neutral casing.
	NameLocale language.Tag
}

// Assemble renders the prompt for an item. product may be nil and examples
// may be empty; the result is always a valid prompt.
func (a *Assembler) Assemble(item *domain.FeedbackItem, product *domain.ProductContext, examples []domain.ReferenceExample) Prompt {
	tmpl := a.Template
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultTemplate
	}
	system := a.System
	if strings.TrimSpace(system) == "" {
		system = DefaultSystem
	}
	budget := a.TokenBudget
	if budget <= 0 {
		budget = DefaultTokenBudget
	}

	vars := Vars{
		AuthorName:  cases.Title(a.NameLocale).String(strings.TrimSpace(item.AuthorName)),
		Text:        item.Text,
		Rating:      ratingString(item.Rating),
		Pros:        item.Pros,
		Cons:        item.Cons,
		ProductName: item.ProductName,
	}
	description := ""
	if product != nil {
		vars.ProductTitle = product.Title
		vars.ProductBenefits = formatBenefits(product.Attributes)
		description = product.Description
	}

	// Measure the fixed cost without description and examples, then give the
	// description whatever budget remains.
	fixed := estimateTokens(Render(tmpl, vars))
	if room := budget - fixed; room > 0 {
		vars.ProductDescription = truncateToTokens(description, room)
	}

	rendered := Render(tmpl, vars)
	if a.MaxExamples > 0 && len(examples) > 0 {
		vars.Examples = a.buildExamplesBlock(examples, budget-estimateTokens(rendered))
		rendered = Render(tmpl, vars)
	}

	return Prompt{System: system, User: rendered}
}

// buildExamplesBlock appends numbered examples while they fit in the
// remaining budget, preserving the ranked order it was given.
func (a *Assembler) buildExamplesBlock(examples []domain.ReferenceExample, room int) string {
	if room <= estimateTokens(examplesHeader) {
		return ""
	}
	var b strings.Builder
	b.WriteString(examplesHeader)
	n := 0
	for _, ex := range examples {
		if n >= a.MaxExamples {
			break
		}
		block := renderExample(n+1, ex)
		if estimateTokens(b.String())+estimateTokens(block) > room {
			break
		}
		b.WriteString(block)
		n++
	}
	if n == 0 {
		return ""
	}
	return b.String()
}

// estimateTokens approximates the token count of a string as bytes/4,
// rounded up. Good enough for budget enforcement; exact tokenization is a
// provider detail.
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// truncateToTokens cuts s on a rune boundary so that its estimated token
// count fits the budget.
func truncateToTokens(s string, tokens int) string {
	if tokens <= 0 {
		return ""
	}
	maxBytes := tokens * 4
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// utf8RuneStart reports whether b can begin a UTF-8 encoded rune.
func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

// attribute mirrors one entry of the marketplace characteristics payload.
type attribute struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// formatBenefits renders the raw characteristics JSON as "name: value"
// lines. Unknown shapes degrade to an empty string rather than failing the
// assembly.
func formatBenefits(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var attrs []attribute
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return ""
	}
	lines := make([]string, 0, len(attrs))
	for _, at := range attrs {
		name := strings.TrimSpace(at.Name)
		value := formatAttrValue(at.Value)
		switch {
		case name != "" && value != "":
			lines = append(lines, name+": "+value)
		case name != "":
			lines = append(lines, name)
		case value != "":
			lines = append(lines, value)
		}
	}
	return strings.Join(lines, "\n")
}

func formatAttrValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if p == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(p)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
