package search

import "strings"

// ComposeDoc joins non-empty parts into a single matchable document with
// normalized whitespace. Callers use it both for queries (feedback text,
// pros, cons, product name) and for indexed documents, so the two sides
// tokenize identically.
func ComposeDoc(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(normalizeWhitespace(p))
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ". ")
}

// normalizeWhitespace collapses runs of spaces, tabs, and carriage returns
// into single spaces, preserving newlines.
func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
