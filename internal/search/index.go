// Package search provides a simple, deterministic, concurrency-safe in-memory
// relevance index over reply reference documents. It is intentionally small
// and dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging and no persistence in the library (callers own both)
//   - Clear, documented types and functional options (Option pattern)
//   - Unicode-aware tokenization (Cyrillic included) with optional stop-words
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//   - Backward-compatible Index interface (TopK(query, k int) []Result)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|. Ties are broken by
// recency, newest first, and finally by Ref for full determinism.
package search

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// Result is one ranked document reference with its similarity score.
type Result struct {
	Ref   string
	Score float64
}

// Index is the minimal interface implemented by all relevance indices.
type Index interface {
	TopK(query string, k int) []Result
}

// Doc is one retrievable unit: an opaque caller reference, the text matched
// against, and a timestamp used as the recency tie-break.
type Doc struct {
	Ref  string
	Text string
	At   time.Time
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minTokens int
	stopwords map[string]struct{}
	maxDocs   int
}

func defaultConfig() config {
	return config{
		minTokens: 1,
		stopwords: nil,
		maxDocs:   0,
	}
}

// WithMinTokens drops documents whose text yields fewer than n tokens.
func WithMinTokens(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.minTokens = n
		}
	}
}

// WithStopwords removes the given words from both documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps how many documents the index keeps, in input order.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	ref    string
	tokens map[string]struct{}
	tLen   int
	at     time.Time
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over the given documents. Documents with blank
// refs or too little token content are dropped.
func NewIndex(docs []Doc, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return buildIndex(docs, cfg)
}

func buildIndex(in []Doc, cfg config) *index {
	docs := make([]doc, 0, len(in))
	for _, d := range in {
		if d.Ref == "" {
			continue
		}
		toks := tokenize(d.Text, cfg.stopwords)
		if len(toks) < cfg.minTokens {
			continue
		}
		docs = append(docs, doc{ref: d.Ref, tokens: toks, tLen: len(toks), at: d.At})
		if cfg.maxDocs > 0 && len(docs) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching document refs by Jaccard similarity.
// Documents with zero overlap never appear in the result.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 {
		return nil
	}
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		ref   string
		score float64
		at    time.Time
	}

	buf := make([]scored, 0, minInt(k*4, len(i.docs)))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + d.tLen - over)
		if union <= 0 {
			continue
		}
		score := float64(over) / union
		if score <= 0 {
			continue
		}
		buf = append(buf, scored{ref: d.ref, score: score, at: d.at})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if !buf[a].at.Equal(buf[b].at) {
			return buf[a].at.After(buf[b].at)
		}
		return buf[a].ref < buf[b].ref
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{Ref: buf[n].ref, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
