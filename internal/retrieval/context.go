package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/glossary"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/logger"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/token"
)

// ConsistencyContext is built once per run and read-only afterwards. Entries
// pin term translations; Notes carries free-text guidance.
type ConsistencyContext struct {
	Entries []glossary.Entry
	Notes   string
}

// Empty reports whether the context would contribute nothing to a prompt.
func (c *ConsistencyContext) Empty() bool {
	return c == nil || (len(c.Entries) == 0 && c.Notes == "")
}

// RenderNote formats the context as a prompt section. Returns "" when empty.
func (c *ConsistencyContext) RenderNote() string {
	if c.Empty() {
		return ""
	}
	var b strings.Builder
	if len(c.Entries) > 0 {
		b.WriteString("Use these exact translations for the following terms:\n")
		for _, e := range c.Entries {
			fmt.Fprintf(&b, "- %s = %s\n", e.Source, e.Target)
		}
	}
	if c.Notes != "" {
		b.WriteString(c.Notes)
		b.WriteString("\n")
	}
	return b.String()
}

// BuildOptions configures context construction.
type BuildOptions struct {
	// Query overrides the default document-derived query.
	Query string
	// Budget caps the rendered context size in estimated tokens.
	Budget int
	// Seed entries come from a user glossary file. They are kept ahead of
	// retrieved terms and never evicted by the budget.
	Seed []glossary.Entry
	// Limit caps how many snippets one retrieval call may return.
	Limit int
}

const defaultSnippetLimit = 50

// BuildContext queries the retriever and assembles a capped context.
// Retrieval failure is not fatal: the run proceeds with the seed entries only.
func BuildContext(ctx context.Context, ret Retriever, doc *document.Document, opts BuildOptions) *ConsistencyContext {
	out := &ConsistencyContext{Entries: append([]glossary.Entry(nil), opts.Seed...)}

	if ret == nil {
		return capContext(out, len(opts.Seed), opts.Budget)
	}

	query := opts.Query
	userQuery := query != ""
	if !userQuery {
		query = defaultQuery(doc)
		if query == "" {
			return capContext(out, len(opts.Seed), opts.Budget)
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSnippetLimit
	}

	snippets, err := ret.Retrieve(ctx, query, limit)
	if err != nil {
		logger.Warn("retrieval failed, continuing without consistency terms", "error", err)
		return capContext(out, len(opts.Seed), opts.Budget)
	}
	if len(snippets) == 0 && userQuery {
		logger.Warn("glossary query matched nothing", "query", query)
	}

	seen := make(map[string]bool, len(out.Entries))
	for _, e := range out.Entries {
		seen[e.Source] = true
	}
	var retrieved []glossary.Entry
	for _, s := range snippets {
		if s.Source == "" || s.Target == "" || seen[s.Source] {
			continue
		}
		seen[s.Source] = true
		retrieved = append(retrieved, glossary.Entry{Source: s.Source, Target: s.Target})
	}
	rankByFrequency(retrieved, doc.Text())
	out.Entries = append(out.Entries, retrieved...)

	return capContext(out, len(opts.Seed), opts.Budget)
}

// rankByFrequency orders entries by how often their source term occurs in the
// document, most frequent first. Ties keep the term that appears earlier.
func rankByFrequency(entries []glossary.Entry, text string) {
	type rank struct {
		count int
		first int
	}
	ranks := make(map[string]rank, len(entries))
	for _, e := range entries {
		ranks[e.Source] = rank{
			count: strings.Count(text, e.Source),
			first: firstIndex(text, e.Source),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := ranks[entries[i].Source], ranks[entries[j].Source]
		if ri.count != rj.count {
			return ri.count > rj.count
		}
		return ri.first < rj.first
	})
}

func firstIndex(text, term string) int {
	idx := strings.Index(text, term)
	if idx < 0 {
		return len(text)
	}
	return idx
}

// capContext trims retrieved entries until the rendered note fits the token
// budget. The first `seed` entries are user glossary terms and always stay.
func capContext(c *ConsistencyContext, seed, budget int) *ConsistencyContext {
	if budget <= 0 {
		return c
	}
	for len(c.Entries) > seed && token.Estimate(c.RenderNote()) > budget {
		c.Entries = c.Entries[:len(c.Entries)-1]
	}
	return c
}

// defaultQuery picks the document's recurring capitalized words as the
// retrieval query. Returns "" for documents with no such terms.
func defaultQuery(doc *document.Document) string {
	text := doc.Text()
	counts := make(map[string]int)
	order := make(map[string]int)
	pos := 0
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		pos++
		runes := []rune(field)
		if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
			continue
		}
		counts[field]++
		if _, ok := order[field]; !ok {
			order[field] = pos
		}
	}
	var terms []string
	for term, n := range counts {
		if n >= 2 {
			terms = append(terms, term)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return order[terms[i]] < order[terms[j]]
	})
	const maxQueryTerms = 10
	if len(terms) > maxQueryTerms {
		terms = terms[:maxQueryTerms]
	}
	return strings.Join(terms, " ")
}
