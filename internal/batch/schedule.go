// Package batch groups translation units into token-budgeted batches and
// dispatches them to a backend with bounded concurrency and per-batch retry.
package batch

import (
	"time"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/token"
)

// Batch is an ordered group of units submitted in one backend call, plus its
// retry state. Retry state is owned by the dispatching worker; no two workers
// ever hold the same batch.
type Batch struct {
	Index     int
	Units     []document.Unit
	EstTokens int

	Attempt   int
	LastErr   error
	NextRetry time.Time
}

// IDs returns the unit ids in original sequence order.
func (b *Batch) IDs() []int {
	ids := make([]int, len(b.Units))
	for i, u := range b.Units {
		ids[i] = u.ID
	}
	return ids
}

// Schedule packs units into batches in sequence order. A batch closes when
// the next unit would push it past the token budget or the unit cap. A single
// unit over the budget still gets its own batch; units are never split.
func Schedule(units []document.Unit, budget, maxUnits int) []*Batch {
	if maxUnits <= 0 {
		maxUnits = len(units)
	}
	var batches []*Batch
	var current *Batch
	for _, u := range units {
		cost := token.EstimateUnit(u.Text)
		if current != nil &&
			(current.EstTokens+cost > budget || len(current.Units) >= maxUnits) {
			batches = append(batches, current)
			current = nil
		}
		if current == nil {
			current = &Batch{Index: len(batches)}
		}
		current.Units = append(current.Units, u)
		current.EstTokens += cost
	}
	if current != nil {
		batches = append(batches, current)
	}
	return batches
}
