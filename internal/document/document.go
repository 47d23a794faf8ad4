// Package document defines the format-independent data model shared by the
// EPUB and SRT pipelines: an ordered sequence of segments, of which the
// translatable ones are submitted to the model as units.
package document

import "strings"

// Format identifies the container a document was extracted from.
type Format string

const (
	FormatEPUB Format = "epub"
	FormatSRT  Format = "srt"
)

// Segment is the smallest structurally addressable piece of a document:
// an HTML text node for EPUB, a subtitle cue's text block for SRT.
// IDs are sequence indices assigned at extraction and never reused.
type Segment struct {
	ID           int
	Text         string
	Translatable bool
	// MaxLen is an optional per-line length hint (graphemes) for subtitle
	// timing constraints. Zero means unconstrained.
	MaxLen int
}

// Unit is a translatable segment as submitted to the model.
type Unit struct {
	ID     int
	Text   string
	MaxLen int
}

// Document is an ordered sequence of segments extracted from one source file.
// The format-specific scaffolding stays with the extracting package; a
// Document only carries what the scheduler and backends need.
type Document struct {
	Path     string
	Format   Format
	Segments []Segment
}

// Units returns the translatable segments in sequence order.
func (d *Document) Units() []Unit {
	units := make([]Unit, 0, len(d.Segments))
	for _, s := range d.Segments {
		if !s.Translatable {
			continue
		}
		units = append(units, Unit{ID: s.ID, Text: s.Text, MaxLen: s.MaxLen})
	}
	return units
}

// Text returns the concatenated translatable text of the document, used for
// term frequency ranking in the consistency context builder.
func (d *Document) Text() string {
	var b strings.Builder
	for _, s := range d.Segments {
		if !s.Translatable {
			continue
		}
		b.WriteString(s.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// IsTranslatableText reports whether a segment's text carries content worth
// translating. Whitespace-only text passes through unchanged.
func IsTranslatableText(text string) bool {
	return strings.TrimSpace(text) != ""
}
