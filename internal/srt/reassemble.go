package srt

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// Reassemble substitutes translated text back into the file's scaffolding.
// Index and timestamp lines are emitted byte-for-byte from the source; a cue
// whose id is missing from results keeps its original text (passthrough), so
// the output is always a complete, well-formed subtitle file.
func Reassemble(f *File, results map[int]string) []byte {
	var b strings.Builder
	if f.BOM {
		b.WriteString(bom)
	}
	nl := f.Newline

	for i, cue := range f.Cues {
		if i > 0 {
			b.WriteString(nl)
		}
		b.WriteString(cue.IndexLine)
		b.WriteString(nl)
		b.WriteString(cue.TimingLine)
		b.WriteString(nl)

		lines := cue.Lines
		if translated, ok := results[i+1]; ok {
			lines = splitLines(translated)
		}
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString(nl)
		}
	}

	// Every emitted line above already carries its newline; only restore
	// what the source actually had after the last cue.
	out := b.String()
	if f.TrailingBlank {
		out += nl
	} else if !f.TrailingNewline {
		out = strings.TrimSuffix(out, nl)
	}
	return []byte(out)
}

func splitLines(text string) []string {
	// Models occasionally emit literal "\n" sequences instead of newlines.
	text = strings.ReplaceAll(text, "\\n", "\n")
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// OverlongLines counts translated lines wider than maxLen. Width is measured
// in grapheme clusters, which is what a viewer sees on screen: "é" and
// an emoji each count as one, regardless of how many runes encode them.
func OverlongLines(results map[int]string, maxLen int) int {
	if maxLen <= 0 {
		return 0
	}
	n := 0
	for _, text := range results {
		for _, line := range splitLines(text) {
			if uniseg.GraphemeClusterCount(line) > maxLen {
				n++
			}
		}
	}
	return n
}

// ValidateAgainst checks the structural invariants of a reassembled output
// against its source: identical cue count and verbatim index/timestamp lines.
func ValidateAgainst(source *File, output []byte) error {
	out, err := Parse(output)
	if err != nil {
		return fmt.Errorf("reassembled output is not parseable: %w", err)
	}
	if len(out.Cues) != len(source.Cues) {
		return fmt.Errorf("cue count changed: source %d, output %d", len(source.Cues), len(out.Cues))
	}
	for i := range source.Cues {
		if out.Cues[i].IndexLine != source.Cues[i].IndexLine {
			return fmt.Errorf("cue %d: index line changed from %q to %q",
				i+1, source.Cues[i].IndexLine, out.Cues[i].IndexLine)
		}
		if out.Cues[i].TimingLine != source.Cues[i].TimingLine {
			return fmt.Errorf("cue %d: timestamp line changed from %q to %q",
				i+1, source.Cues[i].TimingLine, out.Cues[i].TimingLine)
		}
	}
	return nil
}
