package srt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
)

// Cue is one subtitle entry. IndexLine and TimingLine are kept verbatim,
// byte-for-byte, as scaffolding; only Lines is ever translated.
type Cue struct {
	Seq        int
	IndexLine  string
	TimingLine string
	Lines      []string
}

// Text returns the cue's text block joined with newlines.
func (c Cue) Text() string {
	return strings.Join(c.Lines, "\n")
}

// File is a parsed subtitle file: the cue sequence plus the byte-level
// details needed to write it back unchanged.
type File struct {
	BOM             bool
	Newline         string // "\n" or "\r\n"
	Cues            []Cue
	TrailingNewline bool
	TrailingBlank   bool // file ends with a blank line after the last cue
}

const bom = "\uFEFF"

// Parse reads an SRT file into cues. Index and timestamp lines are preserved
// verbatim. Malformed cues fail with a parse error naming the cue number.
func Parse(data []byte) (*File, error) {
	f := &File{Newline: "\n"}
	text := string(data)
	if strings.HasPrefix(text, bom) {
		f.BOM = true
		text = strings.TrimPrefix(text, bom)
	}
	if strings.Contains(text, "\r\n") {
		f.Newline = "\r\n"
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	f.TrailingNewline = strings.HasSuffix(text, "\n")
	f.TrailingBlank = strings.HasSuffix(text, "\n\n")

	lines := strings.Split(text, "\n")
	i := 0
	for {
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		if i >= len(lines) {
			break
		}

		cueNo := len(f.Cues) + 1

		indexLine := lines[i]
		seq, err := strconv.Atoi(strings.TrimSpace(indexLine))
		if err != nil {
			return nil, apperrors.Parse(
				fmt.Sprintf("cue %d: expected numeric index line, got %q", cueNo, indexLine), err)
		}
		i++

		if i >= len(lines) {
			return nil, apperrors.Parse(
				fmt.Sprintf("cue %d: missing timestamp line", cueNo), nil)
		}
		timingLine := lines[i]
		if err := validateTimingLine(timingLine); err != nil {
			return nil, apperrors.Parse(
				fmt.Sprintf("cue %d: %v", cueNo, err), err)
		}
		i++

		var textLines []string
		for i < len(lines) {
			line := lines[i]
			if strings.TrimSpace(line) == "" {
				// An empty line always ends the block. A whitespace-only
				// line directly under the timestamp is the cue's text,
				// kept raw so it passes through unchanged.
				if line == "" || len(textLines) > 0 {
					break
				}
			}
			textLines = append(textLines, line)
			i++
		}

		f.Cues = append(f.Cues, Cue{
			Seq:        seq,
			IndexLine:  indexLine,
			TimingLine: timingLine,
			Lines:      textLines,
		})
	}

	if len(f.Cues) == 0 {
		return nil, apperrors.Parse("no subtitle cues found in file", nil)
	}
	return f, nil
}

func validateTimingLine(line string) error {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected timestamp line %q to contain \"-->\"", line)
	}
	start := strings.TrimSpace(parts[0])
	// Positioning info may follow the end timestamp.
	endFields := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endFields) == 0 {
		return fmt.Errorf("missing end timestamp in %q", line)
	}
	if _, err := ParseTimestamp(start); err != nil {
		return fmt.Errorf("invalid start timestamp: %v", err)
	}
	if _, err := ParseTimestamp(endFields[0]); err != nil {
		return fmt.Errorf("invalid end timestamp: %v", err)
	}
	s, _ := ParseTimestamp(start)
	e, _ := ParseTimestamp(endFields[0])
	if e < s {
		return fmt.Errorf("end timestamp is before start in %q", line)
	}
	return nil
}

// Extract converts a parsed file into the shared document model. A cue's
// segment id is its 1-based position; whitespace-only cues are extracted as
// non-translatable and pass through unchanged.
func Extract(f *File, path string, target language.Language) *document.Document {
	doc := &document.Document{
		Path:     path,
		Format:   document.FormatSRT,
		Segments: make([]document.Segment, 0, len(f.Cues)),
	}
	for i, cue := range f.Cues {
		text := cue.Text()
		doc.Segments = append(doc.Segments, document.Segment{
			ID:           i + 1,
			Text:         text,
			Translatable: document.IsTranslatableText(text),
			MaxLen:       target.MaxLineLen,
		})
	}
	return doc
}

// ParseTimestamp parses an SRT timestamp into a duration since 00:00:00,000.
// It supports hours beyond 23.
func ParseTimestamp(s string) (time.Duration, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid timestamp format: %s", s)
	}

	msStr := parts[1]
	if len(msStr) != 3 {
		return 0, fmt.Errorf("invalid millisecond format: %s", s)
	}
	ms, err := strconv.Atoi(msStr)
	if err != nil || ms < 0 || ms > 999 {
		return 0, fmt.Errorf("invalid milliseconds: %s", s)
	}

	hms := strings.Split(parts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}

	hours, err := strconv.Atoi(hms[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid hours: %s", s)
	}
	minutes, err := strconv.Atoi(hms[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes: %s", s)
	}
	seconds, err := strconv.Atoi(hms[2])
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid seconds: %s", s)
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
