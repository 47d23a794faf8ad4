package srt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/asticode/go-astisub"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/files"
)

// Save writes the reassembled subtitles to path. For .srt the native
// byte-preserving reassembly is used; other extensions (.vtt, .ssa, .ass,
// .ttml, .stl) are converted through astisub.
func Save(path string, f *File, results map[int]string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".srt" || ext == "" {
		data := Reassemble(f, results)
		if err := ValidateAgainst(f, data); err != nil {
			return err
		}
		return files.AtomicWrite(path, data, 0600)
	}

	subs, err := toAstisub(f, results)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	var writeErr error
	switch ext {
	case ".vtt":
		writeErr = subs.WriteToWebVTT(&buf)
	case ".ssa", ".ass":
		writeErr = subs.WriteToSSA(&buf)
	case ".ttml":
		writeErr = subs.WriteToTTML(&buf)
	case ".stl":
		writeErr = subs.WriteToSTL(&buf)
	default:
		return fmt.Errorf("unsupported subtitle output format: %s", ext)
	}
	if writeErr != nil {
		return fmt.Errorf("failed to convert subtitles to %s: %w", ext, writeErr)
	}

	return files.AtomicWrite(path, buf.Bytes(), 0600)
}

func toAstisub(f *File, results map[int]string) (*astisub.Subtitles, error) {
	subs := astisub.NewSubtitles()
	// WriteToSSA dereferences Metadata.
	subs.Metadata = &astisub.Metadata{SSAScriptType: "v4.00+"}

	for i, cue := range f.Cues {
		parts := strings.SplitN(cue.TimingLine, "-->", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("cue %d: malformed timestamp line %q", i+1, cue.TimingLine)
		}
		start, err := ParseTimestamp(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", i+1, err)
		}
		endFields := strings.Fields(strings.TrimSpace(parts[1]))
		if len(endFields) == 0 {
			return nil, fmt.Errorf("cue %d: malformed timestamp line %q", i+1, cue.TimingLine)
		}
		end, err := ParseTimestamp(endFields[0])
		if err != nil {
			return nil, fmt.Errorf("cue %d: %w", i+1, err)
		}

		lines := cue.Lines
		if translated, ok := results[i+1]; ok {
			lines = splitLines(translated)
		}

		item := &astisub.Item{StartAt: start, EndAt: end}
		for _, l := range lines {
			item.Lines = append(item.Lines, astisub.Line{
				Items: []astisub.LineItem{{Text: l}},
			})
		}
		subs.Items = append(subs.Items, item)
	}
	return subs, nil
}

// Load reads and parses a subtitle file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}
	return Parse(data)
}
