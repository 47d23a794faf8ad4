// Package glossary reads and writes term mapping files. A glossary pins the
// translation of recurring names and terms so every batch renders them the
// same way.
package glossary

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/files"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
)

// Entry maps one source-language term to its fixed target-language rendering.
type Entry struct {
	Source string
	Target string
}

func normalizeCode(code string) (string, error) {
	lang, ok := language.GetLanguage(code)
	if !ok {
		return "", fmt.Errorf("unsupported language: %s", code)
	}
	return lang.Code, nil
}

func schemaKeys(sourceCode, targetCode string) (string, string, error) {
	src, err := normalizeCode(sourceCode)
	if err != nil {
		return "", "", err
	}
	tgt, err := normalizeCode(targetCode)
	if err != nil {
		return "", "", err
	}
	return src, tgt, nil
}

// Encode serializes entries keyed by normalized language codes, so a file
// written for en->fr is self-describing when read back.
func Encode(entries []Entry, sourceCode, targetCode string) ([]byte, error) {
	sourceKey, targetKey, err := schemaKeys(sourceCode, targetCode)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]string{
			sourceKey: e.Source,
			targetKey: e.Target,
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decode parses a glossary file for the given language pair.
func Decode(data []byte, sourceCode, targetCode string) ([]Entry, error) {
	sourceKey, targetKey, err := schemaKeys(sourceCode, targetCode)
	if err != nil {
		return nil, err
	}
	var raw []map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		srcVal, ok := item[sourceKey]
		if !ok {
			return nil, fmt.Errorf("missing source field %q", sourceKey)
		}
		tgtVal, ok := item[targetKey]
		if !ok {
			return nil, fmt.Errorf("missing target field %q", targetKey)
		}
		entries = append(entries, Entry{Source: srcVal, Target: tgtVal})
	}
	return entries, nil
}

// Load reads a glossary file from disk.
func Load(path, sourceCode, targetCode string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read glossary file %s: %w", path, err)
	}
	entries, err := Decode(data, sourceCode, targetCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse glossary file %s: %w", path, err)
	}
	return entries, nil
}

// Save writes a glossary file atomically.
func Save(path string, entries []Entry, sourceCode, targetCode string) error {
	data, err := Encode(entries, sourceCode, targetCode)
	if err != nil {
		return err
	}
	return files.AtomicWrite(path, append(data, '\n'), 0o644)
}
