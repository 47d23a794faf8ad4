package backend

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
)

// ParseTranslations decodes the model's reply into a Result and validates
// its shape against the requested units. Any mismatch is a shape error so
// the scheduler can retry with a strict re-prompt.
func ParseTranslations(raw string, units []document.Unit) (Result, error) {
	payload := unwrapFences(scrubResponse(raw))

	decoded, err := decodeIDMap(payload)
	if err != nil {
		return nil, apperrors.Shape(fmt.Errorf("reply is not a valid id map: %w", err))
	}

	want := make(map[int]bool, len(units))
	for _, u := range units {
		want[u.ID] = true
	}
	var extra, missing []int
	for id := range decoded {
		if !want[id] {
			extra = append(extra, id)
		}
	}
	for _, u := range units {
		if _, ok := decoded[u.ID]; !ok {
			missing = append(missing, u.ID)
		}
	}
	if len(extra) > 0 || len(missing) > 0 {
		sort.Ints(extra)
		sort.Ints(missing)
		return nil, apperrors.Shape(fmt.Errorf("reply id set mismatch: missing %v, unexpected %v", missing, extra))
	}
	for _, u := range units {
		if strings.TrimSpace(decoded[u.ID]) == "" && strings.TrimSpace(u.Text) != "" {
			return nil, apperrors.Shape(fmt.Errorf("empty translation for id %d", u.ID))
		}
	}
	return decoded, nil
}

// decodeIDMap accepts either {"1":"text"} or [{"id":1,"text":"..."}].
// Duplicate ids in the array form are a shape violation.
func decodeIDMap(payload string) (Result, error) {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "[") {
		var items []struct {
			ID   int    `json:"id"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, err
		}
		result := make(Result, len(items))
		for _, item := range items {
			if _, dup := result[item.ID]; dup {
				return nil, fmt.Errorf("duplicate id %d", item.ID)
			}
			result[item.ID] = item.Text
		}
		return result, nil
	}

	var obj map[string]string
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, err
	}
	result := make(Result, len(obj))
	for key, text := range obj {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("non-numeric id key %q", key)
		}
		result[id] = text
	}
	return result, nil
}

// unwrapFences strips a surrounding markdown code fence if present.
func unwrapFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// drop the language tag line ("json" etc.)
		if !strings.ContainsAny(trimmed[:idx], "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
