// Package backend adapts the translation request to the supported model
// servers. Each adapter builds one HTTP call per batch, normalizes transport
// errors into apperrors kinds, and validates the response shape before
// returning per-unit translations.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
)

// Known backend names as accepted on the command line.
const (
	NameLMStudio   = "lmstudio"
	NameOllama     = "ollama"
	NameOpenRouter = "openrouter"
)

// Request is one batch translation call.
type Request struct {
	Units  []document.Unit
	Source language.Language
	Target language.Language
	// Note is the rendered consistency context, "" when empty.
	Note string
	// Strict reiterates the exact id list after a shape failure.
	Strict      bool
	Temperature float64
}

// Result maps unit id to translated text. Adapters guarantee the id set
// matches the request exactly or fail with a shape error.
type Result map[int]string

// Client is implemented by each backend adapter.
type Client interface {
	Name() string
	Translate(ctx context.Context, req Request) (Result, error)
}

// Options carries backend construction parameters from the CLI.
type Options struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
}

// New returns the adapter for a backend name.
func New(name string, opts Options) (Client, error) {
	switch name {
	case NameLMStudio:
		return NewLMStudio(opts), nil
	case NameOllama:
		return NewOllama(opts), nil
	case NameOpenRouter:
		return NewOpenRouter(opts), nil
	}
	return nil, fmt.Errorf("unknown backend %q (supported: %s, %s, %s)",
		name, NameLMStudio, NameOllama, NameOpenRouter)
}

// systemPrompt instructs the model on role, languages, and output contract.
func systemPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional translator. Translate from %s to %s.\n",
		req.Source.Name, req.Target.Name)
	b.WriteString("Preserve the meaning, tone, and register of the source.\n")
	b.WriteString("Never add explanations or commentary.\n")
	if req.Note != "" {
		b.WriteString("\n")
		b.WriteString(req.Note)
	}
	maxLen := 0
	for _, u := range req.Units {
		if u.MaxLen > maxLen {
			maxLen = u.MaxLen
		}
	}
	if maxLen > 0 {
		fmt.Fprintf(&b, "\nKeep each translated line at most %d characters where possible (subtitle timing).\n", maxLen)
	}
	return b.String()
}

// userPrompt enumerates the batch units by id and states the reply format.
func userPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Translate each numbered text. Reply with a single JSON object mapping every id to its translation, like {\"1\": \"...\"}. Include every id exactly once and nothing else.\n\n")
	for _, u := range req.Units {
		fmt.Fprintf(&b, "%d: %s\n", u.ID, u.Text)
	}
	if req.Strict {
		ids := make([]string, len(req.Units))
		for i, u := range req.Units {
			ids[i] = fmt.Sprint(u.ID)
		}
		fmt.Fprintf(&b, "\nYour previous reply had the wrong shape. The JSON object must contain exactly these keys and no others: %s.\n",
			strings.Join(ids, ", "))
	}
	return b.String()
}

// classifyStatus maps an HTTP error status to an apperrors kind.
func classifyStatus(name string, statusCode int, body []byte) error {
	cause := fmt.Errorf("%s returned status %d: %s", name, statusCode, truncate(string(body), 300))
	switch {
	case statusCode == http.StatusTooManyRequests:
		return apperrors.RateLimit(cause)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return apperrors.Auth(cause)
	case statusCode >= 500:
		return apperrors.Transient(cause)
	default:
		return apperrors.BadRequest(cause)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// scrubResponse strips chat template tokens some local models leak into
// their output.
func scrubResponse(s string) string {
	for _, tok := range []string{"<|im_sep|>", "<|im_end|>", "<|im_start|>"} {
		s = strings.ReplaceAll(s, tok, "")
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "-"))
}
