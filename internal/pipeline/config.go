// Package pipeline wires extraction, consistency context, batching, dispatch,
// and reassembly into one translation run.
package pipeline

import (
	"fmt"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/backend"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/batch"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/glossary"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/retrieval"
)

// Config holds everything a translation run needs.
type Config struct {
	// IO paths
	InputPath  string
	OutputPath string
	LogPath    string

	// Backend selection
	Backend     string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64

	// Batching and dispatch
	TokenBudget   int
	MaxBatchUnits int
	Concurrency   int
	MaxAttempts   int

	// Consistency context
	GlossaryPath  string
	GlossaryQuery string
	RetrievalURL  string
	ContextBudget int
	NoRetrieval   bool

	// Languages
	SourceLang string
	TargetLang string

	Overwrite bool

	// Client overrides the backend named above. Used by tests and callers
	// that construct their own adapter.
	Client backend.Client
	// Retriever overrides the HTTP retriever built from RetrievalURL.
	Retriever retrieval.Retriever
	// Seed entries are merged ahead of any entries loaded from GlossaryPath.
	Seed []glossary.Entry

	// OnProgress receives per-batch state changes.
	OnProgress func(batch.Progress)
	// OnConfirmOverwrite is called when the output file exists. Return true
	// to overwrite.
	OnConfirmOverwrite func(path string) bool
}

const (
	MinConcurrency     = 1
	MaxConcurrency     = 20
	DefaultTokenBudget = 1500
	MaxTokenBudget     = 32000
	DefaultBatchUnits  = 40
	DefaultContextCap  = 400
)

func ClampConcurrency(value int) (int, bool) {
	if value < MinConcurrency {
		return MinConcurrency, true
	}
	if value > MaxConcurrency {
		return MaxConcurrency, true
	}
	return value, false
}

// Normalize applies safe bounds and defaults, returning a note per change.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	if clamped, changed := ClampConcurrency(c.Concurrency); changed {
		notes = append(notes, fmt.Sprintf("concurrency clamped from %d to %d (range %d-%d)", c.Concurrency, clamped, MinConcurrency, MaxConcurrency))
		c.Concurrency = clamped
	}
	if c.TokenBudget <= 0 {
		c.TokenBudget = DefaultTokenBudget
	}
	if c.TokenBudget > MaxTokenBudget {
		notes = append(notes, fmt.Sprintf("token-budget clamped from %d to %d", c.TokenBudget, MaxTokenBudget))
		c.TokenBudget = MaxTokenBudget
	}
	if c.MaxBatchUnits <= 0 {
		c.MaxBatchUnits = DefaultBatchUnits
	}
	if c.ContextBudget <= 0 {
		c.ContextBudget = DefaultContextCap
	}
	return c, notes
}

// Validate checks the configuration before a run.
func (c Config) Validate() error {
	if c.InputPath == "" || c.OutputPath == "" {
		return fmt.Errorf("input and output paths are required")
	}
	if c.Client == nil {
		switch c.Backend {
		case backend.NameLMStudio, backend.NameOllama:
		case backend.NameOpenRouter:
			if c.APIKey == "" {
				return fmt.Errorf("API key is required for the openrouter backend")
			}
			if c.Model == "" {
				return fmt.Errorf("model is required for the openrouter backend")
			}
		default:
			return fmt.Errorf("unknown backend %q", c.Backend)
		}
	}
	if c.Concurrency < MinConcurrency || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between %d and %d, got %d", MinConcurrency, MaxConcurrency, c.Concurrency)
	}
	return nil
}
