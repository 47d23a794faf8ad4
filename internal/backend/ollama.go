package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/httpclient"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/logger"
)

const ollamaDefaultURL = "http://localhost:11434"

// Ollama talks to a local Ollama server. The server is probed before the
// first generate call; an unknown model falls back to an installed model
// with the same base name (same behavior for "llama3" vs "llama3:latest").
type Ollama struct {
	baseURL     string
	temperature float64

	// mu guards the probe state; concurrent dispatcher workers share one
	// client and the probe may rewrite model.
	mu     sync.Mutex
	model  string
	probed bool
}

func NewOllama(opts Options) *Ollama {
	base := opts.BaseURL
	if base == "" {
		base = ollamaDefaultURL
	}
	return &Ollama{baseURL: base, model: opts.Model, temperature: opts.Temperature}
}

func (c *Ollama) Name() string { return NameOllama }

type ollamaGenerateRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature float64  `json:"temperature"`
	Stream      bool     `json:"stream"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ensureModel checks the server is up and the model is installed, and
// returns the model name to generate with. The first caller probes; the
// rest wait on the mutex and see the result.
func (c *Ollama) ensureModel(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.probed {
		return c.model, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	body, resp, err := httpclient.DoAndRead(httpclient.NewClient(httpclient.HealthTimeout), req)
	if err != nil {
		return "", apperrors.New(apperrors.KindTransient,
			fmt.Sprintf("Ollama server not responding at %s. Run: ollama serve", c.baseURL),
			err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.New(apperrors.KindTransient,
			fmt.Sprintf("Ollama server not ready (status %d). Run: ollama serve", resp.StatusCode),
			fmt.Errorf("/api/tags returned status %d", resp.StatusCode))
	}

	var tags ollamaTagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		logger.Warn("cannot list Ollama models, skipping model check", "error", err)
		c.probed = true
		return c.model, nil
	}
	available := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		available = append(available, m.Name)
		if m.Name == c.model {
			c.probed = true
			return c.model, nil
		}
	}
	base := strings.SplitN(c.model, ":", 2)[0]
	for _, name := range available {
		if strings.HasPrefix(name, base) {
			logger.Warn("requested model not installed, using closest match",
				"requested", c.model, "using", name)
			c.model = name
			c.probed = true
			return c.model, nil
		}
	}
	return "", apperrors.New(apperrors.KindBadRequest,
		fmt.Sprintf("Model %q is not installed in Ollama. Available: %s", c.model, strings.Join(available, ", ")),
		fmt.Errorf("model %q not in tags", c.model))
}

func (c *Ollama) Translate(ctx context.Context, req Request) (Result, error) {
	model, err := c.ensureModel(ctx)
	if err != nil {
		return nil, err
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}

	payload := ollamaGenerateRequest{
		Model:       model,
		Prompt:      systemPrompt(req) + "\n\n" + userPrompt(req),
		Temperature: req.Temperature,
		Stop:        []string{"<|im_sep|>", "<|im_end|>", "Human:", "Assistant:"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, resp, err := httpclient.DoAndRead(httpclient.Shared(), httpReq)
	if err != nil {
		return nil, apperrors.Transient(fmt.Errorf("ollama request failed: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(c.Name(), resp.StatusCode, respBody)
	}

	var decoded ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, apperrors.Shape(fmt.Errorf("ollama response is not valid JSON: %w", err))
	}
	if decoded.Response == "" {
		return nil, apperrors.Shape(fmt.Errorf("ollama response missing content"))
	}
	return ParseTranslations(decoded.Response, req.Units)
}
