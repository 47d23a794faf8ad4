package backend

import (
	"context"
)

const lmStudioDefaultURL = "http://localhost:1234"

// LMStudio talks to a local LM Studio server over its OpenAI-compatible
// chat endpoint. No authentication, the model is whatever is loaded.
type LMStudio struct {
	baseURL     string
	model       string
	temperature float64
}

func NewLMStudio(opts Options) *LMStudio {
	base := opts.BaseURL
	if base == "" {
		base = lmStudioDefaultURL
	}
	model := opts.Model
	if model == "" {
		model = "local-model"
	}
	return &LMStudio{baseURL: base, model: model, temperature: opts.Temperature}
}

func (c *LMStudio) Name() string { return NameLMStudio }

func (c *LMStudio) Translate(ctx context.Context, req Request) (Result, error) {
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	content, err := callChat(ctx, c.Name(), c.baseURL+"/v1/chat/completions", "", c.model, req)
	if err != nil {
		return nil, err
	}
	return ParseTranslations(content, req.Units)
}
