package backend

import (
	"context"
)

const openRouterDefaultURL = "https://openrouter.ai/api"

// OpenRouter talks to the hosted OpenRouter chat endpoint. Requires an API
// key; the key never reaches logs (redacted at the handler).
type OpenRouter struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

func NewOpenRouter(opts Options) *OpenRouter {
	base := opts.BaseURL
	if base == "" {
		base = openRouterDefaultURL
	}
	return &OpenRouter{
		baseURL:     base,
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

func (c *OpenRouter) Name() string { return NameOpenRouter }

func (c *OpenRouter) Translate(ctx context.Context, req Request) (Result, error) {
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	content, err := callChat(ctx, c.Name(), c.baseURL+"/v1/chat/completions", c.apiKey, c.model, req)
	if err != nil {
		return nil, err
	}
	return ParseTranslations(content, req.Units)
}
