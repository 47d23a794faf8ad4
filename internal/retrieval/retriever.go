// Package retrieval queries an external snippet service for terminology hits
// and distills them into a bounded consistency context injected into every
// translation request.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/httpclient"
)

// Snippet is one retrieval hit: a source term and its known target rendering.
type Snippet struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Score  float64 `json:"score,omitempty"`
}

// Retriever answers term queries against an external index. The index's
// embedding and ranking internals are opaque here.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]Snippet, error)
}

// HTTPRetriever talks to a snippet service over JSON.
type HTTPRetriever struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRetriever returns a retriever for the service at baseURL.
func NewHTTPRetriever(baseURL string) *HTTPRetriever {
	return &HTTPRetriever{
		BaseURL: baseURL,
		Client:  httpclient.Shared(),
	}
}

type retrieveRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type retrieveResponse struct {
	Snippets []Snippet `json:"snippets"`
}

// Retrieve posts the query and returns the service's snippets. All transport
// and decoding failures surface as retrieval errors so callers can degrade.
func (r *HTTPRetriever) Retrieve(ctx context.Context, query string, limit int) ([]Snippet, error) {
	body, err := json.Marshal(retrieveRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, apperrors.Retrieval(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/retrieve", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Retrieval(err)
	}
	req.Header.Set("Content-Type", "application/json")

	data, resp, err := httpclient.DoAndRead(r.Client, req)
	if err != nil {
		return nil, apperrors.Retrieval(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Retrieval(fmt.Errorf("retrieval service returned status %d", resp.StatusCode))
	}
	var decoded retrieveResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, apperrors.Retrieval(fmt.Errorf("malformed retrieval response: %w", err))
	}
	return decoded.Snippets, nil
}
