package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/httpclient"
)

// probe endpoints that answer cheap unauthenticated GETs.
var probePaths = map[string]string{
	NameLMStudio:   "/v1/models",
	NameOllama:     "/api/tags",
	NameOpenRouter: "/v1/models",
}

var defaultBaseURLs = map[string]string{
	NameLMStudio:   lmStudioDefaultURL,
	NameOllama:     ollamaDefaultURL,
	NameOpenRouter: openRouterDefaultURL,
}

// Probe checks whether a backend answers at baseURL ("" for the default).
func Probe(ctx context.Context, name, baseURL string) error {
	path, ok := probePaths[name]
	if !ok {
		return fmt.Errorf("unknown backend %q", name)
	}
	if baseURL == "" {
		baseURL = defaultBaseURLs[name]
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path, nil)
	if err != nil {
		return err
	}
	_, resp, err := httpclient.DoAndRead(httpclient.NewClient(httpclient.HealthTimeout), req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s returned status %d", name, resp.StatusCode)
	}
	return nil
}
