package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
)

func ollamaServer(t *testing.T, installed []string, reply string) (*httptest.Server, *ollamaGenerateRequest) {
	t.Helper()
	var generated ollamaGenerateRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		models := make([]map[string]string, 0, len(installed))
		for _, name := range installed {
			models = append(models, map[string]string{"name": name})
		}
		json.NewEncoder(w).Encode(map[string]any{"models": models})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&generated); err != nil {
			t.Fatalf("decode generate request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": reply})
	})
	return httptest.NewServer(mux), &generated
}

func TestOllamaTranslate(t *testing.T) {
	srv, generated := ollamaServer(t, []string{"llama3:latest"}, `{"1": "Bonjour"}`)
	defer srv.Close()

	c := NewOllama(Options{BaseURL: srv.URL, Model: "llama3:latest"})
	got, err := c.Translate(context.Background(), testRequest(document.Unit{ID: 1, Text: "Hello"}))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got[1] != "Bonjour" {
		t.Fatalf("result = %v", got)
	}
	if generated.Model != "llama3:latest" || generated.Stream {
		t.Errorf("generate request = %+v", generated)
	}
}

func TestOllamaModelPrefixFallback(t *testing.T) {
	srv, generated := ollamaServer(t, []string{"llama3:8b-instruct"}, `{"1": "Oui"}`)
	defer srv.Close()

	c := NewOllama(Options{BaseURL: srv.URL, Model: "llama3"})
	if _, err := c.Translate(context.Background(), testRequest(document.Unit{ID: 1, Text: "Yes"})); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if generated.Model != "llama3:8b-instruct" {
		t.Errorf("model = %q, want installed variant", generated.Model)
	}
}

func TestOllamaConcurrentTranslateProbesOnce(t *testing.T) {
	var tagHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		tagHits.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{{"name": "llama3:8b"}}})
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": `{"1": "Oui"}`})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewOllama(Options{BaseURL: srv.URL, Model: "llama3"})
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Translate(context.Background(), testRequest(document.Unit{ID: 1, Text: "Yes"}))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	if got := tagHits.Load(); got != 1 {
		t.Fatalf("tags endpoint hit %d times, want 1", got)
	}
}

func TestOllamaModelNotInstalled(t *testing.T) {
	srv, _ := ollamaServer(t, []string{"mistral:latest"}, "")
	defer srv.Close()

	c := NewOllama(Options{BaseURL: srv.URL, Model: "llama3"})
	_, err := c.Translate(context.Background(), testRequest(document.Unit{ID: 1, Text: "x"}))
	if !apperrors.Is(err, apperrors.KindBadRequest) {
		t.Fatalf("err = %v, want bad_request", err)
	}
}

func TestOllamaServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	url := srv.URL
	srv.Close()

	c := NewOllama(Options{BaseURL: url, Model: "llama3"})
	_, err := c.Translate(context.Background(), testRequest(document.Unit{ID: 1, Text: "x"}))
	if !apperrors.Is(err, apperrors.KindTransient) {
		t.Fatalf("err = %v, want transient", err)
	}
}

func TestOllamaScrubsTemplateTokens(t *testing.T) {
	srv, _ := ollamaServer(t, []string{"llama3"}, "<|im_start|>{\"1\": \"Salut\"}<|im_end|>")
	defer srv.Close()

	c := NewOllama(Options{BaseURL: srv.URL, Model: "llama3"})
	got, err := c.Translate(context.Background(), testRequest(document.Unit{ID: 1, Text: "Hi"}))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got[1] != "Salut" {
		t.Fatalf("result = %v", got)
	}
}
