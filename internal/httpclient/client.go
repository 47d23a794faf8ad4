// Package httpclient owns the HTTP clients shared by the backend adapters
// and the retrieval client.
package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds a full generation round-trip; a local model can
	// take minutes on a large batch.
	DefaultTimeout = 10 * time.Minute
	// HealthTimeout bounds reachability probes such as Ollama's /api/tags.
	HealthTimeout = 5 * time.Second

	// MaxBodyBytes caps response bodies. A translation reply is a few KB;
	// anything near this cap is a misbehaving server.
	MaxBodyBytes = 8 << 20
)

var (
	shared     *http.Client
	sharedOnce sync.Once
)

// NewClient builds a client with pooled connections and the given timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     2 * time.Minute,
			TLSHandshakeTimeout: 30 * time.Second,
		},
	}
}

// Shared returns the process-wide client used for generation requests.
func Shared() *http.Client {
	sharedOnce.Do(func() { shared = NewClient(DefaultTimeout) })
	return shared
}

// DoAndRead sends req, reads the full body with the size cap applied, and
// closes it. The response is returned alongside the body so callers can
// inspect the status.
func DoAndRead(client *http.Client, req *http.Request) ([]byte, *http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, resp, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return nil, resp, fmt.Errorf("response body exceeds %d bytes", MaxBodyBytes)
	}
	return body, resp, nil
}
