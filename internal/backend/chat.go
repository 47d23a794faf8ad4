package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/apperrors"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/httpclient"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/logger"
)

// Chat-completions wire types shared by the LM Studio and OpenRouter
// adapters.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// callChat posts one chat-completions request and returns the assistant
// message content.
func callChat(ctx context.Context, name, url, apiKey, model string, req Request) (string, error) {
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: userPrompt(req)},
		},
		Temperature: req.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	respBody, resp, err := httpclient.DoAndRead(httpclient.Shared(), httpReq)
	if err != nil {
		return "", apperrors.Transient(fmt.Errorf("%s request failed: %w", name, err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(name, resp.StatusCode, respBody)
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", apperrors.Shape(fmt.Errorf("%s response is not valid JSON: %w", name, err))
	}
	if len(decoded.Choices) == 0 {
		return "", apperrors.Shape(fmt.Errorf("%s response contained no choices", name))
	}
	logger.Debug("chat completion received", "backend", name, "status", resp.Status)
	return decoded.Choices[0].Message.Content, nil
}
