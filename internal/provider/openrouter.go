package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenRouter calls an OpenAI-compatible chat completions API.
type OpenRouter struct {
	apiKey  string
	baseURL string
	model   string
	referer string
	title   string
	client  *http.Client
}

func NewOpenRouter(apiKey, baseURL, model, referer, title string) *OpenRouter {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = "google/gemini-2.0-flash-exp:free"
	}
	return &OpenRouter{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		referer: referer,
		title:   title,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OpenRouter) Name() string  { return "openrouter" }
func (p *OpenRouter) Model() string { return p.model }

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenRouter) Answer(ctx context.Context, question, cv string) (string, error) {
	payload := completionRequest{
		Model: p.model,
		Messages: []completionMessage{
			{Role: "system", Content: SystemPrompt(cv)},
			{Role: "user", Content: question},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if p.referer != "" {
		req.Header.Set("HTTP-Referer", p.referer)
	}
	if p.title != "" {
		req.Header.Set("X-Title", p.title)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}
	defer resp.Body.Close()

	var out completionResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("openrouter error (%d): %s", resp.StatusCode, out.Error.Message)
		}
		return "", errors.New("openrouter error: " + resp.Status)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if out.Error != nil && out.Error.Message != "" {
		return "", fmt.Errorf("openrouter error: %s", out.Error.Message)
	}

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyAnswer
	}
	return out.Choices[0].Message.Content, nil
}
