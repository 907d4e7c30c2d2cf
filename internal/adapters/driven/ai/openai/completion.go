// Package openai provides completion and embedding adapters for
// OpenAI-compatible APIs (OpenAI, Azure OpenAI, Ollama's compat layer).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lifedex/lifedex/internal/core/ports/driven"
)

// Ensure CompletionService implements the interface.
var _ driven.CompletionService = (*CompletionService)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultCompletionModel   = "gpt-4o-mini"
	DefaultCompletionTimeout = 120 * time.Second
)

// CompletionConfig holds configuration for the completion service.
type CompletionConfig struct {
	// APIKey is the API key (required for hosted APIs, optional for
	// local compatible servers).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// MaxTokens caps the response length. Zero means no cap.
	MaxTokens int

	// Temperature controls randomness. Digesters want deterministic
	// output, so the zero value is used as-is.
	Temperature float64
}

// CompletionService calls an OpenAI-compatible chat completions endpoint.
type CompletionService struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

// chatRequest is the chat completions request format.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat requests structured output constrained by a JSON schema.
type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

// chatResponse is the chat completions response format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewCompletionService creates a completion service for an
// OpenAI-compatible API.
func NewCompletionService(cfg CompletionConfig) *CompletionService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCompletionModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultCompletionTimeout
	}

	return &CompletionService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Complete returns the model's text response to the prompt.
func (s *CompletionService) Complete(ctx context.Context, system, prompt string) (string, error) {
	return s.complete(ctx, system, prompt, nil)
}

// CompleteJSON constrains the response to the given JSON schema and returns
// the raw JSON payload. The schema must be a valid JSON Schema document.
func (s *CompletionService) CompleteJSON(ctx context.Context, system, prompt string, schemaName string, schema []byte) ([]byte, error) {
	if !json.Valid(schema) {
		return nil, fmt.Errorf("openai: schema %q is not valid JSON", schemaName)
	}

	format := &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchema{
			Name:   schemaName,
			Schema: json.RawMessage(schema),
			Strict: true,
		},
	}

	content, err := s.complete(ctx, system, prompt, format)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("openai: model returned invalid JSON for schema %q", schemaName)
	}
	return []byte(content), nil
}

func (s *CompletionService) complete(ctx context.Context, system, prompt string, format *responseFormat) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{
		Model:          s.model,
		Messages:       messages,
		MaxTokens:      s.maxTokens,
		Temperature:    s.temperature,
		ResponseFormat: format,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}

	choice := chatResp.Choices[0]
	if choice.FinishReason == "length" {
		return "", fmt.Errorf("openai: response truncated at max_tokens")
	}
	return choice.Message.Content, nil
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running
// inference.
func (s *CompletionService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
