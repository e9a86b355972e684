// Package llm implements the LLMClient port against any OpenAI-compatible
// chat-completion endpoint using plain net/http.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmhart/gitdesk/internal/domain/model"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// defaultHTTPClient enforces a 60-second timeout as a safety net alongside
// context cancellation. Completions are slower than ordinary API calls.
var defaultHTTPClient = &http.Client{Timeout: 60 * time.Second}

// systemPrompt establishes the code-generation persona for every request.
const systemPrompt = "You are an expert code generation assistant. Generate clean, well-documented, and production-ready code. Always include comments explaining the logic."

// Sampling parameters follow the product's fixed settings.
const (
	generateTemperature = 0.7
	generateMaxTokens   = 4096
	pingMaxTokens       = 1
)

// Compile-time interface satisfaction check.
var _ driven.LLMClient = (*Client)(nil)

// Client implements the driven.LLMClient port. A Client is scoped to a
// single API key and base URL; the application layer constructs one per
// operation from decrypted credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a chat-completion client for the given key and base URL.
// An empty baseURL falls back to the public OpenAI endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = model.DefaultLLMBaseURL
	}
	return &Client{
		httpClient: defaultHTTPClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, apiKey, baseURL string) *Client {
	c := NewClient(apiKey, baseURL)
	c.httpClient = httpClient
	return c
}

// chatMessage is one entry in the chat exchange.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body sent to the chat-completion endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatResponse is the subset of the completion response this client reads.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// errorEnvelope is the provider's error body shape.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateCode runs the two-message code-generation exchange and returns the
// first completion's text. When the provider returns no choices, the result
// is the empty string, not an error.
func (c *Client) GenerateCode(ctx context.Context, llmModel, prompt, contextSnippet string) (string, error) {
	userContent := prompt
	if contextSnippet != "" {
		userContent = fmt.Sprintf("Context:\n```\n%s\n```\n\nRequest: %s", contextSnippet, prompt)
	}

	resp, err := c.complete(ctx, chatRequest{
		Model: llmModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: generateTemperature,
		MaxTokens:   generateMaxTokens,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping performs a minimal one-token round-trip to verify the key, base URL,
// and model are usable together.
func (c *Client) Ping(ctx context.Context, llmModel string) error {
	_, err := c.complete(ctx, chatRequest{
		Model:       llmModel,
		Messages:    []chatMessage{{Role: "user", Content: "ping"}},
		Temperature: 0,
		MaxTokens:   pingMaxTokens,
	})
	return err
}

// complete posts one chat-completion request and decodes the response.
// Non-2xx responses are normalized to *driven.APIError carrying the
// provider's status and message.
func (c *Client) complete(ctx context.Context, req chatRequest) (*chatResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion call: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &driven.APIError{
			StatusCode: httpResp.StatusCode,
			Message:    providerMessage(respBody, httpResp.Status),
		}
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &resp, nil
}

// providerMessage extracts the provider's error message, falling back to the
// HTTP status line when the body is not the expected envelope.
func providerMessage(body []byte, fallback string) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return fallback
}
