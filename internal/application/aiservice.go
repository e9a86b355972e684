package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// TestResult is the outcome of a connection test, shaped for direct display.
type TestResult struct {
	OK      bool
	Message string
}

// AIService is the proxy gateway for chat-completion operations. Every
// generation call gates on the stored LLM secret and constructs a scoped
// client from the decrypted key and configured base URL.
type AIService struct {
	creds   *CredentialService
	factory driven.LLMClientFactory
	timeout time.Duration
	logger  *slog.Logger
}

// NewAIService creates an AIService. factory builds a client from a decrypted
// API key and base URL; timeout bounds every outbound call.
func NewAIService(creds *CredentialService, factory driven.LLMClientFactory, timeout time.Duration, logger *slog.Logger) *AIService {
	return &AIService{creds: creds, factory: factory, timeout: timeout, logger: logger}
}

// GenerateCode runs one code-generation exchange. modelOverride, when
// non-empty, takes precedence over the stored model; the stored model falls
// back to the fixed default. No retry: generation is not idempotent.
func (s *AIService) GenerateCode(ctx context.Context, userID int64, prompt, contextSnippet, modelOverride string) (string, error) {
	settings, err := s.creds.LLMSettings(ctx, userID)
	if err != nil {
		return "", err
	}

	llmModel := settings.Model
	if modelOverride != "" {
		llmModel = modelOverride
	}

	client := s.factory(settings.APIKey, settings.BaseURL)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	code, err := client.GenerateCode(callCtx, llmModel, prompt, contextSnippet)
	if err != nil {
		return "", err
	}
	return code, nil
}

// TestConnection performs a minimal round-trip against the configured
// endpoint and reports the outcome as a human-readable message. The gate
// still applies; a reachable-but-failing endpoint is a non-error result so
// the message reaches the user verbatim.
func (s *AIService) TestConnection(ctx context.Context, userID int64) (TestResult, error) {
	settings, err := s.creds.LLMSettings(ctx, userID)
	if err != nil {
		return TestResult{}, err
	}

	client := s.factory(settings.APIKey, settings.BaseURL)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := client.Ping(callCtx, settings.Model); err != nil {
		s.logger.Warn("llm connection test failed", "base_url", settings.BaseURL, "model", settings.Model, "error", err)
		return TestResult{
			OK:      false,
			Message: fmt.Sprintf("Connection to %s failed: %v", settings.BaseURL, err),
		}, nil
	}

	return TestResult{
		OK:      true,
		Message: fmt.Sprintf("Successfully connected to %s using model %s", settings.BaseURL, settings.Model),
	}, nil
}

// Config returns the stored model and base URL for UI defaulting, no gate
// applied. Both are empty when no record exists.
func (s *AIService) Config(ctx context.Context, userID int64) (llmModel, baseURL string, err error) {
	return s.creds.AIConfig(ctx, userID)
}
