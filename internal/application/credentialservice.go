package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmhart/gitdesk/internal/cryptox"
	"github.com/jmhart/gitdesk/internal/domain/model"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// CredentialInput is a partial save request carrying plaintext values. Nil
// fields are left untouched; a pointer to the empty string clears a secret.
type CredentialInput struct {
	GitHubToken *string
	LLMAPIKey   *string
	LLMModel    *string
	LLMBaseURL  *string
}

// CredentialService is the credential vault: the only component that handles
// plaintext secrets outside of transit to external APIs. Secrets are
// encrypted before they reach the store and decrypted on demand right before
// an external client is constructed.
type CredentialService struct {
	store  driven.CredentialStore
	box    *cryptox.Box
	logger *slog.Logger
}

// NewCredentialService creates a CredentialService.
func NewCredentialService(store driven.CredentialStore, box *cryptox.Box, logger *slog.Logger) *CredentialService {
	return &CredentialService{store: store, box: box, logger: logger}
}

// Save encrypts the provided secret fields and applies a partial upsert.
// Storage failures are hard errors on this write path.
func (s *CredentialService) Save(ctx context.Context, userID int64, input CredentialInput) error {
	update := model.CredentialUpdate{
		LLMModel:   input.LLMModel,
		LLMBaseURL: input.LLMBaseURL,
	}

	if input.GitHubToken != nil {
		encrypted, err := s.box.Encrypt(*input.GitHubToken)
		if err != nil {
			return fmt.Errorf("encrypt github token: %w", err)
		}
		update.GitHubToken = &encrypted
	}

	if input.LLMAPIKey != nil {
		encrypted, err := s.box.Encrypt(*input.LLMAPIKey)
		if err != nil {
			return fmt.Errorf("encrypt llm api key: %w", err)
		}
		update.LLMAPIKey = &encrypted
	}

	return s.store.Upsert(ctx, userID, update)
}

// Get returns the stored record without decrypting secret fields, or nil
// when no record exists. Callers use it for presence checks and masked
// display; plaintext secrets are only available through the token accessors.
func (s *CredentialService) Get(ctx context.Context, userID int64) (*model.Credential, error) {
	return s.store.Get(ctx, userID)
}

// HasGitHubPAT reports whether a GitHub PAT is configured. Storage
// unavailability degrades to false on this read-only check.
func (s *CredentialService) HasGitHubPAT(ctx context.Context, userID int64) bool {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("credential presence check failed, treating as absent", "kind", CredentialKindGitHub, "error", err)
		return false
	}
	return cred.HasGitHubToken()
}

// HasLLMKey reports whether an LLM API key is configured. Storage
// unavailability degrades to false on this read-only check.
func (s *CredentialService) HasLLMKey(ctx context.Context, userID int64) bool {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("credential presence check failed, treating as absent", "kind", CredentialKindLLM, "error", err)
		return false
	}
	return cred.HasLLMAPIKey()
}

// GitHubToken returns the decrypted GitHub PAT. An unreachable store or an
// absent secret yields CredentialMissingError; an unreadable ciphertext
// (malformed or failing authentication) surfaces as a hard failure so data
// corruption is never masked as "not configured".
func (s *CredentialService) GitHubToken(ctx context.Context, userID int64) (string, error) {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("credential read failed, gating as missing", "kind", CredentialKindGitHub, "error", err)
		return "", &CredentialMissingError{Kind: CredentialKindGitHub}
	}
	if !cred.HasGitHubToken() {
		return "", &CredentialMissingError{Kind: CredentialKindGitHub}
	}

	token, err := s.box.Decrypt(cred.GitHubToken)
	if err != nil {
		return "", fmt.Errorf("decrypt github token: %w", err)
	}
	return token, nil
}

// LLMSettings is the decrypted configuration for one chat-completion call.
type LLMSettings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LLMSettings returns the decrypted LLM API key plus model and base URL with
// defaults applied, gated the same way as GitHubToken.
func (s *CredentialService) LLMSettings(ctx context.Context, userID int64) (*LLMSettings, error) {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("credential read failed, gating as missing", "kind", CredentialKindLLM, "error", err)
		return nil, &CredentialMissingError{Kind: CredentialKindLLM}
	}
	if !cred.HasLLMAPIKey() {
		return nil, &CredentialMissingError{Kind: CredentialKindLLM}
	}

	apiKey, err := s.box.Decrypt(cred.LLMAPIKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt llm api key: %w", err)
	}

	settings := &LLMSettings{
		APIKey:  apiKey,
		Model:   cred.LLMModel,
		BaseURL: cred.LLMBaseURL,
	}
	if settings.Model == "" {
		settings.Model = model.DefaultLLMModel
	}
	if settings.BaseURL == "" {
		settings.BaseURL = model.DefaultLLMBaseURL
	}
	return settings, nil
}

// AIConfig returns the stored (non-secret) model and base URL for UI
// defaulting. No credential gate applies; both values are empty when no
// record exists.
func (s *CredentialService) AIConfig(ctx context.Context, userID int64) (llmModel, baseURL string, err error) {
	cred, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if cred == nil {
		return "", "", nil
	}
	return cred.LLMModel, cred.LLMBaseURL, nil
}
