package model

import "time"

// Default LLM settings applied when the user has not configured them.
const (
	DefaultLLMModel   = "gpt-4o"
	DefaultLLMBaseURL = "https://api.openai.com/v1"
)

// Credential is the per-user credential record. GitHubToken and LLMAPIKey
// hold ciphertext as produced by the cryptox cipher; an empty string means
// the secret is not configured. LLMModel and LLMBaseURL are plaintext since
// they are not secrets.
type Credential struct {
	ID          int64
	UserID      int64
	GitHubToken string
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasGitHubToken reports whether a GitHub PAT ciphertext is stored.
func (c *Credential) HasGitHubToken() bool {
	return c != nil && c.GitHubToken != ""
}

// HasLLMAPIKey reports whether an LLM API key ciphertext is stored.
func (c *Credential) HasLLMAPIKey() bool {
	return c != nil && c.LLMAPIKey != ""
}

// CredentialUpdate carries a partial credential save. Nil fields are left
// untouched in storage; a pointer to the empty string clears a secret field.
// Secret fields must already be ciphertext when the update reaches the store.
type CredentialUpdate struct {
	GitHubToken *string
	LLMAPIKey   *string
	LLMModel    *string
	LLMBaseURL  *string
}

// Empty reports whether the update touches no fields.
func (u CredentialUpdate) Empty() bool {
	return u.GitHubToken == nil && u.LLMAPIKey == nil && u.LLMModel == nil && u.LLMBaseURL == nil
}
