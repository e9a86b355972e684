// Package application wires the credential vault and the proxy gateway
// services that gate every external call on stored credentials.
package application

import "fmt"

// Credential kinds used by CredentialMissingError.
const (
	CredentialKindGitHub = "github"
	CredentialKindLLM    = "llm"
)

// CredentialMissingError indicates a required secret is not configured. It is
// user-facing and actionable; operations fail with it before any network call
// is attempted.
type CredentialMissingError struct {
	Kind string
}

func (e *CredentialMissingError) Error() string {
	switch e.Kind {
	case CredentialKindGitHub:
		return "GitHub PAT not configured: add it in Settings"
	case CredentialKindLLM:
		return "LLM API key not configured: add it in Settings"
	default:
		return fmt.Sprintf("%s credential not configured", e.Kind)
	}
}
