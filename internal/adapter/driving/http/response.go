package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmhart/gitdesk/internal/application"
	"github.com/jmhart/gitdesk/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialResponse is the masked JSON representation of the credential
// record. Secrets are never echoed back; only their presence is reported.
type CredentialResponse struct {
	HasGitHubToken bool   `json:"has_github_token"`
	HasLLMAPIKey   bool   `json:"has_llm_api_key"`
	LLMModel       string `json:"llm_model"`
	LLMBaseURL     string `json:"llm_base_url"`
	UpdatedAt      string `json:"updated_at"`
}

// SaveCredentialsRequest is the JSON body for the credential save endpoint.
// Absent fields are left untouched; an empty string clears a secret field.
type SaveCredentialsRequest struct {
	GitHubToken *string `json:"github_token"`
	LLMAPIKey   *string `json:"llm_api_key"`
	LLMModel    *string `json:"llm_model"`
	LLMBaseURL  *string `json:"llm_base_url"`
}

// ConfiguredResponse reports whether a single credential kind is stored.
type ConfiguredResponse struct {
	Configured bool `json:"configured"`
}

// RepositoryResponse is the JSON representation of a live repository.
type RepositoryResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	URL           string `json:"url"`
	Private       bool   `json:"private"`
}

// CachedRepositoryResponse is the JSON representation of a cached repository
// snapshot.
type CachedRepositoryResponse struct {
	RepoName      string `json:"repo_name"`
	Description   string `json:"description"`
	DefaultBranch string `json:"default_branch"`
	URL           string `json:"url"`
	LastSyncedAt  string `json:"last_synced_at"`
}

// BranchResponse is the JSON representation of a branch.
type BranchResponse struct {
	Name      string `json:"name"`
	CommitSHA string `json:"commit_sha"`
	Protected bool   `json:"protected"`
}

// FileContentResponse is the JSON representation of a decoded file.
type FileContentResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
	Path    string `json:"path"`
}

// DirEntryResponse is the JSON representation of a directory entry.
type DirEntryResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size"`
}

// CommitResponse is the JSON representation of a file commit result.
type CommitResponse struct {
	SHA     string `json:"sha"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// WriteFileRequest is the JSON body for the file write endpoint. A present
// SHA makes the write an update against that blob; an absent SHA creates the
// file.
type WriteFileRequest struct {
	Content string `json:"content"`
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
}

// DeleteFileRequest is the JSON body for the file delete endpoint.
type DeleteFileRequest struct {
	Message string `json:"message"`
	SHA     string `json:"sha"`
	Branch  string `json:"branch"`
}

// GenerateRequest is the JSON body for the code generation endpoint.
type GenerateRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context"`
	Model   string `json:"model"`
}

// GenerateResponse carries the generated code.
type GenerateResponse struct {
	Code string `json:"code"`
}

// AIConfigResponse is the stored (non-secret) LLM configuration.
type AIConfigResponse struct {
	Model   string `json:"model"`
	BaseURL string `json:"base_url"`
}

// TestConnectionResponse is the outcome of an LLM connection test.
type TestConnectionResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toCredentialResponse converts a credential record to its masked JSON
// representation.
func toCredentialResponse(cred *model.Credential) CredentialResponse {
	return CredentialResponse{
		HasGitHubToken: cred.HasGitHubToken(),
		HasLLMAPIKey:   cred.HasLLMAPIKey(),
		LLMModel:       cred.LLMModel,
		LLMBaseURL:     cred.LLMBaseURL,
		UpdatedAt:      cred.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toRepositoryResponse converts a domain Repository to its JSON representation.
func toRepositoryResponse(repo model.Repository) RepositoryResponse {
	return RepositoryResponse{
		ID:            repo.ID,
		Name:          repo.Name,
		FullName:      repo.FullName,
		Description:   repo.Description,
		DefaultBranch: repo.DefaultBranch,
		URL:           repo.URL,
		Private:       repo.Private,
	}
}

// toCachedRepositoryResponse converts a cached snapshot to its JSON representation.
func toCachedRepositoryResponse(cached model.CachedRepository) CachedRepositoryResponse {
	return CachedRepositoryResponse{
		RepoName:      cached.RepoName,
		Description:   cached.Description,
		DefaultBranch: cached.DefaultBranch,
		URL:           cached.URL,
		LastSyncedAt:  cached.LastSyncedAt.UTC().Format(time.RFC3339),
	}
}

// toBranchResponse converts a domain Branch to its JSON representation.
func toBranchResponse(branch model.Branch) BranchResponse {
	return BranchResponse{
		Name:      branch.Name,
		CommitSHA: branch.CommitSHA,
		Protected: branch.Protected,
	}
}

// toDirEntryResponse converts a domain DirEntry to its JSON representation.
func toDirEntryResponse(entry model.DirEntry) DirEntryResponse {
	return DirEntryResponse{
		Name: entry.Name,
		Path: entry.Path,
		Type: entry.Type,
		Size: entry.Size,
	}
}

// toCommitResponse converts a domain CommitResult to its JSON representation.
func toCommitResponse(result *model.CommitResult) CommitResponse {
	return CommitResponse{
		SHA:     result.SHA,
		Path:    result.Path,
		Message: result.Message,
	}
}

// toTestConnectionResponse converts an application TestResult to its JSON
// representation.
func toTestConnectionResponse(result application.TestResult) TestConnectionResponse {
	return TestConnectionResponse{OK: result.OK, Message: result.Message}
}

// toInput converts a save request into a service input. Both carry the same
// pointer semantics, so the conversion is field-for-field.
func (req SaveCredentialsRequest) toInput() application.CredentialInput {
	return application.CredentialInput{
		GitHubToken: req.GitHubToken,
		LLMAPIKey:   req.LLMAPIKey,
		LLMModel:    req.LLMModel,
		LLMBaseURL:  req.LLMBaseURL,
	}
}
