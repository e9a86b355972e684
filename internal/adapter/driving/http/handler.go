package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmhart/gitdesk/internal/application"
	"github.com/jmhart/gitdesk/internal/domain/model"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API. The server
// runs single-user: every request acts on behalf of the configured user ID.
type Handler struct {
	credSvc *application.CredentialService
	ghSvc   *application.GitHubService
	aiSvc   *application.AIService
	userID  int64
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	credSvc *application.CredentialService,
	ghSvc *application.GitHubService,
	aiSvc *application.AIService,
	userID int64,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		credSvc: credSvc,
		ghSvc:   ghSvc,
		aiSvc:   aiSvc,
		userID:  userID,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	mux.HandleFunc("GET /api/v1/credentials", h.GetCredentials)
	mux.HandleFunc("PUT /api/v1/credentials", h.SaveCredentials)
	mux.HandleFunc("GET /api/v1/credentials/github", h.GitHubConfigured)
	mux.HandleFunc("GET /api/v1/credentials/llm", h.LLMConfigured)

	mux.HandleFunc("GET /api/v1/github/repos", h.ListRepositories)
	mux.HandleFunc("GET /api/v1/github/repos/cached", h.ListCachedRepositories)
	mux.HandleFunc("GET /api/v1/github/repos/{owner}/{repo}/branches", h.ListBranches)
	mux.HandleFunc("GET /api/v1/github/repos/{owner}/{repo}/file/{path...}", h.GetFileContent)
	mux.HandleFunc("PUT /api/v1/github/repos/{owner}/{repo}/file/{path...}", h.WriteFile)
	mux.HandleFunc("DELETE /api/v1/github/repos/{owner}/{repo}/file/{path...}", h.DeleteFile)
	mux.HandleFunc("GET /api/v1/github/repos/{owner}/{repo}/dir/{path...}", h.ListDirectoryContents)

	mux.HandleFunc("POST /api/v1/ai/generate", h.GenerateCode)
	mux.HandleFunc("GET /api/v1/ai/config", h.GetAIConfig)
	mux.HandleFunc("POST /api/v1/ai/test", h.TestConnection)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// GetCredentials returns the masked credential record, or JSON null when no
// record exists yet.
func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	cred, err := h.credSvc.Get(r.Context(), h.userID)
	if err != nil {
		h.logger.Error("failed to read credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if cred == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// SaveCredentials applies a partial credential save. Fields absent from the
// body are left untouched; an empty string clears a secret.
func (h *Handler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	var req SaveCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := req.toInput()
	if input.GitHubToken == nil && input.LLMAPIKey == nil && input.LLMModel == nil && input.LLMBaseURL == nil {
		writeError(w, http.StatusBadRequest, "no fields to save")
		return
	}

	if err := h.credSvc.Save(r.Context(), h.userID, input); err != nil {
		h.logger.Error("failed to save credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	cred, err := h.credSvc.Get(r.Context(), h.userID)
	if err != nil || cred == nil {
		h.logger.Error("failed to read credentials after save", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// GitHubConfigured reports whether a GitHub PAT is stored.
func (h *Handler) GitHubConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfiguredResponse{
		Configured: h.credSvc.HasGitHubPAT(r.Context(), h.userID),
	})
}

// LLMConfigured reports whether an LLM API key is stored.
func (h *Handler) LLMConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfiguredResponse{
		Configured: h.credSvc.HasLLMKey(r.Context(), h.userID),
	})
}

// ListRepositories returns the repositories visible to the stored token.
func (h *Handler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.ghSvc.ListRepositories(r.Context(), h.userID)
	if err != nil {
		h.writeServiceError(w, "list repositories", err)
		return
	}

	resp := make([]RepositoryResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, toRepositoryResponse(repo))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListCachedRepositories returns locally cached repository metadata without
// touching the network.
func (h *Handler) ListCachedRepositories(w http.ResponseWriter, r *http.Request) {
	cached, err := h.ghSvc.CachedRepositories(r.Context(), h.userID)
	if err != nil {
		h.logger.Error("failed to list cached repositories", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CachedRepositoryResponse, 0, len(cached))
	for _, row := range cached {
		resp = append(resp, toCachedRepositoryResponse(row))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListBranches returns the branches of a repository.
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")

	branches, err := h.ghSvc.ListBranches(r.Context(), h.userID, owner, repo)
	if err != nil {
		h.writeServiceError(w, "list branches", err)
		return
	}

	resp := make([]BranchResponse, 0, len(branches))
	for _, branch := range branches {
		resp = append(resp, toBranchResponse(branch))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetFileContent returns a decoded file at a path, optionally at a ref.
func (h *Handler) GetFileContent(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")
	path := r.PathValue("path")
	ref := r.URL.Query().Get("ref")

	file, err := h.ghSvc.GetFileContent(r.Context(), h.userID, owner, repo, path, ref)
	if err != nil {
		h.writeServiceError(w, "get file content", err)
		return
	}

	writeJSON(w, http.StatusOK, FileContentResponse{
		Content: file.Content,
		SHA:     file.SHA,
		Path:    file.Path,
	})
}

// ListDirectoryContents returns the entries of a directory, optionally at a ref.
func (h *Handler) ListDirectoryContents(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")
	path := r.PathValue("path")
	ref := r.URL.Query().Get("ref")

	entries, err := h.ghSvc.ListDirectoryContents(r.Context(), h.userID, owner, repo, path, ref)
	if err != nil {
		h.writeServiceError(w, "list directory", err)
		return
	}

	resp := make([]DirEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, toDirEntryResponse(entry))
	}

	writeJSON(w, http.StatusOK, resp)
}

// WriteFile commits file content. A SHA in the body updates the existing
// blob with optimistic concurrency; no SHA creates the file.
func (h *Handler) WriteFile(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")
	path := r.PathValue("path")

	var req WriteFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" || req.Branch == "" {
		writeError(w, http.StatusBadRequest, "message and branch are required")
		return
	}

	var (
		result *model.CommitResult
		err    error
	)
	if req.SHA != "" {
		result, err = h.ghSvc.UpdateFile(r.Context(), h.userID, owner, repo, path, req.Content, req.Message, req.SHA, req.Branch)
	} else {
		result, err = h.ghSvc.CreateFile(r.Context(), h.userID, owner, repo, path, req.Content, req.Message, req.Branch)
	}
	if err != nil {
		h.writeServiceError(w, "write file", err)
		return
	}

	writeJSON(w, http.StatusOK, toCommitResponse(result))
}

// DeleteFile removes a file at a path with optimistic concurrency.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("owner")
	repo := r.PathValue("repo")
	path := r.PathValue("path")

	var req DeleteFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" || req.SHA == "" || req.Branch == "" {
		writeError(w, http.StatusBadRequest, "message, sha and branch are required")
		return
	}

	if err := h.ghSvc.DeleteFile(r.Context(), h.userID, owner, repo, path, req.Message, req.SHA, req.Branch); err != nil {
		h.writeServiceError(w, "delete file", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GenerateCode runs one code-generation exchange against the configured LLM.
func (h *Handler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	code, err := h.aiSvc.GenerateCode(r.Context(), h.userID, req.Prompt, req.Context, req.Model)
	if err != nil {
		h.writeServiceError(w, "generate code", err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{Code: code})
}

// GetAIConfig returns the stored LLM model and base URL. No credential gate
// applies; both values are empty when nothing is stored.
func (h *Handler) GetAIConfig(w http.ResponseWriter, r *http.Request) {
	llmModel, baseURL, err := h.aiSvc.Config(r.Context(), h.userID)
	if err != nil {
		h.logger.Error("failed to read ai config", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, AIConfigResponse{Model: llmModel, BaseURL: baseURL})
}

// TestConnection performs a minimal round-trip against the configured LLM
// endpoint and reports the outcome.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	result, err := h.aiSvc.TestConnection(r.Context(), h.userID)
	if err != nil {
		h.writeServiceError(w, "test llm connection", err)
		return
	}

	writeJSON(w, http.StatusOK, toTestConnectionResponse(result))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps service-layer failures to HTTP responses: a missing
// credential is 412 (the UI redirects to Settings), path-type mismatches are
// 400, upstream API failures pass their status through, and everything else
// is an opaque 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var missing *application.CredentialMissingError
	if errors.As(err, &missing) {
		writeError(w, http.StatusPreconditionFailed, missing.Error())
		return
	}

	if errors.Is(err, driven.ErrNotAFile) || errors.Is(err, driven.ErrNotADirectory) || errors.Is(err, driven.ErrUnreadableContent) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var apiErr *driven.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeError(w, status, apiErr.Message)
		return
	}

	h.logger.Error("request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
