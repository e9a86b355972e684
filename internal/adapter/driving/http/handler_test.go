package httphandler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/jmhart/gitdesk/internal/adapter/driving/http"
	"github.com/jmhart/gitdesk/internal/application"
	"github.com/jmhart/gitdesk/internal/cryptox"
	"github.com/jmhart/gitdesk/internal/domain/model"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// --- Mock implementations ---

type memCredentialStore struct {
	mu   sync.Mutex
	cred *model.Credential
}

func (m *memCredentialStore) Get(_ context.Context, userID int64) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil || m.cred.UserID != userID {
		return nil, nil
	}
	copied := *m.cred
	return &copied, nil
}

func (m *memCredentialStore) Upsert(_ context.Context, userID int64, update model.CredentialUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil || m.cred.UserID != userID {
		m.cred = &model.Credential{
			ID:         1,
			UserID:     userID,
			LLMModel:   model.DefaultLLMModel,
			LLMBaseURL: model.DefaultLLMBaseURL,
			CreatedAt:  time.Now().UTC(),
		}
	}
	if update.GitHubToken != nil {
		m.cred.GitHubToken = *update.GitHubToken
	}
	if update.LLMAPIKey != nil {
		m.cred.LLMAPIKey = *update.LLMAPIKey
	}
	if update.LLMModel != nil {
		m.cred.LLMModel = *update.LLMModel
	}
	if update.LLMBaseURL != nil {
		m.cred.LLMBaseURL = *update.LLMBaseURL
	}
	m.cred.UpdatedAt = time.Now().UTC()
	return nil
}

type memRepoCacheStore struct {
	mu   sync.Mutex
	rows []model.CachedRepository
}

func (m *memRepoCacheStore) Upsert(_ context.Context, cached model.CachedRepository) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.RepoName == cached.RepoName {
			m.rows[i] = cached
			return nil
		}
	}
	m.rows = append(m.rows, cached)
	return nil
}

func (m *memRepoCacheStore) ListByUser(_ context.Context, _ int64) ([]model.CachedRepository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CachedRepository(nil), m.rows...), nil
}

type stubGitHubClient struct {
	repos    []model.Repository
	branches []model.Branch
	file     *model.FileContent
	entries  []model.DirEntry
	commit   *model.CommitResult
	err      error

	calls int
}

func (s *stubGitHubClient) ListRepositories(context.Context) ([]model.Repository, error) {
	s.calls++
	return s.repos, s.err
}

func (s *stubGitHubClient) ListBranches(context.Context, string, string) ([]model.Branch, error) {
	s.calls++
	return s.branches, s.err
}

func (s *stubGitHubClient) GetFileContent(context.Context, string, string, string, string) (*model.FileContent, error) {
	s.calls++
	return s.file, s.err
}

func (s *stubGitHubClient) ListDirectoryContents(context.Context, string, string, string, string) ([]model.DirEntry, error) {
	s.calls++
	return s.entries, s.err
}

func (s *stubGitHubClient) CreateFile(context.Context, string, string, string, string, string, string) (*model.CommitResult, error) {
	s.calls++
	return s.commit, s.err
}

func (s *stubGitHubClient) UpdateFile(context.Context, string, string, string, string, string, string, string) (*model.CommitResult, error) {
	s.calls++
	return s.commit, s.err
}

func (s *stubGitHubClient) DeleteFile(context.Context, string, string, string, string, string, string) error {
	s.calls++
	return s.err
}

type stubLLMClient struct {
	code    string
	genErr  error
	pingErr error
}

func (s *stubLLMClient) GenerateCode(context.Context, string, string, string) (string, error) {
	return s.code, s.genErr
}

func (s *stubLLMClient) Ping(context.Context, string) error {
	return s.pingErr
}

// --- Fixture ---

var (
	boxOnce sync.Once
	box     *cryptox.Box
	boxErr  error
)

func testBox(t *testing.T) *cryptox.Box {
	t.Helper()
	boxOnce.Do(func() {
		box, boxErr = cryptox.NewBox("handler-test-secret")
	})
	require.NoError(t, boxErr)
	return box
}

type fixture struct {
	server *httptest.Server
	gh     *stubGitHubClient
	llm    *stubLLMClient
	store  *memCredentialStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	store := &memCredentialStore{}
	creds := application.NewCredentialService(store, testBox(t), logger)

	f := &fixture{
		gh:    &stubGitHubClient{},
		llm:   &stubLLMClient{},
		store: store,
	}

	ghSvc := application.NewGitHubService(creds,
		func(string) driven.GitHubClient { return f.gh },
		&memRepoCacheStore{}, 5*time.Second, logger)
	aiSvc := application.NewAIService(creds,
		func(string, string) driven.LLMClient { return f.llm },
		5*time.Second, logger)

	handler := httphandler.NewHandler(creds, ghSvc, aiSvc, 1, logger)
	f.server = httptest.NewServer(httphandler.NewServeMux(handler, logger))
	t.Cleanup(f.server.Close)
	return f
}

// saveCredentials seeds the vault through the public API.
func (f *fixture) saveCredentials(t *testing.T, body string) {
	t.Helper()
	resp := f.do(t, http.MethodPut, "/api/v1/credentials", body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (f *fixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// --- Tests ---

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/health", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestGetCredentials_NullWhenAbsent(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/credentials", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[*httphandler.CredentialResponse](t, resp)
	assert.Nil(t, body)
}

func TestSaveCredentials_MasksSecrets(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPut, "/api/v1/credentials",
		`{"github_token":"ghp_secret","llm_model":"gpt-4o-mini"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[httphandler.CredentialResponse](t, resp)
	assert.True(t, body.HasGitHubToken)
	assert.False(t, body.HasLLMAPIKey)
	assert.Equal(t, "gpt-4o-mini", body.LLMModel)

	// The stored value is ciphertext, never the plaintext secret.
	assert.NotEqual(t, "ghp_secret", f.store.cred.GitHubToken)
	assert.Len(t, strings.Split(f.store.cred.GitHubToken, ":"), 3)
}

func TestSaveCredentials_PartialLeavesOtherFields(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)

	f.saveCredentials(t, `{"llm_api_key":"sk-secret"}`)

	resp := f.do(t, http.MethodGet, "/api/v1/credentials", "")
	body := decodeBody[httphandler.CredentialResponse](t, resp)
	assert.True(t, body.HasGitHubToken)
	assert.True(t, body.HasLLMAPIKey)
}

func TestSaveCredentials_EmptyBodyRejected(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPut, "/api/v1/credentials", `{}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfiguredEndpoints(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/credentials/github", "")
	assert.False(t, decodeBody[httphandler.ConfiguredResponse](t, resp).Configured)

	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)

	resp = f.do(t, http.MethodGet, "/api/v1/credentials/github", "")
	assert.True(t, decodeBody[httphandler.ConfiguredResponse](t, resp).Configured)

	resp = f.do(t, http.MethodGet, "/api/v1/credentials/llm", "")
	assert.False(t, decodeBody[httphandler.ConfiguredResponse](t, resp).Configured)
}

func TestListRepositories_GatedWithoutToken(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/github/repos", "")

	require.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "GitHub PAT not configured")
	assert.Zero(t, f.gh.calls, "no upstream call may happen without a stored token")
}

func TestListRepositories(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)
	f.gh.repos = []model.Repository{
		{ID: 7, Name: "widgets", FullName: "acme/widgets", DefaultBranch: "main"},
	}

	resp := f.do(t, http.MethodGet, "/api/v1/github/repos", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]httphandler.RepositoryResponse](t, resp)
	require.Len(t, body, 1)
	assert.Equal(t, "acme/widgets", body[0].FullName)
}

func TestGetFileContent(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)
	f.gh.file = &model.FileContent{Content: "Hello", SHA: "abc123", Path: "docs/readme.md"}

	resp := f.do(t, http.MethodGet, "/api/v1/github/repos/acme/widgets/file/docs/readme.md?ref=main", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[httphandler.FileContentResponse](t, resp)
	assert.Equal(t, "Hello", body.Content)
	assert.Equal(t, "abc123", body.SHA)
	assert.Equal(t, "docs/readme.md", body.Path)
}

func TestGetFileContent_DirectoryIs400(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)
	f.gh.err = driven.ErrNotAFile

	resp := f.do(t, http.MethodGet, "/api/v1/github/repos/acme/widgets/file/src", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListDirectoryContents(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)
	f.gh.entries = []model.DirEntry{
		{Name: "main.go", Path: "src/main.go", Type: model.EntryTypeFile, Size: 120},
		{Name: "pkg", Path: "src/pkg", Type: model.EntryTypeDir},
	}

	resp := f.do(t, http.MethodGet, "/api/v1/github/repos/acme/widgets/dir/src", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[[]httphandler.DirEntryResponse](t, resp)
	require.Len(t, body, 2)
	assert.Equal(t, "file", body[0].Type)
	assert.Equal(t, "dir", body[1].Type)
}

func TestWriteFile_UpdateWithSHA(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)
	f.gh.commit = &model.CommitResult{SHA: "newsha", Path: "README.md", Message: "update"}

	resp := f.do(t, http.MethodPut, "/api/v1/github/repos/acme/widgets/file/README.md",
		`{"content":"hi","message":"update","sha":"oldsha","branch":"main"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[httphandler.CommitResponse](t, resp)
	assert.Equal(t, "newsha", body.SHA)
}

func TestWriteFile_MissingFieldsRejected(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)

	resp := f.do(t, http.MethodPut, "/api/v1/github/repos/acme/widgets/file/README.md",
		`{"content":"hi"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, f.gh.calls)
}

func TestWriteFile_StaleSHAConflictPassesThrough(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)
	f.gh.err = &driven.APIError{StatusCode: http.StatusConflict, Message: "README.md does not match"}

	resp := f.do(t, http.MethodPut, "/api/v1/github/repos/acme/widgets/file/README.md",
		`{"content":"hi","message":"update","sha":"stale","branch":"main"}`)

	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "does not match")
}

func TestDeleteFile(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"github_token":"ghp_secret"}`)

	resp := f.do(t, http.MethodDelete, "/api/v1/github/repos/acme/widgets/file/old.txt",
		`{"message":"remove","sha":"abc","branch":"main"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1, f.gh.calls)
}

func TestGenerateCode(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"llm_api_key":"sk-secret"}`)
	f.llm.code = "func main() {}"

	resp := f.do(t, http.MethodPost, "/api/v1/ai/generate",
		`{"prompt":"write main","context":"package main"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[httphandler.GenerateResponse](t, resp)
	assert.Equal(t, "func main() {}", body.Code)
}

func TestGenerateCode_RequiresPrompt(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"llm_api_key":"sk-secret"}`)

	resp := f.do(t, http.MethodPost, "/api/v1/ai/generate", `{"context":"x"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateCode_GatedWithoutKey(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/ai/generate", `{"prompt":"write main"}`)

	require.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Contains(t, body["error"], "LLM API key not configured")
}

func TestGetAIConfig_Ungated(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"llm_model":"gpt-4o-mini","llm_base_url":"https://llm.internal/v1"}`)

	resp := f.do(t, http.MethodGet, "/api/v1/ai/config", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[httphandler.AIConfigResponse](t, resp)
	assert.Equal(t, "gpt-4o-mini", body.Model)
	assert.Equal(t, "https://llm.internal/v1", body.BaseURL)
}

func TestTestConnection_FailureIsStillOK200(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"llm_api_key":"sk-secret"}`)
	f.llm.pingErr = &driven.APIError{StatusCode: http.StatusUnauthorized, Message: "Incorrect API key provided"}

	resp := f.do(t, http.MethodPost, "/api/v1/ai/test", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[httphandler.TestConnectionResponse](t, resp)
	assert.False(t, body.OK)
	assert.Contains(t, body.Message, "Incorrect API key provided")
}

func TestTestConnection_Success(t *testing.T) {
	f := newFixture(t)
	f.saveCredentials(t, `{"llm_api_key":"sk-secret"}`)

	resp := f.do(t, http.MethodPost, "/api/v1/ai/test", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[httphandler.TestConnectionResponse](t, resp)
	assert.True(t, body.OK)
	assert.Contains(t, body.Message, "Successfully connected")
}
