package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jmhart/gitdesk/internal/domain/model"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// readRetryInterval is the pause before the single retry granted to
// idempotent read operations.
const readRetryInterval = 500 * time.Millisecond

// GitHubService is the proxy gateway for repository-host operations. Every
// operation gates on the stored GitHub secret, constructs a scoped client
// from the decrypted token, runs the call under a bounded timeout, and
// returns a normalized result. Mutating operations never retry.
type GitHubService struct {
	creds   *CredentialService
	factory driven.GitHubClientFactory
	cache   driven.RepoCacheStore
	timeout time.Duration
	logger  *slog.Logger
}

// NewGitHubService creates a GitHubService. factory builds a client from a
// decrypted PAT; timeout bounds every outbound call.
func NewGitHubService(
	creds *CredentialService,
	factory driven.GitHubClientFactory,
	cache driven.RepoCacheStore,
	timeout time.Duration,
	logger *slog.Logger,
) *GitHubService {
	return &GitHubService{
		creds:   creds,
		factory: factory,
		cache:   cache,
		timeout: timeout,
		logger:  logger,
	}
}

// client applies the credential gate and constructs a scoped client. No
// network call happens before the gate passes.
func (s *GitHubService) client(ctx context.Context, userID int64) (driven.GitHubClient, error) {
	token, err := s.creds.GitHubToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.factory(token), nil
}

// ListRepositories returns the repositories visible to the stored token and
// opportunistically refreshes the local metadata cache.
func (s *GitHubService) ListRepositories(ctx context.Context, userID int64) ([]model.Repository, error) {
	client, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	var repos []model.Repository
	err = s.retryRead(ctx, func(callCtx context.Context) error {
		var callErr error
		repos, callErr = client.ListRepositories(callCtx)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	// Cache refresh is best-effort and must not delay or fail the response.
	// The request context dies with the response, so detach.
	go s.refreshCache(context.WithoutCancel(ctx), userID, repos)

	return repos, nil
}

// CachedRepositories returns the locally cached repository metadata.
func (s *GitHubService) CachedRepositories(ctx context.Context, userID int64) ([]model.CachedRepository, error) {
	return s.cache.ListByUser(ctx, userID)
}

// ListBranches returns the branches of the given repository.
func (s *GitHubService) ListBranches(ctx context.Context, userID int64, owner, repo string) ([]model.Branch, error) {
	client, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	var branches []model.Branch
	err = s.retryRead(ctx, func(callCtx context.Context) error {
		var callErr error
		branches, callErr = client.ListBranches(callCtx, owner, repo)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return branches, nil
}

// GetFileContent reads and decodes a single file.
func (s *GitHubService) GetFileContent(ctx context.Context, userID int64, owner, repo, path, ref string) (*model.FileContent, error) {
	client, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	var file *model.FileContent
	err = s.retryRead(ctx, func(callCtx context.Context) error {
		var callErr error
		file, callErr = client.GetFileContent(callCtx, owner, repo, path, ref)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// ListDirectoryContents lists the entries at a path.
func (s *GitHubService) ListDirectoryContents(ctx context.Context, userID int64, owner, repo, path, ref string) ([]model.DirEntry, error) {
	client, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	var entries []model.DirEntry
	err = s.retryRead(ctx, func(callCtx context.Context) error {
		var callErr error
		entries, callErr = client.ListDirectoryContents(callCtx, owner, repo, path, ref)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateFile commits a new file. Single attempt: content writes are not
// idempotent.
func (s *GitHubService) CreateFile(ctx context.Context, userID int64, owner, repo, path, content, message, branch string) (*model.CommitResult, error) {
	client, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return client.CreateFile(callCtx, owner, repo, path, content, message, branch)
}

// UpdateFile commits new content under the sha optimistic-concurrency token.
// Single attempt: a stale sha must surface as the host's conflict, never be
// papered over by a retry.
func (s *GitHubService) UpdateFile(ctx context.Context, userID int64, owner, repo, path, content, message, sha, branch string) (*model.CommitResult, error) {
	client, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return client.UpdateFile(callCtx, owner, repo, path, content, message, sha, branch)
}

// DeleteFile removes a file under the same sha precondition. Single attempt.
func (s *GitHubService) DeleteFile(ctx context.Context, userID int64, owner, repo, path, message, sha, branch string) error {
	client, err := s.client(ctx, userID)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return client.DeleteFile(callCtx, owner, repo, path, message, sha, branch)
}

// retryRead runs an idempotent read under the bounded timeout with a single
// constant-backoff retry. Only transport failures and upstream 5xx answers
// are retried; everything else is permanent.
func (s *GitHubService) retryRead(ctx context.Context, op func(context.Context) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(readRetryInterval), 1),
		ctx,
	)

	return backoff.Retry(func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		err := op(callCtx)
		if err == nil {
			return nil
		}
		if !retryableRead(err) {
			return backoff.Permanent(err)
		}
		s.logger.Warn("github read failed, retrying once", "error", err)
		return err
	}, policy)
}

// retryableRead reports whether a read failure is worth one more attempt.
func retryableRead(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driven.ErrNotAFile) || errors.Is(err, driven.ErrNotADirectory) || errors.Is(err, driven.ErrUnreadableContent) {
		return false
	}

	var apiErr *driven.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}

	// Transport-level failure.
	return true
}

// refreshCache writes repository metadata through to the local cache.
// Failures are logged and swallowed; the cache is advisory.
func (s *GitHubService) refreshCache(ctx context.Context, userID int64, repos []model.Repository) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, repo := range repos {
		if repo.FullName == "" {
			continue
		}
		err := s.cache.Upsert(ctx, model.CachedRepository{
			UserID:        userID,
			RepoName:      repo.FullName,
			Description:   repo.Description,
			DefaultBranch: repo.DefaultBranch,
			URL:           repo.URL,
		})
		if err != nil {
			s.logger.Warn("repository cache refresh failed", "repo", repo.FullName, "error", err)
			return
		}
	}
}
