// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/jmhart/gitdesk/internal/domain/model"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// listPageSize caps every list call at a single page of 100 entries.
// Paginating beyond that is a known non-goal for this tool.
const listPageSize = 100

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
// A Client is scoped to a single personal access token; the application layer
// constructs one per operation from decrypted credentials.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// ListRepositories returns one page of repositories visible to the token
// owner, most recently pushed first, each with a normalized owner/name
// full-name field.
func (c *Client) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Sort:        "pushed",
		ListOptions: gh.ListOptions{PerPage: listPageSize},
	}

	repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", mapAPIError(err))
	}

	logRateLimit(resp, "repos", len(repos))

	result := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		result = append(result, mapRepository(r))
	}
	return result, nil
}

// ListBranches returns one page of branches for the given repository.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]model.Branch, error) {
	opts := &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: listPageSize},
	}

	branches, resp, err := c.gh.Repositories.ListBranches(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing branches for %s/%s: %w", owner, repo, mapAPIError(err))
	}

	logRateLimit(resp, owner+"/"+repo+"/branches", len(branches))

	result := make([]model.Branch, 0, len(branches))
	for _, b := range branches {
		result = append(result, model.Branch{
			Name:      b.GetName(),
			CommitSHA: b.GetCommit().GetSHA(),
			Protected: b.GetProtected(),
		})
	}
	return result, nil
}

// GetFileContent reads a single file at the given path and ref, decoding the
// base64 body to UTF-8 text. The returned SHA is the precondition token for a
// subsequent UpdateFile and must be round-tripped unmodified.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path, ref string) (*model.FileContent, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: ref}

	fileContent, directoryContent, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("getting contents of %s/%s/%s: %w", owner, repo, path, mapAPIError(err))
	}

	logRateLimit(resp, owner+"/"+repo+"/contents", 1)

	if directoryContent != nil {
		return nil, driven.ErrNotAFile
	}
	if fileContent == nil || fileContent.GetType() != "file" {
		return nil, driven.ErrUnreadableContent
	}

	content, err := fileContent.GetContent()
	if err != nil || fileContent.Content == nil {
		return nil, driven.ErrUnreadableContent
	}

	return &model.FileContent{
		Content: content,
		SHA:     fileContent.GetSHA(),
		Path:    fileContent.GetPath(),
	}, nil
}

// ListDirectoryContents lists the entries at the given path and ref. Ordering
// is whatever the host returns.
func (c *Client) ListDirectoryContents(ctx context.Context, owner, repo, path, ref string) ([]model.DirEntry, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: ref}

	fileContent, directoryContent, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("listing contents of %s/%s/%s: %w", owner, repo, path, mapAPIError(err))
	}

	logRateLimit(resp, owner+"/"+repo+"/contents", len(directoryContent))

	if fileContent != nil {
		return nil, driven.ErrNotADirectory
	}

	entries := make([]model.DirEntry, 0, len(directoryContent))
	for _, item := range directoryContent {
		entries = append(entries, model.DirEntry{
			Name: item.GetName(),
			Path: item.GetPath(),
			Type: item.GetType(),
			Size: item.GetSize(),
		})
	}
	return entries, nil
}

// CreateFile commits a new file to the repository.
func (c *Client) CreateFile(ctx context.Context, owner, repo, path, content, message, branch string) (*model.CommitResult, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: []byte(content),
	}
	if branch != "" {
		opts.Branch = gh.Ptr(branch)
	}

	created, resp, err := c.gh.Repositories.CreateFile(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("creating %s/%s/%s: %w", owner, repo, path, mapAPIError(err))
	}

	logRateLimit(resp, owner+"/"+repo+"/create-file", 1)

	return mapCommitResult(created, path, message), nil
}

// UpdateFile commits new content for an existing file. sha is the
// expected-current-version token; the host rejects the write with a conflict
// when it is stale, which surfaces as a *driven.APIError.
func (c *Client) UpdateFile(ctx context.Context, owner, repo, path, content, message, sha, branch string) (*model.CommitResult, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: []byte(content),
		SHA:     gh.Ptr(sha),
	}
	if branch != "" {
		opts.Branch = gh.Ptr(branch)
	}

	updated, resp, err := c.gh.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("updating %s/%s/%s: %w", owner, repo, path, mapAPIError(err))
	}

	logRateLimit(resp, owner+"/"+repo+"/update-file", 1)

	return mapCommitResult(updated, path, message), nil
}

// DeleteFile removes a file, gated on the same sha precondition as UpdateFile.
func (c *Client) DeleteFile(ctx context.Context, owner, repo, path, message, sha, branch string) error {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		SHA:     gh.Ptr(sha),
	}
	if branch != "" {
		opts.Branch = gh.Ptr(branch)
	}

	_, resp, err := c.gh.Repositories.DeleteFile(ctx, owner, repo, path, opts)
	if err != nil {
		return fmt.Errorf("deleting %s/%s/%s: %w", owner, repo, path, mapAPIError(err))
	}

	logRateLimit(resp, owner+"/"+repo+"/delete-file", 1)
	return nil
}

// mapRepository converts a go-github Repository to a domain model Repository.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
// FullName tolerates hosts that omit the normalized field by slash-joining
// owner and name.
func mapRepository(r *gh.Repository) model.Repository {
	fullName := r.GetFullName()
	if fullName == "" && r.GetName() != "" {
		fullName = r.GetOwner().GetLogin() + "/" + r.GetName()
	}

	return model.Repository{
		ID:            r.GetID(),
		Name:          r.GetName(),
		FullName:      fullName,
		Description:   r.GetDescription(),
		DefaultBranch: r.GetDefaultBranch(),
		URL:           r.GetHTMLURL(),
		Private:       r.GetPrivate(),
	}
}

// mapCommitResult converts a content-write response to a domain CommitResult,
// falling back to the request's path and message when the host omits them.
func mapCommitResult(resp *gh.RepositoryContentResponse, path, message string) *model.CommitResult {
	result := &model.CommitResult{Path: path, Message: message}
	if resp == nil {
		return result
	}
	if resp.Content != nil {
		result.SHA = resp.Content.GetSHA()
		if p := resp.Content.GetPath(); p != "" {
			result.Path = p
		}
	}
	if m := resp.Commit.GetMessage(); m != "" {
		result.Message = m
	}
	return result
}

// mapAPIError normalizes go-github errors carrying an HTTP response into the
// port-level APIError so the upstream status and message pass through
// unchanged. Other errors (transport, context) are returned as-is.
func mapAPIError(err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		status := 0
		if ghErr.Response != nil {
			status = ghErr.Response.StatusCode
		}
		return &driven.APIError{StatusCode: status, Message: ghErr.Message}
	}
	return err
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
