package driven

import (
	"context"

	"github.com/jmhart/gitdesk/internal/domain/model"
)

// GitHubClient defines the driven port for repository-host operations. A
// client is scoped to one decrypted token; the application layer constructs
// a fresh client per call from stored credentials.
type GitHubClient interface {
	// ListRepositories returns one page (up to 100) of repositories visible
	// to the token owner.
	ListRepositories(ctx context.Context) ([]model.Repository, error)

	// ListBranches returns one page (up to 100) of branches for a repository.
	ListBranches(ctx context.Context, owner, repo string) ([]model.Branch, error)

	// GetFileContent reads and decodes a file at the given path and ref.
	// Returns ErrNotAFile if the path is a directory and ErrUnreadableContent
	// if the entry has no decodable content.
	GetFileContent(ctx context.Context, owner, repo, path, ref string) (*model.FileContent, error)

	// ListDirectoryContents lists the entries at the given path and ref.
	// Returns ErrNotADirectory if the path is a single file.
	ListDirectoryContents(ctx context.Context, owner, repo, path, ref string) ([]model.DirEntry, error)

	// CreateFile commits a new file. The host rejects the write if the path
	// already exists.
	CreateFile(ctx context.Context, owner, repo, path, content, message, branch string) (*model.CommitResult, error)

	// UpdateFile commits new content for an existing file. sha is the
	// expected-current-version token; a stale sha surfaces the host's
	// conflict as an *APIError.
	UpdateFile(ctx context.Context, owner, repo, path, content, message, sha, branch string) (*model.CommitResult, error)

	// DeleteFile removes a file, gated on the same sha precondition.
	DeleteFile(ctx context.Context, owner, repo, path, message, sha, branch string) error
}

// GitHubClientFactory builds a client from a decrypted personal access token.
type GitHubClientFactory func(token string) GitHubClient
