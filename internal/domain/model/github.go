package model

// Repository is a repository visible to the token owner.
type Repository struct {
	ID            int64
	Name          string
	FullName      string // "owner/name", normalized by the adapter.
	Description   string
	DefaultBranch string
	URL           string
	Private       bool
}

// Branch is a branch within a repository.
type Branch struct {
	Name      string
	CommitSHA string
	Protected bool
}

// FileContent is a decoded file read from a repository. SHA is the
// optimistic-concurrency token required to update the file and must be
// round-tripped unmodified by callers.
type FileContent struct {
	Content string
	SHA     string
	Path    string
}

// Entry types reported for directory listings.
const (
	EntryTypeFile      = "file"
	EntryTypeDir       = "dir"
	EntryTypeSymlink   = "symlink"
	EntryTypeSubmodule = "submodule"
)

// DirEntry is a single entry in a directory listing. Ordering is whatever
// the host returns; sorting is a presentation concern.
type DirEntry struct {
	Name string
	Path string
	Type string // one of the EntryType constants.
	Size int
}

// CommitResult is the outcome of a file create, update, or delete commit.
type CommitResult struct {
	SHA     string // blob SHA of the new content; empty for deletes.
	Path    string
	Message string
}
