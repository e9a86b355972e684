// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across driven ports.
var (
	// ErrStorageUnavailable indicates the persistence layer could not be
	// reached. Read-only gating checks treat it as "credentials absent";
	// write paths fail hard.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotAFile indicates a content path resolved to a directory listing.
	ErrNotAFile = errors.New("path is a directory, not a file")

	// ErrNotADirectory indicates a content path resolved to a single file.
	ErrNotADirectory = errors.New("path is a file, not a directory")

	// ErrUnreadableContent indicates the resolved entry carries no readable
	// file content (e.g. a binary placeholder or submodule).
	ErrUnreadableContent = errors.New("unable to read file content")
)

// APIError carries an external API failure through to the caller unchanged:
// upstream status code and message, no retry, no reinterpretation.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("external api error (status %d): %s", e.StatusCode, e.Message)
}
