package driven

import (
	"context"

	"github.com/jmhart/gitdesk/internal/domain/model"
)

// CredentialStore defines the driven port for credential record persistence.
// Secret fields cross this boundary as ciphertext only; encryption and
// decryption belong to the application layer.
type CredentialStore interface {
	// Get returns the credential record for the user, or (nil, nil) when none
	// exists. Storage failures wrap ErrStorageUnavailable.
	Get(ctx context.Context, userID int64) (*model.Credential, error)

	// Upsert applies a partial update: provided fields are staged, absent
	// fields keep their stored values. Inserts a new record with defaults for
	// the rest when none exists. The implementation must be a single
	// conditional upsert so concurrent saves cannot produce duplicate records.
	Upsert(ctx context.Context, userID int64, update model.CredentialUpdate) error
}
