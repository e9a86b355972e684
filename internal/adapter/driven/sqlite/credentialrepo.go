package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmhart/gitdesk/internal/domain/model"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// It stores secret fields exactly as given (ciphertext); plaintext never
// reaches this layer for secret fields.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Get returns the credential record for the user, or (nil, nil) when none
// exists.
func (r *CredentialRepo) Get(ctx context.Context, userID int64) (*model.Credential, error) {
	const query = `
		SELECT id, user_id, github_token, llm_api_key, llm_model, llm_base_url, created_at, updated_at
		FROM credentials
		WHERE user_id = ?`

	var (
		cred                 model.Credential
		githubToken          sql.NullString
		llmAPIKey            sql.NullString
		createdAt, updatedAt string
	)

	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(
		&cred.ID, &cred.UserID, &githubToken, &llmAPIKey,
		&cred.LLMModel, &cred.LLMBaseURL, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials for user %d: %w: %w", userID, driven.ErrStorageUnavailable, err)
	}

	cred.GitHubToken = githubToken.String
	cred.LLMAPIKey = llmAPIKey.String

	if cred.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for user %d: %w", userID, err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for user %d: %w", userID, err)
	}

	return &cred, nil
}

// Upsert applies a partial update as a single conditional statement. Fields
// not present in the update keep their stored values (or defaults on first
// insert); a secret field provided as the empty string is cleared to NULL.
// The single-statement form guarantees concurrent saves cannot race an
// existence check into duplicate rows.
func (r *CredentialRepo) Upsert(ctx context.Context, userID int64, update model.CredentialUpdate) error {
	const query = `
		INSERT INTO credentials (user_id, github_token, llm_api_key, llm_model, llm_base_url)
		VALUES (
			?,
			CASE WHEN ? THEN NULLIF(?, '') ELSE NULL END,
			CASE WHEN ? THEN NULLIF(?, '') ELSE NULL END,
			CASE WHEN ? THEN ? ELSE 'gpt-4o' END,
			CASE WHEN ? THEN ? ELSE 'https://api.openai.com/v1' END
		)
		ON CONFLICT (user_id) DO UPDATE SET
			github_token = CASE WHEN ? THEN excluded.github_token ELSE credentials.github_token END,
			llm_api_key  = CASE WHEN ? THEN excluded.llm_api_key  ELSE credentials.llm_api_key  END,
			llm_model    = CASE WHEN ? THEN excluded.llm_model    ELSE credentials.llm_model    END,
			llm_base_url = CASE WHEN ? THEN excluded.llm_base_url ELSE credentials.llm_base_url END,
			updated_at   = CURRENT_TIMESTAMP`

	ghSet, ghVal := provided(update.GitHubToken)
	keySet, keyVal := provided(update.LLMAPIKey)
	modelSet, modelVal := provided(update.LLMModel)
	urlSet, urlVal := provided(update.LLMBaseURL)

	_, err := r.db.Writer.ExecContext(ctx, query,
		userID,
		ghSet, ghVal,
		keySet, keyVal,
		modelSet, modelVal,
		urlSet, urlVal,
		ghSet, keySet, modelSet, urlSet,
	)
	if err != nil {
		return fmt.Errorf("upsert credentials for user %d: %w: %w", userID, driven.ErrStorageUnavailable, err)
	}
	return nil
}

// provided unwraps an optional field into a (set, value) pair for SQL args.
func provided(field *string) (bool, string) {
	if field == nil {
		return false, ""
	}
	return true, *field
}
