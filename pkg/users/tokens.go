package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stackseek/stackseek/pkg/scm"
)

// SaveProviderToken stores a provider access token on the profile and
// records the linked provider identity.
func (s *PostgresStore) SaveProviderToken(ctx context.Context, userID string, provider scm.Provider, token, username, email string) error {
	column := provider.TokenColumn()
	if column == "" {
		return fmt.Errorf("unknown provider: %s", provider)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		UPDATE user_profiles
		SET %s = $2, updated_at = NOW()
		WHERE user_id = $1
	`, column)
	result, err := tx.ExecContext(ctx, query, userID, token)
	if err != nil {
		return fmt.Errorf("failed to save %s token: %w", provider, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	linkQuery := `
		INSERT INTO auth_providers (user_id, provider, username, email, linked_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, provider) DO UPDATE
		SET username = EXCLUDED.username,
		    email = EXCLUDED.email,
		    linked_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, linkQuery, userID, provider.String(), username, email); err != nil {
		return fmt.Errorf("failed to record provider link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token save: %w", err)
	}
	return nil
}

// GetProviderToken retrieves a stored provider access token
func (s *PostgresStore) GetProviderToken(ctx context.Context, userID string, provider scm.Provider) (string, error) {
	column := provider.TokenColumn()
	if column == "" {
		return "", fmt.Errorf("unknown provider: %s", provider)
	}

	query := fmt.Sprintf(`SELECT %s FROM user_profiles WHERE user_id = $1`, column)

	var token sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s token: %w", provider, err)
	}
	if !token.Valid || token.String == "" {
		return "", ErrTokenNotFound
	}

	return token.String, nil
}
