package repos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/stackseek/stackseek/pkg/scm"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create persists a repository record, assigning an ID when absent
func (s *PostgresStore) Create(ctx context.Context, repo *Repository) error {
	if repo.ID == "" {
		repo.ID = uuid.NewString()
	}

	query := `
		INSERT INTO repositories (id, user_id, url, provider, is_private)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		repo.ID, repo.UserID, repo.URL, repo.Provider.String(), repo.IsPrivate).
		Scan(&repo.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	return nil
}

// GetByID retrieves a repository by ID
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Repository, error) {
	query := `
		SELECT id, user_id, url, provider, is_private, created_at
		FROM repositories
		WHERE id = $1
	`
	repo := &Repository{}
	var provider string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&repo.ID, &repo.UserID, &repo.URL, &provider, &repo.IsPrivate, &repo.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRepoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	repo.Provider = parseProviderColumn(provider)

	return repo, nil
}

// FindByUserAndURL looks up a user's repository by URL; nil when absent
func (s *PostgresStore) FindByUserAndURL(ctx context.Context, userID, url string) (*Repository, error) {
	query := `
		SELECT id, user_id, url, provider, is_private, created_at
		FROM repositories
		WHERE user_id = $1 AND url = $2
	`
	repo := &Repository{}
	var provider string
	err := s.db.QueryRowContext(ctx, query, userID, url).Scan(
		&repo.ID, &repo.UserID, &repo.URL, &provider, &repo.IsPrivate, &repo.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find repository: %w", err)
	}
	repo.Provider = parseProviderColumn(provider)

	return repo, nil
}

// ListByUser returns a user's repositories, newest first
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*Repository, error) {
	query := `
		SELECT id, user_id, url, provider, is_private, created_at
		FROM repositories
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var result []*Repository
	for rows.Next() {
		repo := &Repository{}
		var provider string
		if err := rows.Scan(&repo.ID, &repo.UserID, &repo.URL, &provider,
			&repo.IsPrivate, &repo.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		repo.Provider = parseProviderColumn(provider)
		result = append(result, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate repositories: %w", err)
	}

	return result, nil
}

// Delete removes a repository record
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete repository: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRepoNotFound
	}
	return nil
}

// DeleteByUser removes all of a user's repositories, returning the count
func (s *PostgresStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete repositories: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func parseProviderColumn(value string) scm.Provider {
	provider, err := scm.ParseProvider(value)
	if err != nil {
		return scm.Provider(value)
	}
	return provider
}
