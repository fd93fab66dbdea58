package analysis

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create persists an analysis result, assigning an ID when absent
func (s *PostgresStore) Create(ctx context.Context, result *Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}

	query := `
		INSERT INTO analysis_results (id, user_id, repo_id, summary, file_involved, function_involved, reproduction_steps)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		result.ID, result.UserID, result.RepoID, result.Summary,
		result.FileInvolved, result.FunctionInvolved, result.ReproductionSteps).
		Scan(&result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis result: %w", err)
	}
	return nil
}

// ListByUser returns a user's analysis results, newest first
func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Result, error) {
	query := `
		SELECT id, user_id, COALESCE(repo_id::text, ''), summary, file_involved, function_involved, reproduction_steps, created_at
		FROM analysis_results
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis results: %w", err)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		result := &Result{}
		if err := rows.Scan(&result.ID, &result.UserID, &result.RepoID, &result.Summary,
			&result.FileInvolved, &result.FunctionInvolved, &result.ReproductionSteps,
			&result.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis results: %w", err)
	}

	return results, nil
}

// DeleteByUser removes all of a user's analysis results, returning the count
func (s *PostgresStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete analysis results: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
