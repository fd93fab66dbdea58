package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stackseek/stackseek/pkg/plans"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetProfile retrieves a user profile by ID
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT user_id, email, plan_name, analysis_count, repo_count, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`
	profile := &Profile{}
	var email sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID, &email, &profile.PlanName,
		&profile.AnalysisCount, &profile.RepoCount,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	profile.Email = email.String

	if profile.PlanName == "" {
		profile.PlanName = plans.DefaultPlanName
	}

	return profile, nil
}

// CreateProfile registers a new profile with zeroed counters and the
// default plan. Re-registration of an existing user is a no-op.
func (s *PostgresStore) CreateProfile(ctx context.Context, userID, email string) (bool, error) {
	query := `
		INSERT INTO user_profiles (user_id, email, plan_name, analysis_count, repo_count)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, userID, email, plans.DefaultPlanName)
	if err != nil {
		return false, fmt.Errorf("failed to create profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// IncrementCount atomically adds one to a resource counter and returns the
// new value
func (s *PostgresStore) IncrementCount(ctx context.Context, userID string, kind ResourceKind) (int64, error) {
	column := kind.Column()
	if column == "" {
		return 0, fmt.Errorf("unknown resource kind: %s", kind)
	}

	query := fmt.Sprintf(`
		UPDATE user_profiles
		SET %s = %s + 1, updated_at = NOW()
		WHERE user_id = $1
		RETURNING %s
	`, column, column, column)

	var count int64
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s count: %w", kind, err)
	}

	return count, nil
}

// DecrementCount subtracts one from a resource counter, flooring at zero
func (s *PostgresStore) DecrementCount(ctx context.Context, userID string, kind ResourceKind) error {
	column := kind.Column()
	if column == "" {
		return fmt.Errorf("unknown resource kind: %s", kind)
	}

	query := fmt.Sprintf(`
		UPDATE user_profiles
		SET %s = GREATEST(%s - 1, 0), updated_at = NOW()
		WHERE user_id = $1
	`, column, column)

	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to decrement %s count: %w", kind, err)
	}
	return nil
}

// SetPlan assigns a plan to a user
func (s *PostgresStore) SetPlan(ctx context.Context, userID, planName string) error {
	query := `
		UPDATE user_profiles
		SET plan_name = $2, updated_at = NOW()
		WHERE user_id = $1
	`
	result, err := s.db.ExecContext(ctx, query, userID, planName)
	if err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ListTopByAnalysisCount returns the heaviest analysis users, descending,
// with user ID as a stable tie-break
func (s *PostgresStore) ListTopByAnalysisCount(ctx context.Context, limit int) ([]*Profile, error) {
	query := `
		SELECT user_id, email, plan_name, analysis_count, repo_count, created_at, updated_at
		FROM user_profiles
		ORDER BY analysis_count DESC, user_id ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top users: %w", err)
	}
	defer rows.Close()

	var result []*Profile
	for rows.Next() {
		profile := &Profile{}
		var email sql.NullString
		if err := rows.Scan(&profile.UserID, &email, &profile.PlanName,
			&profile.AnalysisCount, &profile.RepoCount,
			&profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profile.Email = email.String
		result = append(result, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return result, nil
}

// DeleteProfile removes a user profile
func (s *PostgresStore) DeleteProfile(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
