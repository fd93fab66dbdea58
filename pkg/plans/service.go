package plans

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRegistry implements Registry using PostgreSQL
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry creates a new PostgresRegistry
func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// GetPlan retrieves a plan by name
func (r *PostgresRegistry) GetPlan(ctx context.Context, name string) (*Plan, error) {
	query := `
		SELECT name, analysis_limit, repo_limit, created_at, updated_at
		FROM plans
		WHERE name = $1
	`
	plan := &Plan{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&plan.Name, &plan.AnalysisLimit, &plan.RepoLimit,
		&plan.CreatedAt, &plan.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %q: %w", name, err)
	}

	return plan, nil
}

// PutPlan inserts or updates a plan. Used for seeding and operator tooling;
// not exposed over HTTP.
func (r *PostgresRegistry) PutPlan(ctx context.Context, plan *Plan) error {
	query := `
		INSERT INTO plans (name, analysis_limit, repo_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET analysis_limit = EXCLUDED.analysis_limit,
		    repo_limit = EXCLUDED.repo_limit,
		    updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, plan.Name, plan.AnalysisLimit, plan.RepoLimit); err != nil {
		return fmt.Errorf("failed to put plan %q: %w", plan.Name, err)
	}
	return nil
}

// ListPlans returns all plans ordered by name
func (r *PostgresRegistry) ListPlans(ctx context.Context) ([]*Plan, error) {
	query := `
		SELECT name, analysis_limit, repo_limit, created_at, updated_at
		FROM plans
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var result []*Plan
	for rows.Next() {
		plan := &Plan{}
		if err := rows.Scan(&plan.Name, &plan.AnalysisLimit, &plan.RepoLimit,
			&plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		result = append(result, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}

	return result, nil
}
