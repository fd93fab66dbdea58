package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stackseek/stackseek/pkg/plans"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		name TEXT PRIMARY KEY,
		analysis_limit BIGINT NOT NULL,
		repo_limit BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id TEXT PRIMARY KEY,
		email TEXT,
		plan_name TEXT NOT NULL DEFAULT 'free',
		analysis_count BIGINT NOT NULL DEFAULT 0,
		repo_count BIGINT NOT NULL DEFAULT 0,
		github_token TEXT,
		gitlab_token TEXT,
		bitbucket_token TEXT,
		azure_devops_token TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS auth_providers (
		user_id TEXT NOT NULL REFERENCES user_profiles(user_id) ON DELETE CASCADE,
		provider TEXT NOT NULL,
		username TEXT,
		email TEXT,
		linked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, provider)
	)`,
	`CREATE TABLE IF NOT EXISTS repositories (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES user_profiles(user_id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		provider TEXT NOT NULL,
		is_private BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, url)
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_results (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES user_profiles(user_id) ON DELETE CASCADE,
		repo_id UUID REFERENCES repositories(id) ON DELETE SET NULL,
		summary TEXT NOT NULL,
		file_involved TEXT NOT NULL DEFAULT '',
		function_involved TEXT NOT NULL DEFAULT '',
		reproduction_steps TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_repositories_user_id ON repositories(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_analysis_results_user_id ON analysis_results(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_profiles_analysis_count ON user_profiles(analysis_count DESC)`,
}

// EnsureSchema creates the tables and indexes if they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}

// SeedDefaultPlans inserts the built-in plans, leaving existing rows alone
func SeedDefaultPlans(ctx context.Context, db *sql.DB) error {
	defaults := []struct {
		name          string
		analysisLimit int64
		repoLimit     int64
	}{
		{plans.DefaultPlanName, 5, 5},
		{"pro", 100, 20},
		{"unlimited", plans.Unlimited, plans.Unlimited},
	}

	query := `
		INSERT INTO plans (name, analysis_limit, repo_limit)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	for _, plan := range defaults {
		if _, err := db.ExecContext(ctx, query, plan.name, plan.analysisLimit, plan.repoLimit); err != nil {
			return fmt.Errorf("failed to seed plan %q: %w", plan.name, err)
		}
	}
	return nil
}
