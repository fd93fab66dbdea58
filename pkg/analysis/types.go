// Package analysis runs error analyses and stores their results.
package analysis

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyInput is returned when an analysis request carries no error text.
var ErrEmptyInput = errors.New("error text is required")

// Result represents a completed error analysis
type Result struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	RepoID            string    `json:"repo_id,omitempty"`
	Summary           string    `json:"summary"`
	FileInvolved      string    `json:"file_involved,omitempty"`
	FunctionInvolved  string    `json:"function_involved,omitempty"`
	ReproductionSteps string    `json:"reproduction_steps,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Store defines analysis result persistence
type Store interface {
	Create(ctx context.Context, result *Result) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Result, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
