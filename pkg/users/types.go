package users

import (
	"context"
	"errors"
	"time"

	"github.com/stackseek/stackseek/pkg/scm"
)

// ErrUserNotFound is returned when no profile exists for a user ID.
var ErrUserNotFound = errors.New("user profile not found")

// ErrTokenNotFound is returned when a provider token has not been linked.
var ErrTokenNotFound = errors.New("provider token not found")

// ResourceKind names a quota-governed resource counter
type ResourceKind string

const (
	ResourceAnalysis   ResourceKind = "analysis"
	ResourceRepository ResourceKind = "repository"
)

// Column returns the profile column backing this resource's counter
func (k ResourceKind) Column() string {
	switch k {
	case ResourceAnalysis:
		return "analysis_count"
	case ResourceRepository:
		return "repo_count"
	}
	return ""
}

// Profile represents a user's subscription state and usage counters
type Profile struct {
	UserID        string    `json:"user_id"`
	Email         string    `json:"email,omitempty"`
	PlanName      string    `json:"plan_name"`
	AnalysisCount int64     `json:"analysis_count"`
	RepoCount     int64     `json:"repo_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Count returns the counter value for a resource kind
func (p *Profile) Count(kind ResourceKind) int64 {
	switch kind {
	case ResourceAnalysis:
		return p.AnalysisCount
	case ResourceRepository:
		return p.RepoCount
	}
	return 0
}

// Store defines profile and counter persistence
type Store interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// CreateProfile registers a profile with zeroed counters and the default
	// plan. Idempotent; reports whether a new profile was created.
	CreateProfile(ctx context.Context, userID, email string) (bool, error)
	// IncrementCount atomically adds one to the resource counter and returns
	// the new value.
	IncrementCount(ctx context.Context, userID string, kind ResourceKind) (int64, error)
	// DecrementCount subtracts one from the resource counter, flooring at
	// zero. Compensation only.
	DecrementCount(ctx context.Context, userID string, kind ResourceKind) error
	SetPlan(ctx context.Context, userID, planName string) error
	ListTopByAnalysisCount(ctx context.Context, limit int) ([]*Profile, error)
	DeleteProfile(ctx context.Context, userID string) error
}

// TokenStore defines provider token persistence
type TokenStore interface {
	// SaveProviderToken stores the provider access token on the profile and
	// records the linked provider identity.
	SaveProviderToken(ctx context.Context, userID string, provider scm.Provider, token, username, email string) error
	GetProviderToken(ctx context.Context, userID string, provider scm.Provider) (string, error)
}
