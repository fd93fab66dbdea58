package plans

import (
	"context"
	"errors"
	"time"
)

// Unlimited marks a limit that is never enforced.
const Unlimited int64 = -1

// DefaultPlanName is assigned to profiles that carry no plan.
const DefaultPlanName = "free"

// ErrPlanNotFound is returned when a plan name has no registered plan.
var ErrPlanNotFound = errors.New("plan not found")

// Plan represents a subscription plan and its resource limits
type Plan struct {
	Name          string    `json:"name"`
	AnalysisLimit int64     `json:"analysis_limit"`
	RepoLimit     int64     `json:"repo_limit"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AllowsAnalyses reports whether the plan permits another analysis at the
// given current count.
func (p *Plan) AllowsAnalyses(current int64) bool {
	return p.AnalysisLimit == Unlimited || current < p.AnalysisLimit
}

// AllowsRepos reports whether the plan permits another repository at the
// given current count.
func (p *Plan) AllowsRepos(current int64) bool {
	return p.RepoLimit == Unlimited || current < p.RepoLimit
}

// Registry provides read access to the plan catalog
type Registry interface {
	GetPlan(ctx context.Context, name string) (*Plan, error)
}
