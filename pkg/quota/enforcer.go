package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/stackseek/stackseek/pkg/observability"
	"github.com/stackseek/stackseek/pkg/plans"
	"github.com/stackseek/stackseek/pkg/users"
)

// MaxTopUsers caps the top-users leaderboard size.
const MaxTopUsers = 100

// ErrInvalidCount is returned when a leaderboard size is out of range.
var ErrInvalidCount = errors.New("count must be between 1 and 100")

// LimitExceededError indicates a user has exhausted a plan limit. An
// expected outcome, not an internal failure; the message is user-facing.
type LimitExceededError struct {
	Resource users.ResourceKind
	Current  int64
	Limit    int64
}

func (e *LimitExceededError) Error() string {
	switch e.Resource {
	case users.ResourceAnalysis:
		return "You have reached your error analysis limit. Please upgrade."
	case users.ResourceRepository:
		return "You have reached your repository limit. Please upgrade."
	}
	return "quota exceeded for " + string(e.Resource)
}

// IsLimitExceeded checks if an error is a limit exceeded error
func IsLimitExceeded(err error) bool {
	var limitErr *LimitExceededError
	return errors.As(err, &limitErr)
}

// PlanNotFoundError names the plan a quota decision could not resolve
type PlanNotFoundError struct {
	Name string
}

func (e *PlanNotFoundError) Error() string {
	return fmt.Sprintf("subscription plan %q not found", e.Name)
}

func (e *PlanNotFoundError) Unwrap() error {
	return plans.ErrPlanNotFound
}

// Enforcer makes quota decisions against the user store and plan registry
type Enforcer struct {
	users   users.Store
	plans   plans.Registry
	log     *observability.Logger
	metrics *observability.Metrics
}

// NewEnforcer creates a new Enforcer
func NewEnforcer(userStore users.Store, registry plans.Registry, log *observability.Logger, metrics *observability.Metrics) *Enforcer {
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Enforcer{
		users:   userStore,
		plans:   registry,
		log:     log,
		metrics: metrics,
	}
}

// CheckAndReserve checks the user's plan limit for a resource and, if the
// limit permits, reserves capacity by incrementing the counter. Returns
// the counter value after the reservation.
//
// On denial the counter is left unchanged and a *LimitExceededError is
// returned. users.ErrUserNotFound and *PlanNotFoundError pass through for
// callers to map to not-found responses.
func (e *Enforcer) CheckAndReserve(ctx context.Context, userID string, kind users.ResourceKind) (int64, error) {
	profile, err := e.users.GetProfile(ctx, userID)
	if err != nil {
		e.recordDecision(kind, "error")
		return 0, err
	}

	plan, err := e.resolvePlan(ctx, profile.PlanName)
	if err != nil {
		e.recordDecision(kind, "error")
		return 0, err
	}

	limit := planLimit(plan, kind)
	current := profile.Count(kind)

	if limit != plans.Unlimited && current >= limit {
		e.recordDecision(kind, "denied")
		return current, &LimitExceededError{Resource: kind, Current: current, Limit: limit}
	}

	newCount, err := e.users.IncrementCount(ctx, userID, kind)
	if err != nil {
		e.recordDecision(kind, "error")
		return 0, fmt.Errorf("failed to reserve %s quota: %w", kind, err)
	}

	e.recordDecision(kind, "permitted")
	return newCount, nil
}

// Release hands back a reservation with a compensating decrement. Failures
// are logged and swallowed: the counter may stay high until the next
// successful decrement, which beats failing the caller's own error path.
func (e *Enforcer) Release(ctx context.Context, userID string, kind users.ResourceKind) {
	if err := e.users.DecrementCount(ctx, userID, kind); err != nil {
		e.log.WithError(err).WithFields(map[string]interface{}{
			"user_id":  userID,
			"resource": string(kind),
		}).Error("failed to release quota reservation")
		e.recordRollback(kind, "error")
		return
	}
	e.recordRollback(kind, "ok")
}

// SetUserPlan assigns a plan to a user after validating that both exist.
// Assigning the already-assigned plan is an idempotent overwrite.
func (e *Enforcer) SetUserPlan(ctx context.Context, userID, planName string) error {
	if _, err := e.resolvePlan(ctx, planName); err != nil {
		return err
	}
	return e.users.SetPlan(ctx, userID, planName)
}

// TopUsersByUsage returns the count heaviest analysis users. The count is
// validated here, not at the HTTP edge, so every caller gets the same
// bounds.
func (e *Enforcer) TopUsersByUsage(ctx context.Context, count int) ([]*users.Profile, error) {
	if count < 1 || count > MaxTopUsers {
		return nil, ErrInvalidCount
	}
	return e.users.ListTopByAnalysisCount(ctx, count)
}

func (e *Enforcer) resolvePlan(ctx context.Context, planName string) (*plans.Plan, error) {
	if planName == "" {
		planName = plans.DefaultPlanName
	}
	plan, err := e.plans.GetPlan(ctx, planName)
	if errors.Is(err, plans.ErrPlanNotFound) {
		return nil, &PlanNotFoundError{Name: planName}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan %q: %w", planName, err)
	}
	return plan, nil
}

func planLimit(plan *plans.Plan, kind users.ResourceKind) int64 {
	switch kind {
	case users.ResourceAnalysis:
		return plan.AnalysisLimit
	case users.ResourceRepository:
		return plan.RepoLimit
	}
	return 0
}

func (e *Enforcer) recordDecision(kind users.ResourceKind, outcome string) {
	if e.metrics != nil {
		e.metrics.QuotaDecisionsTotal.WithLabelValues(string(kind), outcome).Inc()
	}
}

func (e *Enforcer) recordRollback(kind users.ResourceKind, status string) {
	if e.metrics != nil {
		e.metrics.QuotaRollbacksTotal.WithLabelValues(string(kind), status).Inc()
	}
}
