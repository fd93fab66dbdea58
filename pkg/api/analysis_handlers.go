package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stackseek/stackseek/pkg/analysis"
	"github.com/stackseek/stackseek/pkg/contextkeys"
	"github.com/stackseek/stackseek/pkg/httputil"
	"github.com/stackseek/stackseek/pkg/plans"
	"github.com/stackseek/stackseek/pkg/quota"
	"github.com/stackseek/stackseek/pkg/users"
)

type analyzeRequest struct {
	ErrorText string `json:"error_text"`
}

type analyzeResponse struct {
	Result        *analysis.Result `json:"result"`
	AnalysisCount int64            `json:"analysis_count"`
}

type setPlanRequest struct {
	PlanName string `json:"plan_name"`
}

// handleAnalyze reserves analysis quota, runs the analysis, and hands the
// reservation back when the analysis fails.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	var req analyzeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.ErrorText = strings.TrimSpace(req.ErrorText)
	if !httputil.RequireNonEmpty(w, req.ErrorText, "error_text") {
		return
	}

	newCount, err := s.enforcer.CheckAndReserve(r.Context(), userID, users.ResourceAnalysis)
	if err != nil {
		s.writeQuotaError(w, r, err)
		return
	}

	result, err := s.analyses.Analyze(r.Context(), userID, req.ErrorText)
	if err != nil {
		s.enforcer.Release(r.Context(), userID, users.ResourceAnalysis)
		if errors.Is(err, analysis.ErrEmptyInput) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		s.logError(r, err, "analysis failed")
		httputil.WriteInternalError(w, fmt.Errorf("analysis failed"))
		return
	}

	httputil.WriteSuccess(w, analyzeResponse{Result: result, AnalysisCount: newCount})
}

// handleSetPlan assigns a subscription plan to the target user
func (s *Server) handleSetPlan(w http.ResponseWriter, r *http.Request) {
	targetUserID, ok := httputil.ParsePathStringOrError(w, r, "targetUserId")
	if !ok {
		return
	}

	var req setPlanRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.PlanName, "plan_name") {
		return
	}

	err := s.enforcer.SetUserPlan(r.Context(), targetUserID, req.PlanName)
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		httputil.WriteNotFoundError(w, "User profile not found.")
		return
	case errors.Is(err, plans.ErrPlanNotFound):
		httputil.WriteNotFoundError(w, err.Error())
		return
	case err != nil:
		s.logError(r, err, "failed to set plan")
		httputil.WriteInternalError(w, fmt.Errorf("failed to set plan"))
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"user_id":   targetUserID,
		"plan_name": req.PlanName,
	})
}

// handleTopUsers returns the heaviest analysis users
func (s *Server) handleTopUsers(w http.ResponseWriter, r *http.Request) {
	count, ok := httputil.ParsePathIntOrError(w, r, "count")
	if !ok {
		return
	}

	profiles, err := s.enforcer.TopUsersByUsage(r.Context(), count)
	if errors.Is(err, quota.ErrInvalidCount) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err != nil {
		s.logError(r, err, "failed to list top users")
		httputil.WriteInternalError(w, fmt.Errorf("failed to list top users"))
		return
	}

	if profiles == nil {
		profiles = []*users.Profile{}
	}
	httputil.WriteSuccess(w, profiles)
}

// handleAnalysisHistory returns the caller's recent analysis results
func (s *Server) handleAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	limit, err := httputil.ParseQueryInt(r, "limit", 20)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	results, err := s.analyses.History(r.Context(), userID, limit)
	if err != nil {
		s.logError(r, err, "failed to list analysis history")
		httputil.WriteInternalError(w, fmt.Errorf("failed to list analysis history"))
		return
	}

	if results == nil {
		results = []*analysis.Result{}
	}
	httputil.WriteSuccess(w, results)
}

// writeQuotaError maps quota decision errors onto HTTP statuses. Limit
// denials and missing profiles are expected outcomes and are not logged
// as errors.
func (s *Server) writeQuotaError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case quota.IsLimitExceeded(err):
		httputil.WriteTooManyRequests(w, err.Error())
	case errors.Is(err, users.ErrUserNotFound):
		httputil.WriteNotFoundError(w, "User profile not found.")
	case errors.Is(err, plans.ErrPlanNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		s.logError(r, err, "quota check failed")
		httputil.WriteInternalError(w, fmt.Errorf("internal server error"))
	}
}
