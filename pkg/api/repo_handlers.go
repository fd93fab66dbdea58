package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stackseek/stackseek/pkg/contextkeys"
	"github.com/stackseek/stackseek/pkg/httputil"
	"github.com/stackseek/stackseek/pkg/repos"
	"github.com/stackseek/stackseek/pkg/scm"
	"github.com/stackseek/stackseek/pkg/users"
)

type connectRepoRequest struct {
	URL       string `json:"url"`
	IsPrivate bool   `json:"is_private"`
}

// handleConnectRepo connects a repository after reserving repository quota
// and validating token access. Every failure after the reservation hands
// the reserved slot back.
func (s *Server) handleConnectRepo(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	var req connectRepoRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.URL, "url") {
		return
	}

	provider, normalized, err := scm.ParseRepoURL(req.URL)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	existing, err := s.repoStore.FindByUserAndURL(r.Context(), userID, normalized)
	if err != nil {
		s.logError(r, err, "failed to look up repository")
		httputil.WriteInternalError(w, fmt.Errorf("failed to connect repository"))
		return
	}
	if existing != nil {
		// Reconnecting an already-connected repository is a no-op; no
		// quota slot is consumed
		httputil.WriteSuccess(w, existing)
		return
	}

	if _, err := s.enforcer.CheckAndReserve(r.Context(), userID, users.ResourceRepository); err != nil {
		s.writeQuotaError(w, r, err)
		return
	}

	token, err := s.tokens.GetProviderToken(r.Context(), userID, provider)
	if err != nil {
		s.enforcer.Release(r.Context(), userID, users.ResourceRepository)
		if errors.Is(err, users.ErrTokenNotFound) {
			httputil.WriteUnauthorized(w, fmt.Sprintf("no %s account linked", provider))
			return
		}
		if errors.Is(err, users.ErrUserNotFound) {
			httputil.WriteNotFoundError(w, "User profile not found.")
			return
		}
		s.logError(r, err, "failed to load provider token")
		httputil.WriteInternalError(w, fmt.Errorf("failed to connect repository"))
		return
	}

	if err := s.validator.ValidateAccess(r.Context(), provider, normalized, token); err != nil {
		s.enforcer.Release(r.Context(), userID, users.ResourceRepository)
		if scm.IsAccessDenied(err) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		if scm.IsUnsupportedHost(err) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		s.logError(r, err, "repository validation failed")
		httputil.WriteInternalError(w, fmt.Errorf("failed to validate repository access"))
		return
	}

	repo := &repos.Repository{
		UserID:    userID,
		URL:       normalized,
		Provider:  provider,
		IsPrivate: req.IsPrivate,
	}
	if err := s.repoStore.Create(r.Context(), repo); err != nil {
		s.enforcer.Release(r.Context(), userID, users.ResourceRepository)
		s.logError(r, err, "failed to create repository")
		httputil.WriteInternalError(w, fmt.Errorf("failed to connect repository"))
		return
	}

	httputil.WriteSuccess(w, repo)
}

// handleListRepos returns the caller's connected repositories
func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	list, err := s.repoStore.ListByUser(r.Context(), userID)
	if err != nil {
		s.logError(r, err, "failed to list repositories")
		httputil.WriteInternalError(w, fmt.Errorf("failed to list repositories"))
		return
	}

	if list == nil {
		list = []*repos.Repository{}
	}
	httputil.WriteSuccess(w, list)
}

// handleDisconnectRepo removes a repository and hands back its quota slot
func (s *Server) handleDisconnectRepo(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	repo, err := s.repoStore.GetByID(r.Context(), id)
	if errors.Is(err, repos.ErrRepoNotFound) {
		httputil.WriteNotFoundError(w, "Repository not found.")
		return
	}
	if err != nil {
		s.logError(r, err, "failed to load repository")
		httputil.WriteInternalError(w, fmt.Errorf("failed to disconnect repository"))
		return
	}
	if repo.UserID != userID {
		httputil.WriteForbidden(w, "repository belongs to another user")
		return
	}

	if err := s.repoStore.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repos.ErrRepoNotFound) {
			httputil.WriteNotFoundError(w, "Repository not found.")
			return
		}
		s.logError(r, err, "failed to delete repository")
		httputil.WriteInternalError(w, fmt.Errorf("failed to disconnect repository"))
		return
	}

	s.enforcer.Release(r.Context(), userID, users.ResourceRepository)

	httputil.WriteSuccess(w, map[string]interface{}{"deleted": true})
}
