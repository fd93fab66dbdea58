package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/stackseek/stackseek/pkg/contextkeys"
	"github.com/stackseek/stackseek/pkg/httputil"
	"github.com/stackseek/stackseek/pkg/scm"
	"github.com/stackseek/stackseek/pkg/users"
)

type registerRequest struct {
	Email string `json:"email"`
}

type oauthExchangeRequest struct {
	Code string `json:"code"`
}

type savePATRequest struct {
	PersonalAccessToken string `json:"personal_access_token"`
}

// handleRegister ensures a profile exists for the authenticated user.
// Registering twice is a no-op that returns the existing profile.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	// Body is optional; the email claim from the token is the fallback
	var req registerRequest
	if err := httputil.ParseJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	email := req.Email
	if email == "" {
		email = contextkeys.GetUserEmail(r.Context())
	}

	created, err := s.profiles.CreateProfile(r.Context(), userID, email)
	if err != nil {
		s.logError(r, err, "failed to register profile")
		httputil.WriteInternalError(w, fmt.Errorf("failed to register profile"))
		return
	}

	profile, err := s.profiles.GetProfile(r.Context(), userID)
	if err != nil {
		s.logError(r, err, "failed to load profile after registration")
		httputil.WriteInternalError(w, fmt.Errorf("failed to load profile"))
		return
	}

	if created {
		httputil.WriteCreated(w, profile)
		return
	}
	httputil.WriteSuccess(w, profile)
}

// handleOAuthExchange builds the code-exchange handler for one provider
func (s *Server) handleOAuthExchange(provider scm.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := contextkeys.GetUserID(r.Context())

		var req oauthExchangeRequest
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}
		if !httputil.RequireNonEmpty(w, req.Code, "code") {
			return
		}

		token, err := s.exchanger.Exchange(r.Context(), provider, req.Code)
		if err != nil {
			s.log.WithError(err).WithField("provider", provider.String()).
				Warn("oauth code exchange failed")
			httputil.WriteBadRequest(w, "failed to exchange authorization code")
			return
		}

		// Provider identity is informational; a fetch failure does not
		// block the link
		info, err := s.exchanger.FetchUserInfo(r.Context(), provider, token.AccessToken)
		if err != nil {
			s.log.WithError(err).WithField("provider", provider.String()).
				Debug("could not fetch provider user info")
			info = &scm.UserInfo{}
		}

		if err := s.tokens.SaveProviderToken(r.Context(), userID, provider,
			token.AccessToken, info.Username, info.Email); err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				httputil.WriteNotFoundError(w, "User profile not found.")
				return
			}
			s.logError(r, err, "failed to save provider token")
			httputil.WriteInternalError(w, fmt.Errorf("failed to save provider token"))
			return
		}

		httputil.WriteSuccess(w, map[string]interface{}{
			"provider": provider.String(),
			"linked":   true,
			"username": info.Username,
		})
	}
}

// handleSavePAT stores an Azure DevOps personal access token after a
// format check
func (s *Server) handleSavePAT(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	var req savePATRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := scm.ValidatePAT(req.PersonalAccessToken); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	if err := s.tokens.SaveProviderToken(r.Context(), userID, scm.AzureDevOps,
		req.PersonalAccessToken, "", ""); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			httputil.WriteNotFoundError(w, "User profile not found.")
			return
		}
		s.logError(r, err, "failed to save personal access token")
		httputil.WriteInternalError(w, fmt.Errorf("failed to save personal access token"))
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"provider": scm.AzureDevOps.String(),
		"linked":   true,
	})
}

// handleDeleteAccount removes the caller's repositories, analysis results,
// and profile
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.GetUserID(r.Context())

	reposRemoved, err := s.repoStore.DeleteByUser(r.Context(), userID)
	if err != nil {
		s.logError(r, err, "failed to delete repositories")
		httputil.WriteInternalError(w, fmt.Errorf("failed to delete account"))
		return
	}

	analysesRemoved, err := s.analysisStore.DeleteByUser(r.Context(), userID)
	if err != nil {
		s.logError(r, err, "failed to delete analysis results")
		httputil.WriteInternalError(w, fmt.Errorf("failed to delete account"))
		return
	}

	if err := s.profiles.DeleteProfile(r.Context(), userID); err != nil {
		s.logError(r, err, "failed to delete profile")
		httputil.WriteInternalError(w, fmt.Errorf("failed to delete account"))
		return
	}

	s.log.WithFields(map[string]interface{}{
		"user_id":       userID,
		"repos_removed": reposRemoved,
	}).Info("account deleted")

	httputil.WriteSuccess(w, map[string]interface{}{
		"deleted":              true,
		"repositories_removed": reposRemoved,
		"analyses_removed":     analysesRemoved,
	})
}
