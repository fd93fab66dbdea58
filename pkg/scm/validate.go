package scm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stackseek/stackseek/pkg/observability"
)

// userAgent identifies the backend to provider APIs.
const userAgent = "StackSeekApp/1.0"

// minPATLength is the shortest token Azure DevOps issues.
const minPATLength = 40

// AccessDeniedError indicates a provider rejected the stored token for a
// repository. Expected outcome, not an internal failure.
type AccessDeniedError struct {
	Provider Provider
	Status   int
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s denied repository access (status %d)", e.Provider, e.Status)
}

// IsAccessDenied checks if an error is an access denied error
func IsAccessDenied(err error) bool {
	_, ok := err.(*AccessDeniedError)
	return ok
}

// AccessValidator verifies that a stored token can read a repository
type AccessValidator struct {
	client  *http.Client
	metrics *observability.Metrics
}

// NewAccessValidator creates a new AccessValidator
func NewAccessValidator(metrics *observability.Metrics) *AccessValidator {
	return &AccessValidator{
		client:  &http.Client{Timeout: 10 * time.Second},
		metrics: metrics,
	}
}

// ValidateAccess probes the provider API for the repository with the given
// token. A single attempt, no retries. Azure DevOps tokens are checked by
// format only.
func (v *AccessValidator) ValidateAccess(ctx context.Context, provider Provider, repoURL, token string) error {
	if provider == AzureDevOps {
		if err := ValidatePAT(token); err != nil {
			v.record(provider, "denied")
			return &AccessDeniedError{Provider: provider, Status: http.StatusUnauthorized}
		}
		v.record(provider, "ok")
		return nil
	}

	apiURL, err := ValidationURL(provider, repoURL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build validation request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", authorizationHeader(provider, token))

	resp, err := v.client.Do(req)
	if err != nil {
		v.record(provider, "error")
		return fmt.Errorf("repository validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.record(provider, "denied")
		return &AccessDeniedError{Provider: provider, Status: resp.StatusCode}
	}

	v.record(provider, "ok")
	return nil
}

func (v *AccessValidator) record(provider Provider, status string) {
	if v.metrics != nil {
		v.metrics.ProviderValidationsTotal.WithLabelValues(provider.String(), status).Inc()
	}
}

func authorizationHeader(provider Provider, token string) string {
	if provider == AzureDevOps {
		// Azure expects Basic auth with an empty username
		encoded := base64.StdEncoding.EncodeToString([]byte(":" + token))
		return "Basic " + encoded
	}
	return provider.AuthScheme() + " " + token
}

// ValidatePAT checks an Azure DevOps personal access token's format
func ValidatePAT(token string) error {
	if len(token) < minPATLength {
		return fmt.Errorf("personal access token is too short")
	}
	if strings.Contains(token, " ") {
		return fmt.Errorf("personal access token must not contain spaces")
	}
	return nil
}
