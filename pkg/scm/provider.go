// Package scm models the supported source-control providers: repository
// URL detection, access-token semantics, and OAuth code exchange.
package scm

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider identifies a source-control provider
type Provider string

const (
	GitHub      Provider = "github"
	GitLab      Provider = "gitlab"
	Bitbucket   Provider = "bitbucket"
	AzureDevOps Provider = "azure_devops"
)

// UnsupportedHostError is returned for repository URLs on hosts we do
// not integrate with.
type UnsupportedHostError struct {
	Host string
}

func (e *UnsupportedHostError) Error() string {
	return fmt.Sprintf("unsupported repository host: %s", e.Host)
}

// IsUnsupportedHost checks if an error is an unsupported host error
func IsUnsupportedHost(err error) bool {
	_, ok := err.(*UnsupportedHostError)
	return ok
}

// ParseProvider parses a provider name
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(s)) {
	case GitHub:
		return GitHub, nil
	case GitLab:
		return GitLab, nil
	case Bitbucket:
		return Bitbucket, nil
	case AzureDevOps:
		return AzureDevOps, nil
	}
	return "", fmt.Errorf("unknown provider: %s", s)
}

func (p Provider) String() string {
	return string(p)
}

// TokenColumn returns the user profile column holding this provider's
// access token.
func (p Provider) TokenColumn() string {
	switch p {
	case GitHub:
		return "github_token"
	case GitLab:
		return "gitlab_token"
	case Bitbucket:
		return "bitbucket_token"
	case AzureDevOps:
		return "azure_devops_token"
	}
	return ""
}

// AuthScheme returns the Authorization header scheme the provider's API
// expects for a stored token.
func (p Provider) AuthScheme() string {
	switch p {
	case GitHub:
		return "token"
	case GitLab, Bitbucket:
		return "Bearer"
	case AzureDevOps:
		return "Basic"
	}
	return "Bearer"
}

// ParseRepoURL detects the provider from a repository URL and returns the
// normalized URL (trailing "/" and ".git" stripped).
func ParseRepoURL(rawURL string) (Provider, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", fmt.Errorf("invalid repository URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("invalid repository URL scheme: %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	normalized := strings.TrimSuffix(strings.TrimSuffix(u.String(), "/"), ".git")

	switch {
	case host == "github.com" || strings.HasSuffix(host, ".github.com"):
		return GitHub, normalized, nil
	case host == "gitlab.com" || strings.HasSuffix(host, ".gitlab.com"):
		return GitLab, normalized, nil
	case host == "bitbucket.org" || strings.HasSuffix(host, ".bitbucket.org"):
		return Bitbucket, normalized, nil
	case host == "dev.azure.com" || strings.HasSuffix(host, ".visualstudio.com"):
		return AzureDevOps, normalized, nil
	}

	return "", "", &UnsupportedHostError{Host: host}
}

// ValidationURL builds the provider API URL used to verify repository
// access with a stored token. Azure DevOps returns an empty URL: its PATs
// are format-checked instead of probed remotely.
func ValidationURL(provider Provider, repoURL string) (string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid repository URL: %w", err)
	}
	path := strings.Trim(strings.TrimSuffix(u.Path, ".git"), "/")

	switch provider {
	case GitHub:
		// https://github.com/{owner}/{repo} -> https://api.github.com/repos/{owner}/{repo}
		return "https://api.github.com/repos/" + path, nil
	case Bitbucket:
		// https://bitbucket.org/{workspace}/{repo} -> 2.0 repositories API
		return "https://api.bitbucket.org/2.0/repositories/" + path, nil
	case GitLab:
		// GitLab addresses projects by path-escaped "{group}/{project}"
		return "https://gitlab.com/api/v4/projects/" + url.PathEscape(path), nil
	case AzureDevOps:
		return "", nil
	}

	return "", fmt.Errorf("unknown provider: %s", provider)
}
