package scm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/stackseek/stackseek/pkg/observability"
)

// azureTokenURL is the Azure DevOps OAuth token endpoint. Azure uses a
// JWT-bearer form exchange instead of the standard authorization-code grant.
var azureTokenURL = "https://app.vssps.visualstudio.com/oauth2/token"

// ClientCredentials holds an OAuth app's client settings for one provider
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// ExchangerConfig holds OAuth client settings per provider
type ExchangerConfig struct {
	GitHub      ClientCredentials
	GitLab      ClientCredentials
	Bitbucket   ClientCredentials
	AzureDevOps ClientCredentials
}

// UserInfo is the public identity a provider reports for a token
type UserInfo struct {
	Username string
	Email    string
}

// Exchanger exchanges OAuth authorization codes for provider access tokens
type Exchanger struct {
	config  ExchangerConfig
	client  *http.Client
	metrics *observability.Metrics
}

// NewExchanger creates a new Exchanger
func NewExchanger(config ExchangerConfig, metrics *observability.Metrics) *Exchanger {
	return &Exchanger{
		config:  config,
		client:  &http.Client{Timeout: 15 * time.Second},
		metrics: metrics,
	}
}

// Exchange trades an authorization code for an access token
func (e *Exchanger) Exchange(ctx context.Context, provider Provider, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}

	var token *oauth2.Token
	var err error
	if provider == AzureDevOps {
		token, err = e.exchangeAzure(ctx, code)
	} else {
		cfg, cfgErr := e.oauth2Config(provider)
		if cfgErr != nil {
			return nil, cfgErr
		}
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)
		token, err = cfg.Exchange(ctx, code)
	}

	if err != nil {
		e.record(provider, "error")
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	e.record(provider, "ok")
	return token, nil
}

// FetchUserInfo queries the provider for the token owner's public identity.
// Only GitHub exposes one we use; other providers return an empty UserInfo.
func (e *Exchanger) FetchUserInfo(ctx context.Context, provider Provider, token string) (*UserInfo, error) {
	if provider != GitHub {
		return &UserInfo{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user info request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "token "+token)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request returned status %d", resp.StatusCode)
	}

	var payload struct {
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &UserInfo{Username: payload.Login, Email: payload.Email}, nil
}

func (e *Exchanger) oauth2Config(provider Provider) (*oauth2.Config, error) {
	var creds ClientCredentials
	var endpoint oauth2.Endpoint

	switch provider {
	case GitHub:
		creds = e.config.GitHub
		endpoint = oauth2.Endpoint{
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		}
	case GitLab:
		creds = e.config.GitLab
		endpoint = oauth2.Endpoint{
			AuthURL:  "https://gitlab.com/oauth/authorize",
			TokenURL: "https://gitlab.com/oauth/token",
		}
	case Bitbucket:
		creds = e.config.Bitbucket
		endpoint = oauth2.Endpoint{
			AuthURL:  "https://bitbucket.org/site/oauth2/authorize",
			TokenURL: "https://bitbucket.org/site/oauth2/access_token",
		}
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%s OAuth client is not configured", provider)
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  creds.RedirectURL,
	}, nil
}

// exchangeAzure performs the Azure DevOps JWT-bearer form exchange
func (e *Exchanger) exchangeAzure(ctx context.Context, code string) (*oauth2.Token, error) {
	creds := e.config.AzureDevOps
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("azure_devops OAuth client is not configured")
	}

	form := url.Values{
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {creds.ClientSecret},
		"grant_type":            {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":             {code},
		"redirect_uri":          {creds.RedirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, azureTokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build azure token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("azure token request returned status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in,string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode azure token response: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, fmt.Errorf("azure token response missing access_token")
	}

	token := &oauth2.Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if payload.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return token, nil
}

func (e *Exchanger) record(provider Provider, status string) {
	if e.metrics != nil {
		e.metrics.TokenExchangesTotal.WithLabelValues(provider.String(), status).Inc()
	}
}
