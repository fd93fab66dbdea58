package scm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchange_MissingCode(t *testing.T) {
	e := NewExchanger(ExchangerConfig{}, nil)
	_, err := e.Exchange(context.Background(), GitHub, "")
	assert.Error(t, err)
}

func TestExchange_UnconfiguredProvider(t *testing.T) {
	e := NewExchanger(ExchangerConfig{}, nil)
	_, err := e.Exchange(context.Background(), GitHub, "code123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestExchangeAzure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))
		assert.Equal(t, "code123", r.Form.Get("assertion"))
		assert.Equal(t, "secret", r.Form.Get("client_assertion"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "azure-token",
			"refresh_token": "azure-refresh",
			"expires_in":    "3600",
		})
	}))
	defer server.Close()

	orig := azureTokenURL
	azureTokenURL = server.URL
	defer func() { azureTokenURL = orig }()

	e := NewExchanger(ExchangerConfig{
		AzureDevOps: ClientCredentials{ClientSecret: "secret", RedirectURL: "https://app.example.com/callback"},
	}, nil)

	token, err := e.Exchange(context.Background(), AzureDevOps, "code123")
	require.NoError(t, err)
	assert.Equal(t, "azure-token", token.AccessToken)
	assert.Equal(t, "azure-refresh", token.RefreshToken)
	assert.False(t, token.Expiry.IsZero())
}

func TestExchangeAzure_MissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	orig := azureTokenURL
	azureTokenURL = server.URL
	defer func() { azureTokenURL = orig }()

	e := NewExchanger(ExchangerConfig{
		AzureDevOps: ClientCredentials{ClientSecret: "secret"},
	}, nil)

	_, err := e.Exchange(context.Background(), AzureDevOps, "code123")
	assert.Error(t, err)
}

func TestFetchUserInfo_NonGitHub(t *testing.T) {
	e := NewExchanger(ExchangerConfig{}, nil)
	info, err := e.FetchUserInfo(context.Background(), GitLab, "tok")
	require.NoError(t, err)
	assert.Empty(t, info.Username)
	assert.Empty(t, info.Email)
}
