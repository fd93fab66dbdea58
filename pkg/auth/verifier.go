// Package auth verifies identity provider ID tokens and attaches the
// authenticated user to the request context.
package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Identity is the authenticated principal extracted from an ID token
type Identity struct {
	UserID string
	Email  string
}

// Verifier validates a raw bearer token and returns the identity it carries
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// OIDCVerifier verifies ID tokens against an OIDC issuer
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and builds a token verifier.
// For Google Identity Platform the issuer is
// https://securetoken.google.com/<project> and the audience is the project ID.
func NewOIDCVerifier(ctx context.Context, issuerURL, audience string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: audience})

	return &OIDCVerifier{verifier: verifier}, nil
}

// Verify validates a raw ID token and extracts the subject and email
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	if idToken.Subject == "" {
		return nil, fmt.Errorf("missing subject in ID token")
	}

	return &Identity{UserID: idToken.Subject, Email: claims.Email}, nil
}
