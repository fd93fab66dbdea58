package auth

import (
	"net/http"
	"strings"

	"github.com/stackseek/stackseek/pkg/contextkeys"
	"github.com/stackseek/stackseek/pkg/httputil"
	"github.com/stackseek/stackseek/pkg/observability"
)

// testUserHeader names the header honored when authentication is disabled.
// Development only; never enabled in production configuration.
const testUserHeader = "X-Test-User-ID"

// Middleware authenticates requests and stores the user in the context
type Middleware struct {
	verifier Verifier
	disabled bool
	log      *observability.Logger
}

// NewMiddleware creates a new auth middleware. With disabled set, requests
// authenticate via the X-Test-User-ID header instead of a bearer token.
func NewMiddleware(verifier Verifier, disabled bool, log *observability.Logger) *Middleware {
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Middleware{verifier: verifier, disabled: disabled, log: log}
}

// Handler wraps next with authentication
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			userID := r.Header.Get(testUserHeader)
			if userID == "" {
				httputil.WriteUnauthorized(w, "missing "+testUserHeader+" header")
				return
			}
			ctx := contextkeys.WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		rawToken, ok := bearerToken(r)
		if !ok {
			httputil.WriteUnauthorized(w, "missing bearer token")
			return
		}

		identity, err := m.verifier.Verify(r.Context(), rawToken)
		if err != nil {
			m.log.WithError(err).Debug("token verification failed")
			httputil.WriteUnauthorized(w, "invalid token")
			return
		}

		ctx := contextkeys.WithUserID(r.Context(), identity.UserID)
		if identity.Email != "" {
			ctx = contextkeys.WithUserEmail(ctx, identity.Email)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
