// Package api exposes the HTTP surface: analysis submission, plan
// management, OAuth account linking, and repository connections.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stackseek/stackseek/pkg/analysis"
	"github.com/stackseek/stackseek/pkg/auth"
	"github.com/stackseek/stackseek/pkg/config"
	"github.com/stackseek/stackseek/pkg/contextkeys"
	"github.com/stackseek/stackseek/pkg/httputil"
	"github.com/stackseek/stackseek/pkg/observability"
	"github.com/stackseek/stackseek/pkg/quota"
	"github.com/stackseek/stackseek/pkg/repos"
	"github.com/stackseek/stackseek/pkg/scm"
	"github.com/stackseek/stackseek/pkg/users"
)

// Dependencies bundles everything the HTTP layer delegates to
type Dependencies struct {
	Enforcer      *quota.Enforcer
	Profiles      users.Store
	Tokens        users.TokenStore
	Repos         repos.Store
	Analyses      *analysis.Service
	AnalysisStore analysis.Store
	Exchanger     *scm.Exchanger
	Validator     *scm.AccessValidator
	Auth          *auth.Middleware
	Logger        *observability.Logger
	Metrics       *observability.Metrics
}

// Server is the API HTTP server
type Server struct {
	cfg        config.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	log        *observability.Logger

	enforcer      *quota.Enforcer
	profiles      users.Store
	tokens        users.TokenStore
	repoStore     repos.Store
	analyses      *analysis.Service
	analysisStore analysis.Store
	exchanger     *scm.Exchanger
	validator     *scm.AccessValidator
}

// NewServer creates a new Server with routes registered
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		cfg:           cfg,
		log:           log,
		enforcer:      deps.Enforcer,
		profiles:      deps.Profiles,
		tokens:        deps.Tokens,
		repoStore:     deps.Repos,
		analyses:      deps.Analyses,
		analysisStore: deps.AnalysisStore,
		exchanger:     deps.Exchanger,
		validator:     deps.Validator,
	}
	s.routes(deps.Auth, deps.Metrics)
	return s
}

func (s *Server) routes(authMW *auth.Middleware, metrics *observability.Metrics) {
	router := mux.NewRouter()

	middlewares := []mux.MiddlewareFunc{
		httputil.RecoveryMiddleware(s.log),
		httputil.RequestIDMiddleware,
		httputil.CORSMiddleware(s.cfg.AllowedOrigins),
		httputil.MaxBytesMiddleware(s.cfg.MaxBodyBytes),
	}
	if metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(metrics))
	}
	middlewares = append(middlewares, httputil.LoggingMiddleware(s.log))
	router.Use(middlewares...)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	if authMW != nil {
		api.Use(authMW.Handler)
	}

	api.HandleFunc("/useranalysis/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/useranalysis/plan/{targetUserId}", s.handleSetPlan).Methods(http.MethodPost)
	api.HandleFunc("/useranalysis/top/{count}", s.handleTopUsers).Methods(http.MethodGet)
	api.HandleFunc("/useranalysis/history", s.handleAnalysisHistory).Methods(http.MethodGet)

	api.HandleFunc("/oauth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/oauth/azure/save-pat", s.handleSavePAT).Methods(http.MethodPost)
	api.HandleFunc("/oauth/github", s.handleOAuthExchange(scm.GitHub)).Methods(http.MethodPost)
	api.HandleFunc("/oauth/gitlab", s.handleOAuthExchange(scm.GitLab)).Methods(http.MethodPost)
	api.HandleFunc("/oauth/bitbucket", s.handleOAuthExchange(scm.Bitbucket)).Methods(http.MethodPost)
	api.HandleFunc("/oauth/azure", s.handleOAuthExchange(scm.AzureDevOps)).Methods(http.MethodPost)

	api.HandleFunc("/repository/connect", s.handleConnectRepo).Methods(http.MethodPost)
	api.HandleFunc("/repository/user", s.handleListRepos).Methods(http.MethodGet)
	api.HandleFunc("/repository/{id}", s.handleDisconnectRepo).Methods(http.MethodDelete)

	api.HandleFunc("/account", s.handleDeleteAccount).Methods(http.MethodDelete)

	s.router = router
}

// Handler returns the server's root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until it fails or is shut down
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(s.cfg.Host, s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.log.WithField("addr", s.httpServer.Addr).Info("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// logError logs an unexpected failure with request context
func (s *Server) logError(r *http.Request, err error, msg string) {
	s.log.WithError(err).WithFields(map[string]interface{}{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": contextkeys.GetRequestID(r.Context()),
	}).Error(msg)
}
