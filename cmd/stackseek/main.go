package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/stackseek/stackseek/pkg/analysis"
	"github.com/stackseek/stackseek/pkg/api"
	"github.com/stackseek/stackseek/pkg/auth"
	"github.com/stackseek/stackseek/pkg/config"
	"github.com/stackseek/stackseek/pkg/observability"
	"github.com/stackseek/stackseek/pkg/plans"
	"github.com/stackseek/stackseek/pkg/quota"
	"github.com/stackseek/stackseek/pkg/repos"
	"github.com/stackseek/stackseek/pkg/scm"
	"github.com/stackseek/stackseek/pkg/storage/postgres"
	"github.com/stackseek/stackseek/pkg/users"
)

func main() {
	startLog := logrus.New()
	startLog.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		startLog.WithError(err).Fatal("failed to load configuration")
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		startLog.WithError(err).Fatal("failed to connect to postgres")
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		startLog.WithError(err).Fatal("failed to apply schema")
	}
	if err := postgres.SeedDefaultPlans(ctx, db); err != nil {
		startLog.WithError(err).Fatal("failed to seed plans")
	}
	startLog.Info("database ready")

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = postgres.ConnectRedis(cfg.Redis)
		if err != nil {
			// The plan cache degrades to L1 plus the database
			startLog.WithError(err).Warn("redis unavailable, continuing without it")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	userStore := users.NewPostgresStore(db)
	repoStore := repos.NewPostgresStore(db)
	analysisStore := analysis.NewPostgresStore(db)

	var planRegistry plans.Registry = plans.NewPostgresRegistry(db)
	if cfg.Cache.Enabled {
		planRegistry = plans.NewCachedRegistry(planRegistry, plans.CachedRegistryOptions{
			L1Size:  cfg.Cache.L1Size,
			TTL:     cfg.Cache.PlanTTL,
			Redis:   redisClient,
			Logger:  log,
			Metrics: metrics,
		})
	}

	enforcer := quota.NewEnforcer(userStore, planRegistry, log, metrics)
	analysisService := analysis.NewService(analysisStore, log)
	exchanger := scm.NewExchanger(scm.ExchangerConfig{
		GitHub:      scm.ClientCredentials(cfg.OAuth.GitHub),
		GitLab:      scm.ClientCredentials(cfg.OAuth.GitLab),
		Bitbucket:   scm.ClientCredentials(cfg.OAuth.Bitbucket),
		AzureDevOps: scm.ClientCredentials(cfg.OAuth.AzureDevOps),
	}, metrics)
	validator := scm.NewAccessValidator(metrics)

	var verifier auth.Verifier
	if !cfg.Auth.Disabled {
		verifier, err = auth.NewOIDCVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience)
		if err != nil {
			startLog.WithError(err).Fatal("failed to initialize token verifier")
		}
	} else {
		startLog.Warn("authentication disabled, trusting the X-Test-User-ID header")
	}
	authMW := auth.NewMiddleware(verifier, cfg.Auth.Disabled, log)

	server := api.NewServer(cfg.Server, api.Dependencies{
		Enforcer:      enforcer,
		Profiles:      userStore,
		Tokens:        userStore,
		Repos:         repoStore,
		Analyses:      analysisService,
		AnalysisStore: analysisStore,
		Exchanger:     exchanger,
		Validator:     validator,
		Auth:          authMW,
		Logger:        log,
		Metrics:       metrics,
	})

	healthMux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient)
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.Start()
	})

	group.Go(func() error {
		startLog.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		startLog.Info("shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			startLog.WithError(err).Warn("API server shutdown failed")
		}
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		startLog.WithError(err).Fatal("server exited with error")
	}
	startLog.Info("shutdown complete")
}
