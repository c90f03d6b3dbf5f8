package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafops/grafana-console/pkg/access"
	"github.com/grafops/grafana-console/pkg/api"
	"github.com/grafops/grafana-console/pkg/audit"
	"github.com/grafops/grafana-console/pkg/authn"
	"github.com/grafops/grafana-console/pkg/cache"
	"github.com/grafops/grafana-console/pkg/config"
	"github.com/grafops/grafana-console/pkg/grafana"
	"github.com/grafops/grafana-console/pkg/mapping"
	"github.com/grafops/grafana-console/pkg/observability"
	"github.com/grafops/grafana-console/pkg/syncer"
)

const sessionPruneInterval = 10 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting Grafana console")

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}

	grafanaClient, err := grafana.NewClient(cfg.Grafana, logger, metrics)
	if err != nil {
		log.Fatalf("Failed to create Grafana client: %v", err)
	}

	auditLogger, err := audit.NewLogger(audit.Config{
		Dir:      cfg.Audit.Dir,
		MaxSize:  cfg.Audit.MaxSize,
		MaxFiles: cfg.Audit.MaxFiles,
	})
	if err != nil {
		log.Fatalf("Failed to open audit log: %v", err)
	}

	mappings, err := mapping.NewStore(cfg.Mapping.Path, logger, auditLogger)
	if err != nil {
		log.Fatalf("Failed to load mapping file: %v", err)
	}
	if cfg.Mapping.HotReload {
		go func() {
			if err := mappings.Watch(ctx); err != nil {
				logger.Errorf("Mapping watcher stopped: %v", err)
			}
		}()
	}

	var usersCache cache.OrgUsersCache
	var redisCache *cache.RedisCache
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err = cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword,
			cfg.Cache.RedisDB, grafanaClient.ListOrgUsers, cfg.Cache.TTL, metrics)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		usersCache = redisCache
		logger.Infof("Using Redis membership cache at %s", cfg.Cache.RedisAddr)
	default:
		usersCache = cache.NewMemoryCache(grafanaClient.ListOrgUsers, cfg.Cache.MemorySize, cfg.Cache.TTL, metrics)
		logger.Infof("Using in-memory membership cache, size %d", cfg.Cache.MemorySize)
	}

	resolver := access.NewResolver(grafanaClient, mappings, logger, metrics, cfg.Access.Concurrency)
	sessions := authn.NewSessionManager(cfg.AuthBackend.SessionTTL)
	authBackend := authn.NewBackendClient(cfg.AuthBackend.URL, cfg.AuthBackend.Timeout, logger)

	var membershipSync *syncer.Syncer
	if cfg.Sync.Enabled {
		membershipSync = syncer.New(cfg.Sync.Schedule, grafanaClient, usersCache, logger)
		if err := membershipSync.Start(); err != nil {
			log.Fatalf("Failed to start membership sync: %v", err)
		}
		logger.Infof("Membership sync scheduled: %s", cfg.Sync.Schedule)
	}

	server := api.NewServer(api.Dependencies{
		Grafana:     grafanaClient,
		Mappings:    mappings,
		Resolver:    resolver,
		Sessions:    sessions,
		AuthBackend: authBackend,
		UsersCache:  usersCache,
		Audit:       auditLogger,
		Logger:      logger,
		Metrics:     metrics,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	health := observability.NewHealthChecker()
	health.Register("grafana", grafanaClient.Ping)
	health.Register("auth_backend", authBackend.Ping)
	if redisCache != nil {
		health.Register("redis", redisCache.Ping)
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer(apiServer)
	shutdown.RegisterServer(healthServer)
	shutdown.RegisterShutdownFunc(func(sctx context.Context) error {
		cancel()
		if membershipSync != nil {
			membershipSync.Stop()
		}
		return nil
	})
	if redisCache != nil {
		shutdown.RegisterShutdownFunc(func(sctx context.Context) error {
			return redisCache.Close()
		})
	}
	shutdown.RegisterShutdownFunc(func(sctx context.Context) error {
		return auditLogger.Close()
	})
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(sctx context.Context) error {
			return observability.ShutdownOTel(sctx, providers, logger)
		})
	}

	// Drop expired sessions so the store does not grow unbounded
	go func() {
		ticker := time.NewTicker(sessionPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if pruned := sessions.Prune(); pruned > 0 {
					logger.Debugf("Pruned %d expired sessions", pruned)
				}
				if metrics != nil {
					metrics.SessionsActive.Set(float64(sessions.Count()))
				}
			}
		}
	}()

	go func() {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Health server failed: %v", err)
		}
	}()

	go func() {
		logger.Infof("Console API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.Errorf("Shutdown finished with errors: %v", err)
	}
	logger.Info("Grafana console stopped")
}
