// Package main is the entry point for the route-svc microservice.
//
// route-svc plans maritime container routes between UN/LOCODE ports.
// It builds a port graph from the catalog, searches it with Dijkstra or
// A* under vessel feasibility constraints, and returns detailed routes
// with per-segment time, fuel, fee, and risk breakdowns.
//
// # Service Overview
//
// The service exposes a JSON HTTP API:
//   - POST /api/v1/routes/calculate - primary route plus loopless alternatives
//   - POST /api/v1/routes/validate  - request validation without computation
//   - GET  /api/v1/ports/search     - ranked port search by code or name
//   - GET  /api/v1/ports/nearby     - ports within a radius of a point
//   - GET  /api/v1/ports/{code}     - port details
//   - GET  /health                  - component health aggregation
//   - GET  /swagger/                - Swagger UI over the embedded OpenAPI document
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────┐
//	│                  HTTP Transport Layer                   │
//	│  Middleware: request-id, logging, metrics, CORS,        │
//	│  rate-limit, tracing                                    │
//	├─────────────────────────────────────────────────────────┤
//	│                   Coordinator Layer                     │
//	│  (internal/service) - validation, fingerprint cache,    │
//	│  single-flight, concurrency ceiling                     │
//	├─────────────────────────────────────────────────────────┤
//	│                    Routing Layer                        │
//	│  (internal/pathfind, internal/cost, internal/assemble)  │
//	│  - Dijkstra / A* over (port, hops) states               │
//	│  - Yen's loopless alternatives                          │
//	│  - criterion cost model, route assembly and scoring     │
//	├─────────────────────────────────────────────────────────┤
//	│                     Graph Layer                         │
//	│  (internal/graphbuild, internal/spatial)                │
//	│  - kNN + canal + hub edges, immutable snapshots         │
//	├─────────────────────────────────────────────────────────┤
//	│                    Catalog Layer                        │
//	│  (internal/repository) - memory or PostgreSQL backend   │
//	└─────────────────────────────────────────────────────────┘
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: SEAROUTE_)
//  2. Config files (config.yaml, config/config.yaml, /etc/searoute/config.yaml)
//  3. Default values
//
// Key configuration options (environment variable format):
//
//	# Application
//	SEAROUTE_APP_NAME         - Service name (default: searoute)
//	SEAROUTE_APP_VERSION      - Service version
//	SEAROUTE_APP_ENVIRONMENT  - development, staging, production
//
//	# HTTP server
//	SEAROUTE_HTTP_PORT        - HTTP port (default: 8080)
//
//	# Port catalog
//	SEAROUTE_CATALOG_BACKEND   - memory or postgres (default: memory)
//	SEAROUTE_CATALOG_DATA_FILE - JSON seed for the memory backend
//
//	# Graph construction
//	SEAROUTE_GRAPH_K_NEAREST        - kNN degree (default: 8)
//	SEAROUTE_GRAPH_REBUILD_INTERVAL - periodic rebuild, 0 disables
//
//	# Caching
//	SEAROUTE_CACHE_ENABLED - enable route/port/validation caching
//	SEAROUTE_CACHE_DRIVER  - memory or redis
//
//	# Observability
//	SEAROUTE_LOG_LEVEL       - debug, info, warn, error
//	SEAROUTE_METRICS_ENABLED - Prometheus metrics server
//	SEAROUTE_TRACING_ENABLED - OpenTelemetry tracing
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the service stops accepting connections, waits for
// in-flight requests up to http.shutdown_timeout, then flushes telemetry
// and closes the cache and database pools.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"searoute/pkg/cache"
	"searoute/pkg/config"
	"searoute/pkg/database"
	"searoute/pkg/logger"
	"searoute/pkg/metrics"
	"searoute/pkg/ratelimit"
	"searoute/pkg/swagger"
	"searoute/pkg/telemetry"
	"searoute/services/route-svc/internal/assemble"
	"searoute/services/route-svc/internal/cost"
	"searoute/services/route-svc/internal/graphbuild"
	"searoute/services/route-svc/internal/handlers"
	"searoute/services/route-svc/internal/pathfind"
	"searoute/services/route-svc/internal/repository"
	"searoute/services/route-svc/internal/service"
)

func main() {
	cfg, err := config.NewLoader().Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:     cfg.Tracing.Enabled,
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Warn("failed to init telemetry, continuing without tracing", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Warn("failed to shutdown telemetry", "error", err)
				}
			}()
			logger.Info("telemetry initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.App.Name)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	// Каталог портов: postgres для продакшена, memory с JSON сидом для
	// разработки и тестов
	repo, cleanup, err := buildRepository(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize port catalog", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var routeCache *cache.RouteCache
	if cfg.Cache.Enabled {
		base, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Warn("failed to create cache, continuing without caching", "error", err)
		} else {
			defer base.Close()
			routeCache = cache.NewRouteCache(base, cache.RouteCacheOptions{
				RouteTTL:      cfg.Route.RouteCacheTTL,
				PortTTL:       cfg.Route.PortCacheTTL,
				ValidationTTL: cfg.Route.ValidationCacheTTL,
			})
			logger.Info("route cache initialized", "driver", cfg.Cache.Driver)
		}
	}

	// Первая сборка графа обязана удаться: без графа сервис бесполезен
	builder := graphbuild.NewBuilder(cfg.Graph, graphbuild.DefaultRiskTables())
	holder := graphbuild.NewHolder(builder, repo)
	if _, err := holder.Rebuild(ctx); err != nil {
		logger.Error("initial graph build failed", "error", err)
		os.Exit(1)
	}
	go holder.Run(ctx, cfg.Graph.RebuildInterval)

	model := cost.NewModel(cfg.Cost)
	svc := service.New(cfg, service.Deps{
		Repo:      repo,
		Graphs:    holder,
		Finder:    pathfind.NewFinder(model, cfg.Pathfinder),
		Assembler: assemble.NewAssembler(model, cfg.Cost),
		Routes:    routeCache,
	})

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(&ratelimit.Config{
			Requests:        cfg.RateLimit.Requests,
			Window:          cfg.RateLimit.Window,
			Strategy:        cfg.RateLimit.Strategy,
			Backend:         cfg.RateLimit.Backend,
			BurstSize:       cfg.RateLimit.BurstSize,
			CleanupInterval: cfg.RateLimit.CleanupInterval,
			RedisAddr:       cfg.RateLimit.RedisAddr,
		})
		if err != nil {
			logger.Warn("failed to create rate limiter, continuing without limits", "error", err)
		} else {
			defer limiter.Close()
		}
	}

	mux := http.NewServeMux()
	handlers.NewHandler(svc).Register(mux)
	swagger.RegisterRoutes(mux, nil, handlers.OpenAPISpec)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handlers.Chain(mux,
			handlers.RequestID,
			handlers.Logging,
			handlers.Metrics,
			handlers.CORS(cfg.HTTP.CORS),
			handlers.RateLimit(limiter),
			telemetry.HTTPMiddleware,
		),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartMetricsServer(cfg.Metrics.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("route service listening",
			"port", cfg.HTTP.Port,
			"environment", cfg.App.Environment,
			"version", cfg.App.Version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
	logger.Info("route service stopped")
}

// buildRepository создаёт каталог портов по конфигурации
func buildRepository(ctx context.Context, cfg *config.Config) (repository.PortRepository, func(), error) {
	switch cfg.Catalog.Backend {
	case "postgres":
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := database.RunMigrations(ctx, db.Pool(), &cfg.Database, repository.Migrations, repository.MigrationsDir); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		repo := repository.NewPostgresPortRepository(db)
		if err := seedCatalog(ctx, repo, cfg.Catalog.DataFile); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("seed port catalog: %w", err)
		}
		return repo, db.Close, nil

	default:
		repo, err := repository.NewMemoryPortRepositoryFromFile(cfg.Catalog.DataFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load port catalog from %s: %w", cfg.Catalog.DataFile, err)
		}
		return repo, func() {}, nil
	}
}

// seedCatalog заполняет пустую таблицу портов из JSON сида.
// Непустой каталог не трогается: данные в базе считаются первичными
func seedCatalog(ctx context.Context, repo *repository.PostgresPortRepository, dataFile string) error {
	if dataFile == "" {
		return nil
	}

	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	ports, skipped, err := repository.LoadCatalogFile(dataFile)
	if err != nil {
		return err
	}
	if err := repo.ReplaceAll(ctx, ports); err != nil {
		return err
	}

	logger.Info("port catalog seeded", "path", dataFile, "ports", len(ports), "skipped", skipped)
	return nil
}
