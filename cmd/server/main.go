package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appentitlement "github.com/varejo/backend/internal/application/entitlement"
	appvertical "github.com/varejo/backend/internal/application/vertical"
	domainentitlement "github.com/varejo/backend/internal/domain/entitlement"
	domaintenant "github.com/varejo/backend/internal/domain/tenant"
	domainvertical "github.com/varejo/backend/internal/domain/vertical"
	"github.com/varejo/backend/internal/infrastructure/cache"
	"github.com/varejo/backend/internal/infrastructure/config"
	"github.com/varejo/backend/internal/infrastructure/logger"
	"github.com/varejo/backend/internal/infrastructure/persistence"
	tenantscope "github.com/varejo/backend/internal/infrastructure/persistence/tenant"
	"github.com/varejo/backend/internal/infrastructure/telemetry"
	"github.com/varejo/backend/internal/interfaces/http/handler"
	"github.com/varejo/backend/internal/interfaces/http/middleware"
	"github.com/varejo/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Varejo Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize database connection
	gormLevel := gormlogger.Silent
	if cfg.Log.Level == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Install tenant isolation callbacks. Every tenant-scoped query from
	// here on is filtered by the tenant in the request context.
	tenantscope.EnableIsolation(db.DB, true)

	if tp.IsEnabled() && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.EnableDBTracing(db.DB, log); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Initialize Redis-backed entitlement cache
	redisStore, err := cache.NewRedisStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cache.WithRedisLogger(log))
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisStore.Close(); err != nil {
			log.Error("Error closing Redis connection", zap.Error(err))
		}
	}()
	log.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr()))

	// Entry retention is deliberately independent of the freshness TTL: the
	// store must keep the last known-good document for as long as the
	// degradation ladder can serve it.
	entryCache := cache.NewEntitlementCache(redisStore,
		cache.WithEntryTTL(cfg.Entitlement.EntryRetention),
		cache.WithEntitlementCacheLogger(log),
	)

	// Initialize repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	entitlementRepo := persistence.NewGormEntitlementRepository(db.DB)
	activationRepo := persistence.NewGormVerticalActivationRepository(db.DB)
	recordRepo := persistence.NewGormVerticalRecordRepository(db.DB)

	// Initialize application services
	entitlementService := appentitlement.NewService(entitlementRepo, entryCache,
		appentitlement.WithDegradePolicy(domainentitlement.DegradePolicy{
			BaseTTL:           cfg.Entitlement.TTL,
			RetryLadder:       cfg.Entitlement.RetryLadder,
			SalesDisableAfter: cfg.Entitlement.SalesDisableAfter,
		}),
		appentitlement.WithLogger(log),
	)

	registry := domainvertical.NewRegistry()
	migrator := domainvertical.NewMigrator()
	if err := appvertical.RegisterBuiltins(registry, migrator); err != nil {
		log.Fatal("Failed to register verticals", zap.Error(err))
	}
	verticalService := appvertical.NewService(registry, migrator, activationRepo, recordRepo, entitlementService, log)

	// Initialize HTTP handlers
	entitlementHandler := handler.NewEntitlementHandler(entitlementService)
	verticalHandler := handler.NewVerticalHandler(verticalService)
	systemHandler := handler.NewSystemHandler(db, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - OpenTelemetry spans per request
	// 4. Logger - Log requests
	// 5. CORS - Handle cross-origin requests
	engine.Use(middleware.RequestID(log))
	engine.Use(gin.Recovery())
	if tp.IsEnabled() {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(middleware.RequestLogger())

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Health endpoints (outside API versioning and tenant resolution)
	systemHandler.RegisterRoutes(engine)

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// JWT comes before tenant resolution so the tenant claim is available as
	// the lowest-precedence tenant signal
	r.Use(middleware.JWTAuth(middleware.JWTConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Optional: true,
	}))

	resolver := domaintenant.NewResolver(cfg.Tenant.BaseDomain, cfg.Tenant.DefaultTenant)
	tenantConfig := middleware.DefaultTenantConfig(resolver)
	tenantConfig.Logger = log
	tenantConfig.Validator = func(ctx context.Context, tenantID string) error {
		t, err := tenantRepo.FindByID(ctx, tenantID)
		if err != nil {
			return err
		}
		if !t.Active {
			return fmt.Errorf("tenant %s is deactivated", tenantID)
		}
		return nil
	}
	r.Use(middleware.TenantMiddleware(tenantConfig))

	r.Register(handler.EntitlementRoutes{Handler: entitlementHandler}).
		Register(handler.VerticalRoutes{
			Handler: verticalHandler,
			Checker: entitlementService,
			Sales:   entitlementService,
		})
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
