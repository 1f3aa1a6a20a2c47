package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/gemini-chat/cmd/mainconfig"
	"github.com/wolfman30/gemini-chat/internal/api/router"
	"github.com/wolfman30/gemini-chat/internal/app/bootstrap"
	"github.com/wolfman30/gemini-chat/internal/archive"
	"github.com/wolfman30/gemini-chat/internal/chat"
	appconfig "github.com/wolfman30/gemini-chat/internal/config"
	httpmiddleware "github.com/wolfman30/gemini-chat/internal/http/middleware"
	"github.com/wolfman30/gemini-chat/internal/observability/metrics"
	"github.com/wolfman30/gemini-chat/internal/users"
	"github.com/wolfman30/gemini-chat/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting gemini-chat API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.ChatStore,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	metricsHandler, chatMetrics := setupMetrics()

	// Storage
	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	sqlDB := openSQLDB(cfg.DatabaseURL, logger)
	if sqlDB != nil {
		defer func() { _ = sqlDB.Close() }()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	usersRepo := bootstrap.BuildUsersRepository(sqlDB, logger)
	var chatPool chat.PgxPool
	if pool != nil {
		chatPool = pool
	}
	store, err := bootstrap.BuildChatStore(cfg, chatPool, redisClient, usersRepo, logger)
	if err != nil {
		logger.Error("failed to build chat store", "error", err)
		os.Exit(1)
	}

	// Models and archive
	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	models, err := bootstrap.BuildModelSelector(ctx, cfg, awsCfg, chatMetrics, logger)
	if err != nil {
		logger.Error("failed to configure models", "error", err)
		os.Exit(1)
	}
	defer func() { _ = models.Close() }()

	orchestratorCfg := chat.OrchestratorConfig{
		ContextWindow:     cfg.ContextWindow,
		CompletionTimeout: cfg.CompletionTimeout,
		Metrics:           chatMetrics,
	}
	if cfg.ArchiveBucket != "" && awsCfg != nil {
		orchestratorCfg.Archiver = archive.NewStore(mainconfig.NewS3Client(*awsCfg, cfg), cfg.ArchiveBucket, logger.Logger)
		logger.Info("transcript archive enabled", "bucket", cfg.ArchiveBucket)
	}
	orchestrator := chat.NewOrchestrator(store, models.Selector, orchestratorCfg, logger)

	// Initialize handlers
	sessions := httpmiddleware.NewSessions(httpmiddleware.SessionConfig{
		Secret:     cfg.JWTSecret,
		CookieName: cfg.SessionCookieName,
		TTL:        cfg.SessionTTL,
		Domain:     cfg.CookieDomain,
		Secure:     cfg.IsProduction(),
	})
	chatHandler := chat.NewHandler(orchestrator, logger)
	usersHandler := users.NewHandler(usersRepo, sessions, logger)

	done := make(chan struct{})
	defer close(done)

	// Setup router
	routerCfg := &router.Config{
		Logger:             logger,
		Sessions:           sessions,
		ChatHandler:        chatHandler,
		UsersHandler:       usersHandler,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if cfg.RateLimitRPS > 0 {
		routerCfg.ChatRateLimit = httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, done)
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers the chat collectors on a private registry so the
// /metrics endpoint only exposes what this binary records.
func setupMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	chatMetrics := metrics.NewChatMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), chatMetrics
}

func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// openSQLDB opens the database/sql handle used by the account repository.
func openSQLDB(databaseURL string, logger *logging.Logger) *sql.DB {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		logger.Error("failed to open postgres", "error", err)
		return nil
	}
	return db
}

// writeTimeout leaves room for a cold model resolve plus one completion.
func writeTimeout(cfg *appconfig.Config) time.Duration {
	probes := time.Duration(len(cfg.Models)) * cfg.ProbeTimeout
	return cfg.CompletionTimeout + probes + 15*time.Second
}
