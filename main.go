package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SigNoz/storefront-go-app/internal/apiclient"
	"github.com/SigNoz/storefront-go-app/internal/cart"
	"github.com/SigNoz/storefront-go-app/internal/checkout"
	"github.com/SigNoz/storefront-go-app/internal/db"
	"github.com/SigNoz/storefront-go-app/internal/logging"
	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"github.com/SigNoz/storefront-go-app/internal/session"
	"github.com/SigNoz/storefront-go-app/internal/web"
	"github.com/SigNoz/storefront-go-app/pkg/config"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Initialize OpenTelemetry metrics
	appMetrics := metrics.NewNoop()
	if cfg.OTELEnabled {
		m, meterProvider, err := metrics.InitMetrics(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize metrics", zap.Error(err))
		}
		appMetrics = m
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := meterProvider.Shutdown(shutdownCtx); err != nil {
				logger.Error("error shutting down meter provider", zap.Error(err))
			}
		}()
	}

	// Initialize session store
	store, err := newSessionStore(ctx, cfg, appMetrics, logger)
	if err != nil {
		logger.Fatal("failed to initialize session store", zap.String("backend", cfg.SessionBackend), zap.Error(err))
	}
	defer store.Close()

	janitor := session.StartJanitor(store, time.Minute, appMetrics, logger)
	defer janitor.Stop()

	// Storefront API client
	client := apiclient.New(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithMetrics(appMetrics),
		apiclient.WithLogger(logger.Named("apiclient")),
	)

	baskets := cart.NewRegistry(cart.RegistryConfig{
		Submitter:       client,
		Owner:           cfg.StoreOwner,
		IdleTimeout:     cfg.SessionTTL,
		MonitorInterval: cfg.CartMonitorInterval,
		CheckoutOptions: []checkout.Option{checkout.WithMetrics(appMetrics)},
	}, appMetrics, logger)
	defer baskets.Close()

	// Initialize app
	app, err := web.NewApp(cfg, store, baskets, client, appMetrics, logger)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	// Setup router
	router := mux.NewRouter()
	app.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      otelhttp.NewHandler(router, cfg.OTELServiceName),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.AppPort),
			zap.String("api_base_url", cfg.APIBaseURL),
			zap.String("session_backend", cfg.SessionBackend),
			zap.String("otlp_endpoint", cfg.OTELExporterOTLPEndpoint),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited")
}

// newSessionStore builds the store selected by SESSION_BACKEND
func newSessionStore(ctx context.Context, cfg *config.Config, m *metrics.AppMetrics, logger *zap.Logger) (session.Store, error) {
	sessionCfg := session.Config{TTL: cfg.SessionTTL}

	switch cfg.SessionBackend {
	case "memory", "":
		return session.NewMemoryStore(sessionCfg), nil
	case "redis":
		return session.NewRedisStoreFromURL(cfg.RedisURL, sessionCfg, logger)
	case "mysql":
		database, err := db.NewDB(cfg.GetDSN(), cfg.OTELServiceName, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Initialize schema
		schemaSQL, err := os.ReadFile("schema.sql")
		if err != nil {
			logger.Warn("could not read schema.sql, assuming schema already exists", zap.Error(err))
		} else if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
			logger.Warn("could not initialize schema, assuming schema already exists", zap.Error(err))
		}
		return session.NewSQLStore(database, m, sessionCfg), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
