package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fieldpulse/copilot/internal/agents"
	"github.com/fieldpulse/copilot/internal/circuitbreaker"
	"github.com/fieldpulse/copilot/internal/config"
	"github.com/fieldpulse/copilot/internal/dataaccess"
	"github.com/fieldpulse/copilot/internal/health"
	"github.com/fieldpulse/copilot/internal/httpapi"
	_ "github.com/fieldpulse/copilot/internal/metrics" // register collectors
	"github.com/fieldpulse/copilot/internal/reasoning"
	"github.com/fieldpulse/copilot/internal/registry"
	"github.com/fieldpulse/copilot/internal/routing"
	"github.com/fieldpulse/copilot/internal/session"
	"github.com/fieldpulse/copilot/internal/supervisor"
	"github.com/fieldpulse/copilot/internal/tracing"
	"github.com/fieldpulse/copilot/internal/transcript"
)

func main() {
	configPath := flag.String("config", "", "path to copilot.yaml (defaults to COPILOT_CONFIG or config/copilot.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := tracing.Initialize(tracing.Config{
		Enabled:  cfg.Tracing.Enabled,
		Endpoint: cfg.Tracing.Endpoint,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Capability catalog: built-in unless a YAML catalog is configured.
	reg := registry.Default()
	if cfg.Routing.CatalogPath != "" {
		reg, err = registry.Load(cfg.Routing.CatalogPath)
		if err != nil {
			logger.Fatal("Failed to load capability catalog",
				zap.String("path", cfg.Routing.CatalogPath),
				zap.Error(err),
			)
		}
	}
	logger.Info("Capability catalog loaded", zap.Int("agents", reg.Len()))

	// Intent classification over the configured reasoning provider.
	reasoner, err := reasoning.NewClient(cfg.Reasoning)
	if err != nil {
		logger.Fatal("Failed to initialize reasoning client", zap.Error(err))
	}
	classifyBreaker := circuitbreaker.New("reasoning", circuitbreaker.DefaultConfig(), logger)
	classifier := routing.NewClassifier(reasoner, classifyBreaker, cfg.Routing.ClassifyTimeout, logger)

	// Data access for the transcript fallback chain.
	analytical, err := dataaccess.NewPostgresAnalytical(cfg.Analytical, logger)
	if err != nil {
		logger.Fatal("Failed to connect to analytical store", zap.Error(err))
	}
	transcribe := dataaccess.NewHTTPTranscribe(cfg.Transcribe, logger)
	resolver := transcript.NewResolver(analytical, transcribe, cfg.Transcript, logger)

	// Agent runtime invoker and the supervisor itself.
	invoker := agents.NewHTTPInvoker(cfg.AgentHTTP, reg.Names(), logger)
	executor := supervisor.NewExecutor(reg, invoker, cfg.Routing.AgentRate, logger)
	sup := supervisor.New(reg, classifier, resolver, executor, logger)

	// Conversation history store. Routing works without it.
	sessions, err := session.NewManager(cfg.Session, logger)
	if err != nil {
		logger.Warn("Session store unavailable, continuing without history", zap.Error(err))
		sessions = nil
	}

	hm := health.NewManager(logger)
	hm.Register(health.NewPostgresChecker(analytical.DB(), true))
	if cfg.AgentHTTP.BaseURL != "" {
		hm.Register(health.NewAgentRuntimeChecker(cfg.AgentHTTP.BaseURL, true))
	}
	if sessions != nil {
		hm.Register(health.NewRedisChecker(sessions.Client(), false))
	}

	// Admin surface: health and metrics.
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("/healthz", hm.LivenessHandler())
	adminMux.HandleFunc("/readyz", hm.ReadinessHandler())
	adminMux.Handle("/metrics", promhttp.Handler())
	adminServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.AdminPort),
		Handler:      adminMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("Admin HTTP server listening", zap.Int("port", cfg.Server.AdminPort))
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Admin HTTP server failed", zap.Error(err))
		}
	}()

	// API surface.
	apiMux := http.NewServeMux()
	httpapi.NewRouteHandler(sup, sessions, cfg.Server.RequestTimeout, logger).RegisterRoutes(apiMux)
	if sessions != nil {
		httpapi.NewSessionHandler(sessions, logger).RegisterRoutes(apiMux)
	}
	apiServer := &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.Server.Port),
		Handler:     apiMux,
		IdleTimeout: 120 * time.Second,
	}
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Hot-reload for operational tunables; a missing config file just
	// means nothing to watch.
	if watcher, err := config.NewWatcher(resolveConfigPath(*configPath), logger); err == nil {
		watcher.Start()
		defer watcher.Stop()
	} else {
		logger.Warn("Config hot-reload disabled", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API server shutdown error", zap.Error(err))
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Admin server shutdown error", zap.Error(err))
	}
	if err := analytical.Close(); err != nil {
		logger.Warn("Analytical store close error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("Tracer shutdown error", zap.Error(err))
	}
}

// resolveConfigPath mirrors the fallback order of config.Load.
func resolveConfigPath(path string) string {
	if path == "" {
		path = os.Getenv("COPILOT_CONFIG")
	}
	if path == "" {
		path = "config/copilot.yaml"
	}
	return path
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	return zc.Build()
}
