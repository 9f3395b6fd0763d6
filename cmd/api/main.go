package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Meet-BS/form-scanner-poc/internal/analyzer"
	"github.com/Meet-BS/form-scanner-poc/internal/api"
	"github.com/Meet-BS/form-scanner-poc/internal/config"
	"github.com/Meet-BS/form-scanner-poc/internal/llm"
	"github.com/Meet-BS/form-scanner-poc/internal/observability"
	"github.com/Meet-BS/form-scanner-poc/internal/resilience"
	"github.com/Meet-BS/form-scanner-poc/internal/scanner"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(string(cfg.Env), cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting form scanner API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", string(cfg.Env)),
		zap.String("model", cfg.Gemini.Model),
	)

	// Model client carries its own credential and model configuration
	gemini, err := llm.NewGeminiClient(llm.Config{
		APIKey:       cfg.Gemini.APIKey,
		BaseURL:      cfg.Gemini.BaseURL,
		Model:        cfg.Gemini.Model,
		MaxTokens:    cfg.Gemini.MaxTokens,
		Timeout:      cfg.Gemini.Timeout,
		RateLimitRPM: cfg.Gemini.RateLimitRPM,
	})
	if err != nil {
		logger.Fatal("Failed to create model client", zap.Error(err))
	}

	metrics := observability.NewMetrics("formscanner")

	// Persistent endpoint failures open the circuit instead of queueing
	// doomed analysis requests.
	breaker := resilience.New(resilience.DefaultConfig("gemini"), logger)
	invoker := llm.NewGuardedClient(gemini, breaker, metrics)

	fetcher := scanner.NewFetcher(cfg.Fetcher)
	aggregator := scanner.NewAggregator(fetcher, logger)
	an := analyzer.New(invoker, logger)

	router := api.NewRouter(api.RouterConfig{
		Aggregator:   aggregator,
		Analyzer:     an,
		Metrics:      metrics,
		Logger:       logger,
		EnableCORS:   cfg.Server.EnableCORS,
		RateLimitRPM: cfg.Server.RateLimitRPM,
	})
	defer router.Close()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API server listening", zap.String("addr", cfg.Server.Addr()))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("Server error", zap.Error(err))

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			server.Close()
		}

		logger.Info("Server stopped gracefully")
	}
}

// initLogger creates a configured zap logger
func initLogger(env, level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if env == "production" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zcfg.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
