package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/competitiveedge/engine/config"
	httpDelivery "github.com/competitiveedge/engine/internal/delivery/http"
	"github.com/competitiveedge/engine/internal/infrastructure/cache"
	"github.com/competitiveedge/engine/internal/infrastructure/llm"
	"github.com/competitiveedge/engine/internal/templates"
	"github.com/competitiveedge/engine/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger, closeLog := config.SetupLogger(cfg.Logging.File, level)
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting competitive edge engine",
		"version", httpDelivery.Version,
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
	)

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache(cache.Options{MaxEntries: cfg.Cache.MaxEntries})
	defer memoryCache.Close()

	client, err := llm.NewClient(llm.Config{
		Provider:        cfg.LLM.Provider,
		ChatProvider:    cfg.LLM.ChatProvider,
		APIKey:          cfg.LLM.APIKey,
		AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
		BaseURL:         cfg.LLM.BaseURL,
		OllamaHost:      cfg.LLM.OllamaHost,
		EmbeddingModel:  cfg.LLM.EmbeddingModel,
		JudgeModel:      cfg.LLM.JudgeModel,
		ExtractionModel: cfg.LLM.ExtractionModel,
		Limits: llm.Limits{
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
			Burst:             cfg.LLM.Burst,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	logger.Info("llm configured",
		"provider", cfg.LLM.Provider,
		"chat_provider", cfg.LLM.ChatProvider,
		"embedding_model", cfg.LLM.EmbeddingModel,
		"judge_model", cfg.LLM.JudgeModel,
		"extraction_model", cfg.LLM.ExtractionModel,
	)

	embedder := usecase.NewCachedEmbedder(client, memoryCache, usecase.CachedEmbedderConfig{
		Model: cfg.LLM.EmbeddingModel,
		TTL:   cfg.Cache.TTL,
	}, logger)

	registry, err := templates.NewRegistry(logger)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	// Initialize usecase layer
	matcher := usecase.NewMatchingService(embedder, client, usecase.MatchConfig{
		MinConfidenceThreshold: cfg.Matching.MinConfidenceThreshold,
		MaxCandidates:          cfg.Matching.MaxCandidates,
		MaxConcurrency:         cfg.Matching.MaxConcurrency,
		EnableDebugLogging:     cfg.Matching.EnableDebugLogging,
	}, logger)

	logger.Info("matching configured",
		"threshold", cfg.Matching.MinConfidenceThreshold,
		"max_candidates", cfg.Matching.MaxCandidates,
		"debug", cfg.Matching.EnableDebugLogging,
	)

	handler := httpDelivery.NewHandler(httpDelivery.Services{
		Normalizer: usecase.NewNormalizer(logger),
		Comparator: usecase.NewComparator(logger),
		Matcher:    matcher,
		Aggregator: usecase.NewAlertAggregator(logger),
		Extractor:  client,
		Templates:  registry,
	}, logger)

	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
