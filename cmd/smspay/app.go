package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hsh7097/MoneyTalk-sub002/internal/config"
	"github.com/hsh7097/MoneyTalk-sub002/internal/embedding"
	"github.com/hsh7097/MoneyTalk-sub002/internal/engine"
	"github.com/hsh7097/MoneyTalk-sub002/internal/llm"
	"github.com/hsh7097/MoneyTalk-sub002/internal/storage"
	"github.com/hsh7097/MoneyTalk-sub002/internal/telemetry"
)

// openStore opens and migrates the pattern database.
func openStore(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Connected to pattern database", "path", cfg.Database.Path)
	return store, nil
}

// buildPipeline wires the store, the embedder, the LLM extractor and the
// optional telemetry collector into a pipeline.
func buildPipeline(cfg *config.Config, store *storage.SQLiteStorage) (*engine.Pipeline, *embedding.OpenAI, error) {
	if cfg.Embedding.APIKey == "" {
		return nil, nil, fmt.Errorf("embedding API key not found in config or OPENAI_API_KEY environment variable")
	}
	embedder := embedding.NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.Model)

	extractor, err := llm.NewExtractor(cfg.LLM, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	deps := engine.Dependencies{
		Store:     store,
		Embedder:  embedder,
		Extractor: extractor,
		Logger:    slog.Default(),
	}
	if cfg.Telemetry.Enabled {
		collector, err := telemetry.NewHTTPCollector(cfg.Telemetry.Endpoint, cfg.Telemetry.Timeout, slog.Default())
		if err != nil {
			return nil, nil, err
		}
		deps.Telemetry = collector
	}

	pipeline, err := engine.NewPipeline(deps, cfg.Pipeline)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, embedder, nil
}

func closeStore(store *storage.SQLiteStorage) {
	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}
