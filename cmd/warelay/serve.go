package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"warelay/internal/config"
	"warelay/internal/domain"
	"warelay/internal/knowledge"
	"warelay/internal/provider"
	"warelay/internal/relay"
	"warelay/internal/server"
	"warelay/internal/whatsapp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long:  "Starts the webhook server and the dispatch pipeline. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	configureLogger(cfg.General.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retriever, closeStore, err := buildRetriever(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	callTimeout := time.Duration(cfg.General.RequestTimeoutSeconds) * time.Second

	completer := provider.NewGroq(provider.GroqConfig{
		APIKey:      cfg.Provider.APIKey,
		APIBase:     cfg.Provider.APIBase,
		Model:       cfg.Provider.Model,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
		SearchTopK:  cfg.Knowledge.SearchTopK,
		Retriever:   retriever,
		Timeout:     callTimeout,
		Logger:      logger,
	})

	sender := whatsapp.NewClient(whatsapp.ClientConfig{
		Config:  cfg.WhatsApp,
		Timeout: callTimeout,
		Logger:  logger,
	})

	dispatcher := relay.NewDispatcher(relay.DispatcherConfig{
		Completer:   completer,
		Sender:      sender,
		Logger:      logger,
		CallTimeout: callTimeout,
	})

	srv := server.New(server.Config{
		Config:     cfg,
		Dispatcher: dispatcher,
		Sender:     sender,
		Logger:     logger,
	})

	if err := completer.Healthy(ctx); err != nil {
		logger.Warn("completion provider unhealthy at startup", "err", err)
	} else {
		logger.Info("completion provider healthy", "model", cfg.Provider.Model)
	}

	logger.Info("relay started", "version", version, "knowledge", cfg.Knowledge.Enabled)
	return srv.Start(ctx)
}

// buildRetriever selects the retrieval variant from config: the SQLite
// engine when knowledge is enabled, the no-op stub otherwise.
func buildRetriever(ctx context.Context, cfg *config.Config) (domain.Retriever, func(), error) {
	if !cfg.Knowledge.Enabled {
		return knowledge.NewNoop(), func() {}, nil
	}

	store, err := knowledge.NewSQLiteStore(cfg.Knowledge.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("knowledge store: %w", err)
	}

	engine := knowledge.NewEngine(knowledge.EngineConfig{
		Store:     store,
		ChunkSize: cfg.Knowledge.ChunkSize,
		Overlap:   cfg.Knowledge.ChunkOverlap,
		Logger:    logger,
	})

	if cfg.Knowledge.SeedPath != "" {
		if err := knowledge.Seed(ctx, engine, cfg.Knowledge.SeedPath, logger); err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	return engine, func() { store.Close() }, nil
}
