package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"warelay/internal/config"
	"warelay/internal/knowledge"
)

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}
	cmd.AddCommand(kbAddCmd())
	cmd.AddCommand(kbSearchCmd())
	cmd.AddCommand(kbListCmd())
	return cmd
}

// openEngine builds the SQLite-backed engine regardless of the enabled
// flag, so documents can be loaded before retrieval is switched on.
func openEngine(cfg *config.Config) (*knowledge.Engine, *knowledge.SQLiteStore, error) {
	dbPath := cfg.Knowledge.DBPath
	if dbPath == "" {
		return nil, nil, fmt.Errorf("knowledge.dbPath is not configured")
	}
	store, err := knowledge.NewSQLiteStore(config.ExpandPath(dbPath), logger)
	if err != nil {
		return nil, nil, err
	}
	engine := knowledge.NewEngine(knowledge.EngineConfig{
		Store:     store,
		ChunkSize: cfg.Knowledge.ChunkSize,
		Overlap:   cfg.Knowledge.ChunkOverlap,
		Logger:    logger,
	})
	return engine, store, nil
}

func kbAddCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Add a document to the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			if name == "" {
				name = args[0]
			}

			engine, store, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := engine.Add(context.Background(), string(data), map[string]string{"name": name})
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "document name (default: file path)")
	return cmd
}

func kbSearchCmd() *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, store, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			query := ""
			for i, a := range args {
				if i > 0 {
					query += " "
				}
				query += a
			}

			snippets, err := engine.Search(context.Background(), query, topK)
			if err != nil {
				return err
			}
			if len(snippets) == 0 {
				fmt.Println("no results")
				return nil
			}
			for _, s := range snippets {
				fmt.Printf("%.2f  %s\n      %s\n", s.Score, s.ID, s.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 3, "number of results")
	return cmd
}

func kbListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List documents in the knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, store, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			docs, err := engine.ListDocuments(context.Background())
			if err != nil {
				return err
			}
			for _, d := range docs {
				fmt.Printf("%s  %s  (%d chunks, %d bytes)\n", d.ID, d.Name, d.ChunkCount, d.Size)
			}
			return nil
		},
	}
}
