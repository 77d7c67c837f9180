package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"warelay/internal/provider"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration and provider health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := loadConfig()
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false, "err", err)
				return err
			}
			logger.Info("config", "path", cfgPath, "loaded", true)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			completer := provider.NewGroq(provider.GroqConfig{
				APIKey:  cfg.Provider.APIKey,
				APIBase: cfg.Provider.APIBase,
				Model:   cfg.Provider.Model,
				Logger:  logger,
			})
			if err := completer.Healthy(ctx); err != nil {
				logger.Warn("provider", "model", cfg.Provider.Model, "healthy", false, "err", err)
			} else {
				logger.Info("provider", "model", cfg.Provider.Model, "healthy", true)
			}

			logger.Info("whatsapp",
				"phoneNumberId", cfg.WhatsApp.PhoneNumberID != "",
				"accessToken", cfg.WhatsApp.AccessToken != "",
				"verifyToken", cfg.WhatsApp.VerifyToken != "",
			)
			logger.Info("knowledge", "enabled", cfg.Knowledge.Enabled, "dbPath", cfg.Knowledge.DBPath)
			return nil
		},
	}
}
