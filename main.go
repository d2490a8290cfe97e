package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minimail/config"
	"minimail/handlers/api"
	"minimail/server"
	"minimail/utils"
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.toml"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	utils.Configure(cfg.Log.Level, cfg.Log.Pretty)
	utils.Log.Info("Initializing minimail for %s...", cfg.Identity.Email)

	// Initialize i18n system
	if err := utils.InitI18n(); err != nil {
		utils.Log.Error("Failed to initialize i18n: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, api.NewMailerFromConfig(cfg))
	if err != nil {
		utils.Log.Error("Failed to build server: %v", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			utils.Log.Error("Error starting server: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		utils.Log.Info("Shutting down...")
		if err := srv.Shutdown(10 * time.Second); err != nil {
			utils.Log.Error("Shutdown error: %v", err)
		}
	}
}
