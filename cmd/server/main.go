package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/relaychat/internal/message"
	"github.com/Tyrowin/relaychat/internal/moderation"
	"github.com/Tyrowin/relaychat/internal/server"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	moderator, err := moderation.New(cfg.CensoredWords(), cfg.CensorCharacter())
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	if moderator != nil {
		log.Info("Censoring enabled", "words", len(cfg.CensoredWords()))
	}

	store := message.NewStore()
	hub := server.NewHub(message.NewFactory(store), log, server.WithModerator(moderator))
	go hub.Run()

	handlers := server.NewHandlers(cfg, hub, store, log)
	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(handlers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer, log)
	}()

	select {
	case err := <-serveErr:
		_ = hub.Shutdown(cfg.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	httpErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
	hubErr := hub.Shutdown(cfg.ShutdownTimeout)
	if httpErr != nil {
		return httpErr
	}
	return hubErr
}
