package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pokerdeck/planning-poker-backend/internal/admission"
	"github.com/pokerdeck/planning-poker-backend/internal/config"
	"github.com/pokerdeck/planning-poker-backend/internal/httpapi"
	"github.com/pokerdeck/planning-poker-backend/internal/registry"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	reg := registry.NewRegistry(ctx, logger)
	adm := admission.NewService(reg, logger)

	// Build the router *with* the registry and admission service injected
	handler := httpapi.SetupRoutes(reg, adm, logger)

	go reapLoop(ctx, reg, cfg, logger)

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// reapLoop periodically evicts rooms that are empty and idle.
func reapLoop(ctx context.Context, reg *registry.Registry, cfg config.Config, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reply := make(chan int, 1)
			reg.Inbox() <- registry.ReapIdle{IdleFor: cfg.RoomTTL, Reply: reply}
			if n := <-reply; n > 0 {
				logger.Info("reaped idle rooms", zap.Int("count", n))
			}
		}
	}
}
