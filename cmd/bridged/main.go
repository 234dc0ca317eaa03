package main

import (
	"context"
	"log"

	"daonbridge/internal/config"
	"daonbridge/internal/infra/db"
	httpinfra "daonbridge/internal/infra/http"
	"daonbridge/internal/infra/logging"
	"daonbridge/internal/infra/metrics"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logr, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logr.Sync()

	store, err := db.NewStore(cfg)
	if err != nil {
		logr.Fatal("failed to init store", zap.Error(err))
	}
	if err := store.Migrate(); err != nil {
		logr.Fatal("failed to migrate schema", zap.Error(err))
	}

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httpinfra.NewServer(cfg, store, logr)
	srv.Start(ctx)

	logr.Info("bridge api listening", zap.String("addr", cfg.HTTPAddr))
	if err := srv.Run(); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}
