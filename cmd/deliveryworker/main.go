package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"daonbridge/internal/config"
	"daonbridge/internal/infra/db"
	"daonbridge/internal/infra/ledger"
	"daonbridge/internal/infra/logging"
	"daonbridge/internal/infra/metrics"
	"daonbridge/internal/infra/webhooks"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deliveries := db.NewDeliveryRepository(store.DB)
	hooks := db.NewWebhookRepository(store.DB)
	worker := webhooks.NewWorker(deliveries, hooks, webhooks.WorkerConfig{
		Workers:        cfg.DeliveryWorkers,
		PollInterval:   cfg.DeliveryPollInterval(),
		AttemptTimeout: cfg.DeliveryTimeout(),
		MaxAttempts:    cfg.DeliveryMaxAttempts,
		DisableAfter:   cfg.WebhookDisableAfter,
	}, logr)
	go worker.Run(ctx)
	logr.Info("delivery worker started", zap.Int("workers", cfg.DeliveryWorkers))

	if cfg.LedgerBaseURL != "" {
		client, err := ledger.NewClient(cfg.LedgerBaseURL, cfg.LedgerChainID, cfg.LedgerTimeout(), nil)
		if err != nil {
			logr.Warn("ledger reconciler disabled", zap.Error(err))
		} else {
			reconciler := &ledger.Reconciler{
				Client:    client,
				Content:   db.NewContentRepository(store.DB),
				Interval:  cfg.ReconcileInterval(),
				BatchSize: cfg.ReconcileBatchSize,
				Log:       logr,
			}
			go reconciler.Run(ctx)
			logr.Info("ledger reconciler started")
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	logr.Info("metrics endpoint listening", zap.String("addr", cfg.MetricsAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Fatal("metrics server failed", zap.Error(err))
	}
}
