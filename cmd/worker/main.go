package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/filmila/adapters/event"
	"github.com/khoahotran/filmila/adapters/media_storage"
	"github.com/khoahotran/filmila/adapters/payment"
	"github.com/khoahotran/filmila/adapters/persistence"
	entitlementUC "github.com/khoahotran/filmila/internal/application/usecase/entitlement"
	filmUC "github.com/khoahotran/filmila/internal/application/usecase/film"
	"github.com/khoahotran/filmila/internal/config"
	"github.com/khoahotran/filmila/pkg/logger"
	"github.com/khoahotran/filmila/pkg/tracing"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env, zap.String("service", "filmila-worker"))
	defer appLogger.Sync()
	appLogger.Info("Starting Filmila Worker...")

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "filmila-worker")
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	defer tp.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	dbPool, err := persistence.NewPostgresPool(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot init Kafka", err)
	}
	defer kafkaClient.Close()

	// Cloudinary Uploader
	uploader, err := media_storage.NewCloudinaryAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize uploader", err)
	}

	processor, err := payment.NewStripeProcessor(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize payment processor", err)
	}

	// Repositories
	filmRepo := persistence.NewPostgresFilmRepo(dbPool, appLogger)
	purchaseRepo := persistence.NewPostgresPurchaseRepo(dbPool, appLogger)

	// Worker Use Cases
	processFilmUC := filmUC.NewProcessFilmUseCase(filmRepo, uploader, appLogger)
	settleUC := entitlementUC.NewSettlePurchaseUseCase(purchaseRepo, kafkaClient, appLogger)
	reconcileUC := entitlementUC.NewReconcileUseCase(purchaseRepo, processor, settleUC, appLogger, entitlementUC.ReconcileOptions{
		After:        cfg.Purchase.ReconcileAfter,
		BatchSize:    cfg.Purchase.ReconcileBatch,
		ReplayWindow: cfg.Purchase.ReplayWindow,
		AbandonAfter: cfg.Purchase.AbandonAfter,
	})

	// Kafka Consumer
	filmReader := event.NewFilmEventReader(cfg)
	defer filmReader.Close()
	consumer := event.NewFilmEventConsumer(filmReader, processFilmUC.Execute, appLogger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx); err != nil {
			appLogger.Error("Film event consumer stopped", err)
		}
	}()
	go func() {
		defer wg.Done()
		runReconciler(ctx, reconcileUC, cfg.Purchase.ReconcileInterval, appLogger)
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down worker...")
	wg.Wait()
}

func runReconciler(ctx context.Context, uc *entitlementUC.ReconcileUseCase, interval time.Duration, log logger.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Reconciler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := uc.Execute(ctx); err != nil {
				log.Error("Reconciliation pass failed", err)
			}
		}
	}
}
