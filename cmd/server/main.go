package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/filmila/adapters/event"
	httpAdapter "github.com/khoahotran/filmila/adapters/http"
	"github.com/khoahotran/filmila/adapters/media_storage"
	"github.com/khoahotran/filmila/adapters/payment"
	"github.com/khoahotran/filmila/adapters/persistence"
	authUC "github.com/khoahotran/filmila/internal/application/usecase/auth"
	entitlementUC "github.com/khoahotran/filmila/internal/application/usecase/entitlement"
	filmUC "github.com/khoahotran/filmila/internal/application/usecase/film"
	"github.com/khoahotran/filmila/internal/config"
	"github.com/khoahotran/filmila/pkg/auth"
	"github.com/khoahotran/filmila/pkg/logger"
	"github.com/khoahotran/filmila/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env, zap.String("service", "filmila-api"))
	defer appLogger.Sync()
	appLogger.Info("Start Filmila API Server...", zap.String("env", cfg.App.Env))

	tp, err := tracing.NewTracerProvider(cfg, appLogger, "filmila-api")
	if err != nil {
		appLogger.Fatal("cannot init tracer", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", err)
		}
	}()

	// Initialize dependencies
	dbPool, err := persistence.NewPostgresPool(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Postgres", err)
	}
	defer dbPool.Close()

	redisClient, err := persistence.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot connect Redis", err)
	}
	defer redisClient.Close()

	kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("cannot init Kafka", err)
	}
	defer kafkaClient.Close()

	// Repositories
	userRepo := persistence.NewPostgresUserRepo(dbPool, appLogger)
	filmRepo := persistence.NewPostgresFilmRepo(dbPool, appLogger)
	purchaseRepo := persistence.NewPostgresPurchaseRepo(dbPool, appLogger)
	revocations := persistence.NewRedisRevocationStore(redisClient)

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	uploader, err := media_storage.NewCloudinaryAdapter(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize uploader", err)
	}
	contentStore, err := media_storage.NewS3ContentStore(context.Background(), cfg.Storage, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize content store", err)
	}
	processor, err := payment.NewStripeProcessor(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize payment processor", err)
	}
	verifier := payment.NewStripeWebhookVerifier(cfg.Stripe.WebhookSecret)

	// Use Cases
	registerUseCase := authUC.NewRegisterUseCase(userRepo, jwtSvc, appLogger)
	loginUseCase := authUC.NewLoginUseCase(userRepo, jwtSvc, appLogger)
	logoutUseCase := authUC.NewLogoutUseCase(revocations, jwtSvc)
	profileUseCase := authUC.NewGetProfileUseCase(userRepo)

	uploadFilmUseCase := filmUC.NewUploadFilmUseCase(filmRepo, contentStore, uploader, kafkaClient, cfg.Stripe.Currency, appLogger)
	publishFilmUseCase := filmUC.NewPublishFilmUseCase(filmRepo, kafkaClient, appLogger)
	listFilmsUseCase := filmUC.NewListPublishedFilmsUseCase(filmRepo)
	listOwnFilmsUseCase := filmUC.NewListOwnFilmsUseCase(filmRepo)
	getFilmUseCase := filmUC.NewGetFilmUseCase(filmRepo)
	feedUseCase := filmUC.NewReleasesFeedUseCase(filmRepo, cfg.App.BaseURL, appLogger)

	settleUseCase := entitlementUC.NewSettlePurchaseUseCase(purchaseRepo, kafkaClient, appLogger)
	checkAccessUseCase := entitlementUC.NewCheckAccessUseCase(filmRepo, purchaseRepo)
	streamUseCase := entitlementUC.NewStreamContentUseCase(checkAccessUseCase, contentStore, appLogger)
	requestPurchaseUseCase := entitlementUC.NewRequestPurchaseUseCase(
		filmRepo, purchaseRepo, processor, settleUseCase, kafkaClient, appLogger,
		entitlementUC.PurchaseOptions{
			AwaitWindow:   cfg.Purchase.AwaitWindow,
			AwaitInterval: cfg.Purchase.AwaitInterval,
			ChargeTimeout: cfg.Purchase.ChargeTimeout,
		},
	)
	listPurchasesUseCase := entitlementUC.NewListPurchasesUseCase(purchaseRepo)
	getPurchaseUseCase := entitlementUC.NewGetPurchaseUseCase(purchaseRepo)

	// HTTP Handlers
	authHandler := httpAdapter.NewAuthHandler(registerUseCase, loginUseCase, logoutUseCase, profileUseCase, appLogger)
	filmHandler := httpAdapter.NewFilmHandler(
		uploadFilmUseCase,
		publishFilmUseCase,
		listFilmsUseCase,
		listOwnFilmsUseCase,
		getFilmUseCase,
		appLogger,
	)
	purchaseHandler := httpAdapter.NewPurchaseHandler(
		requestPurchaseUseCase,
		checkAccessUseCase,
		streamUseCase,
		listPurchasesUseCase,
		getPurchaseUseCase,
		appLogger,
	)
	webhookHandler := httpAdapter.NewWebhookHandler(verifier, settleUseCase, appLogger)
	feedHandler := httpAdapter.NewFeedHandler(feedUseCase, appLogger)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		AuthHandler:     authHandler,
		FilmHandler:     filmHandler,
		PurchaseHandler: purchaseHandler,
		WebhookHandler:  webhookHandler,
		FeedHandler:     feedHandler,
		JWTService:      jwtSvc,
		Revocations:     revocations,
		AuthLimiter:     httpAdapter.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, 10*time.Minute),
		Logger:          appLogger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Shutting down server", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
}
