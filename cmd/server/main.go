package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-service/config"
	"commerce-service/internal/api"
	"commerce-service/internal/broker"
	"commerce-service/internal/redisclient"
	"commerce-service/internal/service"
	"commerce-service/internal/store"
	"commerce-service/internal/util"
	"commerce-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.ServiceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting commerce service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(cfg.Server.ServiceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

	eventPublisher := broker.NewEventPublisher(producer, broker.Topics{
		OrderCreated:     cfg.Kafka.TopicOrderCreated,
		StockReservation: cfg.Kafka.TopicStockReservation,
		StockRelease:     cfg.Kafka.TopicStockRelease,
		ProductUpdated:   cfg.Kafka.TopicProductUpdated,
	})

	productCache := service.NewProductCache(redisClient, db, cfg.Business.ProductCacheTTL)
	orderService := service.NewOrderService(db, db, db, eventPublisher, redisClient, cfg.Business.IdempotencyTTL)
	productService := service.NewProductService(db, productCache, eventPublisher)
	reconciler := service.NewStockReconciler(db, productCache, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	reservationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStockReservation, cfg.Kafka.ReservationGroup,
		broker.WithDeadLetter(producer, cfg.Kafka.DeadLetterTopic(cfg.Kafka.TopicStockReservation)),
		broker.WithMaxRetries(cfg.Kafka.MaxRetries))
	releaseConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStockRelease, cfg.Kafka.ReleaseGroup,
		broker.WithDeadLetter(producer, cfg.Kafka.DeadLetterTopic(cfg.Kafka.TopicStockRelease)),
		broker.WithMaxRetries(cfg.Kafka.MaxRetries))

	stockWorker := worker.NewStockWorker(reservationConsumer, releaseConsumer, reconciler)
	go func() {
		if err := stockWorker.Start(workerCtx); err != nil {
			logger.Error("Stock worker error", zap.Error(err))
		}
	}()

	if cfg.Business.LowStockWorkerEnabled {
		monitor := service.NewLowStockMonitor(db, redisClient, cfg.Business.LowStockLockTTL)
		lowStockWorker := worker.NewLowStockWorker(monitor, cfg.Business.LowStockScanInterval)
		go func() {
			if err := lowStockWorker.Start(workerCtx); err != nil {
				logger.Error("Low stock worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(orderService, productService, map[string]api.Pinger{
		"postgres": db,
		"redis":    redisClient,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := stockWorker.Stop(); err != nil {
		logger.Error("Failed to stop stock worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
