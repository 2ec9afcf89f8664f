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

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/borrowhood/rto-engine/internal/config"
	"github.com/borrowhood/rto-engine/internal/handler"
	"github.com/borrowhood/rto-engine/internal/notifier"
	"github.com/borrowhood/rto-engine/internal/processor"
	"github.com/borrowhood/rto-engine/internal/repository"
	"github.com/borrowhood/rto-engine/internal/service"
	"github.com/borrowhood/rto-engine/pkg/response"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	settlementNotifier, err := notifier.NewKafkaNotifier(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("kafka producer init failed", zap.Error(err))
	}
	defer settlementNotifier.Close()

	processorClient := processor.NewClient(cfg.Processor, logger)

	contractRepo := repository.NewContractRepository(db)
	listingRepo := repository.NewListingRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	contractService := service.NewContractService(contractRepo, listingRepo, redisClient, settlementNotifier, cfg, logger)
	paymentService := service.NewPaymentService(contractRepo, profileRepo, processorClient, redisClient, settlementNotifier, cfg, logger)

	contractHandler := handler.NewContractHandler(contractService, paymentService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(contractHandler, healthHandler, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zcfg.Build()
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(contractHandler *handler.ContractHandler, healthHandler *handler.HealthHandler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/contracts", contractHandler.CreateContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}", contractHandler.GetContract).Methods("GET")
	api.HandleFunc("/contracts/{contractId}/approve", contractHandler.ApproveContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/decline", contractHandler.DeclineContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/cancel", contractHandler.CancelContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/payment", contractHandler.MakePayment).Methods("POST")

	return router
}
