package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chama-ledger.backend/internal/config"
	"chama-ledger.backend/internal/infrastructure/datasources/postgres"
	"chama-ledger.backend/internal/infrastructure/gateway"
	"chama-ledger.backend/internal/infrastructure/jobs"
	"chama-ledger.backend/internal/infrastructure/metrics"
	"chama-ledger.backend/internal/infrastructure/models"
	"chama-ledger.backend/internal/infrastructure/repositories"
	"chama-ledger.backend/internal/interfaces/http/handlers"
	"chama-ledger.backend/internal/interfaces/http/middleware"
	"chama-ledger.backend/internal/usecases"
	"chama-ledger.backend/pkg/jwt"
	"chama-ledger.backend/pkg/logger"
	"chama-ledger.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		sqlDB, err := postgres.NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewGormDB(sqlDB)
	}
	migrateDB = func(db *gorm.DB) error { return db.AutoMigrate(models.All()...) }
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	defer logger.Sync()
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Redis backs the leaderboard cache and idempotent response replay
	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if cfg.Database.AutoMigrate {
		if err := migrateDB(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info(context.Background(), "Database schema migrated")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewMetrics(registry)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Initialize repositories
	walletRepo := repositories.NewWalletRepository(db)
	txRepo := repositories.NewTransactionRepository(db)
	entryRepo := repositories.NewLedgerEntryRepository(db)
	memberRepo := repositories.NewChamaMemberRepository(db)
	boardRepo := repositories.NewLeaderboardRepository(db)
	uow := repositories.NewUnitOfWork(db)

	if cfg.Ledger.PlatformWalletID == uuid.Nil {
		logger.Warn(context.Background(), "No platform wallet configured, collected fees leave the ledger")
	}

	paystack := gateway.NewPaystackClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, cfg.Paystack.Timeout)

	// Initialize usecases
	fees := usecases.NewFeeCalculator(cfg.Fees.FeeSchedule())
	store := usecases.NewWalletStore(uow, walletRepo, entryRepo, memberRepo)
	engine := usecases.NewTransferEngine(uow, walletRepo, txRepo, memberRepo, store, fees, usecases.TransferOptions{
		PlatformWalletID:   cfg.Ledger.PlatformWalletID,
		AllowAdminOverride: cfg.Ledger.AllowAdminOverride,
		RetryDelay:         cfg.Ledger.TransientRetryDelay,
		Observer:           ledgerMetrics,
	})
	settlement := usecases.NewSettlementUsecase(uow, walletRepo, txRepo, memberRepo, store, fees, paystack, usecases.SettlementOptions{
		PlatformWalletID: cfg.Ledger.PlatformWalletID,
		CallbackURL:      cfg.Paystack.CallbackURL,
		PendingWindow:    cfg.Settlement.PendingWindow,
		Observer:         ledgerMetrics,
	})
	walletUsecase := usecases.NewWalletUsecase(uow, walletRepo, txRepo, memberRepo, cfg.Ledger.Currency, cfg.Settlement.PendingWindow)
	chamaUsecase := usecases.NewChamaUsecase(uow, memberRepo)
	leaderboard := usecases.NewLeaderboardUsecase(uow, memberRepo, walletRepo, boardRepo, cfg.Leaderboard.CacheTTL, ledgerMetrics)

	// Start background jobs
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reverifyJob := jobs.NewSettlementReverifyJob(settlement, cfg.Settlement.ReverifyInterval, cfg.Settlement.BatchSize)
	go reverifyJob.Start(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r, cfg.Server.AllowedOrigins)
	registerHealthRoute(r)
	registerMetricsRoute(r, registry)
	registerAPIV1Routes(r, routeDeps{
		walletHandler:   handlers.NewWalletHandler(walletUsecase, store),
		transferHandler: handlers.NewTransferHandler(engine),
		paymentHandler:  handlers.NewPaymentHandler(settlement),
		chamaHandler:    handlers.NewChamaHandler(chamaUsecase, leaderboard),
		authMiddleware:  middleware.AuthMiddleware(jwtService),
	})

	for _, route := range r.Routes() {
		logger.Debug(ctx, "Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info(context.Background(), "Shutting down server")
		reverifyJob.Stop()
		cancel()
	}()

	logger.Info(ctx, "Chama ledger backend starting",
		zap.String("port", cfg.Server.Port),
		zap.String("currency", cfg.Ledger.Currency),
	)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
