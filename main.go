// Brooder is the inventory and order service for chicken batch retail sales.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ptichkin/brooder/app/bot"
	"github.com/ptichkin/brooder/app/handlers"
	"github.com/ptichkin/brooder/app/middleware"
	"github.com/ptichkin/brooder/app/router"
	"github.com/ptichkin/brooder/app/scheduler"
	"github.com/ptichkin/brooder/app/services"
	"github.com/ptichkin/brooder/app/session"
	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/config"
	"github.com/ptichkin/brooder/logger"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := migrateSchema(db); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	rdb, err := initializeRedis(cfg.Redis)
	if err != nil {
		log.Printf("Redis unavailable, admin cache disabled: %v", err)
	}

	// Repositories
	stockRepo := repository.NewStockRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	phoneRepo := repository.NewPhoneRepository(db)
	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	promoRepo := repository.NewPromotionRepository(db)

	// Services
	telegramService := services.NewTelegramService(&cfg.Telegram)
	notificationService := services.NewNotificationService(telegramService)
	erpService := services.NewERPService(&cfg.ERP)
	tokenService, err := services.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.Issuer)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	var adminCache *services.AdminCache
	if rdb != nil {
		adminCache = services.NewAdminCache(rdb, adminRepo, cfg.Scheduler.AdminCacheTTL)
	}

	// Business flows
	guardFlow := businessflow.NewPhoneGuardFlow(phoneRepo, cfg.Guard)
	orderFlow := businessflow.NewOrderFlow(orderRepo, stockRepo, userRepo, guardFlow, notificationService, erpService, db)
	stockFlow := businessflow.NewStockFlow(stockRepo, orderRepo, notificationService, db)
	promoFlow := businessflow.NewPromotionFlow(promoRepo)
	var rosterCache businessflow.AdminRosterCache
	if adminCache != nil {
		rosterCache = adminCache
	}
	adminFlow := businessflow.NewAdminFlow(adminRepo, rosterCache)

	if err := bootstrapAdmins(context.Background(), adminRepo, cfg.Admin.BootstrapIDs); err != nil {
		log.Printf("Admin bootstrap failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Conversation sessions for the order wizard
	sessions := session.NewStore(cfg.Session.TTL)
	sessions.StartJanitor(ctx, cfg.Session.CleanupInterval)
	wizard := bot.NewWizard(sessions, stockFlow, orderFlow, guardFlow)

	// HTTP layer
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	r := router.NewFiberRouter(
		cfg.Server,
		authMiddleware,
		handlers.NewStockHandler(stockFlow),
		handlers.NewOrderHandler(orderFlow),
		handlers.NewPhoneHandler(guardFlow),
		handlers.NewPromotionHandler(promoFlow),
		handlers.NewAdminHandler(adminFlow, tokenService, cfg.JWT, cfg.Admin),
		handlers.NewBotHandler(wizard),
	)
	r.SetupRoutes()

	// Daily maintenance loop
	var stopScheduler func()
	if cfg.Scheduler.Enabled {
		var refresher scheduler.AdminCacheRefresher
		if adminCache != nil {
			refresher = adminCache
		}
		sched := scheduler.NewMaintenanceScheduler(
			stockFlow,
			orderRepo,
			notificationService,
			refresher,
			logger.New(cfg.Logging, "scheduler"),
			cfg.Scheduler,
			cfg.Admin,
		)
		stopScheduler = sched.Start(ctx)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := r.Start(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, shutting down", sig)

	if stopScheduler != nil {
		stopScheduler()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	done := make(chan error, 1)
	go func() { done <- r.Shutdown() }()
	select {
	case err := <-done:
		if err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	case <-shutdownCtx.Done():
		log.Printf("Server shutdown timed out")
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	log.Println("Shutdown complete")
}

// initializeDatabase opens postgres and configures the connection pool
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established (%d max open, %d max idle)",
		cfg.MaxOpenConns, cfg.MaxIdleConns)
	return db, nil
}

func migrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.StockBatch{},
		&models.Order{},
		&models.User{},
		&models.Admin{},
		&models.TrustedPhone{},
		&models.PhoneAttempt{},
		&models.BlockedPhone{},
		&models.Promotion{},
	)
}

// initializeRedis connects to redis and verifies connectivity
func initializeRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Printf("Redis connection established to %s (db=%d)", cfg.Addr(), cfg.DB)
	return rc, nil
}

// bootstrapAdmins seeds the roster with the configured ids so a fresh deploy
// is never admin-less
func bootstrapAdmins(ctx context.Context, adminRepo repository.AdminRepository, ids []int64) error {
	for _, id := range ids {
		isAdmin, err := adminRepo.IsAdmin(ctx, id)
		if err != nil {
			return err
		}
		if isAdmin {
			continue
		}
		if err := adminRepo.Add(ctx, id, nil); err != nil {
			return err
		}
		log.Printf("Bootstrapped admin %d", id)
	}
	return nil
}
