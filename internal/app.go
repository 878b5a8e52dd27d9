// internal/app.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	router "tcoin-wallet/internal/api"
	"tcoin-wallet/internal/api/handler"
	"tcoin-wallet/internal/api/middleware"
	"tcoin-wallet/internal/config"
	"tcoin-wallet/internal/jobs"
	"tcoin-wallet/internal/ratelimit"
	"tcoin-wallet/internal/repository"
	"tcoin-wallet/internal/repository/postgres"
	"tcoin-wallet/internal/service"
	"tcoin-wallet/internal/util"
	"tcoin-wallet/internal/voucher"
	"tcoin-wallet/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *logrus.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	// Repositories
	WalletRepository      repository.WalletRepository
	TransactionRepository repository.TransactionRepository
	VoucherRepository     repository.VoucherRepository
	PackageRepository     repository.PackageRepository

	// Services
	LedgerService     service.LedgerService
	VoucherService    service.VoucherService
	RedemptionService service.RedemptionService

	Scheduler *jobs.Scheduler

	// HTTP API
	HTTPHandler http.Handler

	stopBackground context.CancelFunc
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{Logger: util.GetLogger()}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel, cfg.LogFormat)
	app.Logger = util.GetLogger()
	app.Logger.WithField("env", cfg.AppEnv).Info("Application configuration loaded successfully.")

	// 3. Connect to Database and migrate
	database, err := db.NewPostgresDB(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	if err := db.RunMigrations(app.DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	app.Logger.Info("Database connection established and schema is current.")

	// 4. Voucher keyring
	masters := make(map[uint8][]byte, len(cfg.VoucherKeys))
	for _, k := range cfg.VoucherKeys {
		masters[k.ID] = voucher.DeriveMasterKey(k.Passphrase, cfg.VoucherKeySalt)
	}
	ring, err := voucher.NewKeyring(cfg.VoucherActiveKey, masters)
	if err != nil {
		return fmt.Errorf("failed to build voucher keyring: %w", err)
	}
	codec := voucher.NewCodec(ring)
	app.Logger.WithFields(logrus.Fields{
		"active_key_id": ring.ActiveKeyID(),
		"key_ids":       fmt.Sprint(ring.KeyIDs()),
	}).Info("Voucher keyring loaded.")

	// 5. Initialize Repositories
	app.WalletRepository = postgres.NewWalletRepository()
	app.TransactionRepository = postgres.NewTransactionRepository()
	app.VoucherRepository = postgres.NewVoucherRepository()
	app.PackageRepository = postgres.NewPackageRepository()

	// 6. Redemption guard
	var guard service.AttemptGuard = ratelimit.NopGuard{}
	if cfg.RedisAddr != "" {
		app.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := app.Redis.Ping(pingCtx).Err(); err != nil {
			app.Logger.WithError(err).Warn("Redis unreachable; redemption guard will fail open until it recovers")
		}
		cancel()
		guard = ratelimit.NewRedemptionGuard(app.Redis, cfg.RedeemMaxFailures, cfg.RedeemFailureWindow, app.Logger)
	} else {
		app.Logger.Warn("REDIS_ADDR not set; failed redemption attempts are not throttled")
	}

	// 7. Initialize Services
	txFuncs := service.DefaultTxFuncs()
	opts := service.LedgerOptions{BalanceFloor: cfg.BalanceFloor, RetryAttempts: cfg.DB.RetryAttempts}

	app.LedgerService = service.NewLedgerService(
		app.DB, // DBTxBeginner
		app.DB, // DBExecutor
		app.WalletRepository,
		app.TransactionRepository,
		app.PackageRepository,
		txFuncs,
		opts,
		app.Logger,
	)
	app.VoucherService = service.NewVoucherService(
		app.DB,
		app.DB,
		app.VoucherRepository,
		codec,
		txFuncs,
		cfg.DB.RetryAttempts,
		app.Logger,
	)
	app.RedemptionService = service.NewRedemptionService(
		app.DB,
		app.DB,
		app.WalletRepository,
		app.TransactionRepository,
		app.VoucherRepository,
		codec,
		guard,
		txFuncs,
		opts,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 8. Background work
	bgCtx, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel

	if cfg.ReconcileSchedule != "" {
		reconciler := jobs.NewReconciler(app.DB, app.TransactionRepository, app.Logger)
		app.Scheduler = jobs.NewScheduler(reconciler, app.Logger)
		if err := app.Scheduler.Start(bgCtx, cfg.ReconcileSchedule); err != nil {
			return err
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
	limiter.StartCleanup(bgCtx, time.Minute)

	// 9. Initialize HTTP Handlers and Router
	app.HTTPHandler = router.NewRouter(router.Handlers{
		Wallet:   handler.NewWalletHandler(app.LedgerService, app.RedemptionService, app.Logger),
		Internal: handler.NewInternalHandler(app.LedgerService, app.Logger),
		Admin:    handler.NewAdminHandler(app.LedgerService, app.VoucherService, app.Logger),
	}, limiter, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.Scheduler != nil {
		app.Scheduler.Stop()
	}
	if app.stopBackground != nil {
		app.stopBackground()
	}
	if app.Redis != nil {
		if err := app.Redis.Close(); err != nil {
			app.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.WithError(err).Error("Failed to close database connection")
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
