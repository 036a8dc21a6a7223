package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/handyhub/booking-payments/internal"
	"github.com/handyhub/booking-payments/internal/auth"
	authpostgres "github.com/handyhub/booking-payments/internal/auth/postgres"
	"github.com/handyhub/booking-payments/internal/booking"
	bookingpostgres "github.com/handyhub/booking-payments/internal/booking/postgres"
	"github.com/handyhub/booking-payments/internal/core/events"
	"github.com/handyhub/booking-payments/internal/notification"
	notificationpostgres "github.com/handyhub/booking-payments/internal/notification/postgres"
	"github.com/handyhub/booking-payments/internal/payout"
	payoutpostgres "github.com/handyhub/booking-payments/internal/payout/postgres"
	"github.com/handyhub/booking-payments/internal/processor"
	"github.com/handyhub/booking-payments/internal/reconciliation"
	reconciliationpostgres "github.com/handyhub/booking-payments/internal/reconciliation/postgres"
	"github.com/handyhub/booking-payments/internal/transport"
	"github.com/handyhub/booking-payments/internal/transport/rest"
	"github.com/handyhub/booking-payments/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	GormDB     *gorm.DB
	Router     *chi.Mux
	Dispatcher *notification.Dispatcher
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		deps.Dispatcher.Shutdown()
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	env := "development"
	if config.Observability.Logging.Format == "json" {
		env = "production"
	}
	logger.Init(env)
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	eventBus := events.NewEventBus(lg)

	processorClient := processor.NewClient(processor.Config{
		BaseURL:        config.Payment.ProcessorBaseURL,
		SecretKey:      config.Payment.SecretKey,
		WebhookSecret:  config.Payment.WebhookSecret,
		Currency:       config.Payment.Currency,
		RequestTimeout: config.Payment.RequestTimeout,
	}, lg)

	reconRepo := reconciliationpostgres.NewAlertRepository(gormDB)
	reconService := reconciliation.NewService(reconRepo, eventBus, lg)

	notificationRepo := notificationpostgres.NewNotificationRepository(gormDB)
	dispatcher := notification.NewDispatcher(notification.Config{
		MaxWorkers:   config.Notification.MaxWorkers,
		JobQueueSize: config.Notification.JobQueueSize,
	}, notificationRepo, lg)

	payoutRepo := payoutpostgres.NewPayoutRepository(gormDB)
	payoutService := payout.NewService(payoutRepo, reconService, lg)

	authRepo := authpostgres.NewRepository(gormDB)
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen, config.Security.BCryptCost)
	authHandler := auth.NewHandler(authService)

	bookingRepo := bookingpostgres.NewBookingRepository(gormDB)
	bookingService := booking.NewService(
		bookingRepo,
		processorClient,
		authRepo,
		payoutService,
		reconService,
		dispatcher,
		eventBus,
		config.Payment.CommissionPercent,
		lg,
	)
	bookingHandler := booking.NewHandler(bookingService)

	payoutHandler := payout.NewHandler(payoutService, config.Payment.Currency)
	webhookHandler := payout.NewWebhookHandler(transport.NewBaseHandler(lg), payoutService, processorClient, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, authHandler, bookingHandler, payoutHandler, webhookHandler, lg)

	return &Dependencies{
		Config:     config,
		Logger:     lg,
		DB:         db,
		GormDB:     gormDB,
		Router:     router,
		Dispatcher: dispatcher,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
