package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barbershop/internal/api"
	"barbershop/internal/auth"
	"barbershop/internal/config"
	"barbershop/internal/database"
	"barbershop/internal/domain"
	"barbershop/internal/email"
	"barbershop/internal/events"
	"barbershop/internal/google"
	"barbershop/internal/logging"
	"barbershop/internal/metrics"
	"barbershop/internal/models"
	"barbershop/internal/notify"
	"barbershop/internal/payment"
	"barbershop/internal/repository"
	"barbershop/internal/service"
	"barbershop/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database, &logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return err
	}
	defer db.Close()

	go database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup")).Start(ctx)

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	manager := initAuth(cfg, db, redisClient, &logger)

	gateway, err := payment.New(cfg.Payment, logging.Component(&logger, "payment"))
	if err != nil {
		return fmt.Errorf("init payment gateway: %w", err)
	}
	mailer, err := email.New(cfg.Email, &logger)
	if err != nil {
		return fmt.Errorf("init email: %w", err)
	}

	bus := events.NewEventBus(logging.Component(&logger, "events"))
	initTelegram(ctx, cfg, bus, &logger)

	sheetsService, syncWorker := initGoogleSheets(ctx, cfg, db, redisClient, &logger)

	workflow := service.NewBookingWorkflow(db, gateway, mailer, bus, syncWorker, logging.Component(&logger, "workflow")).
		WithSubmissionLimiter(manager)
	admin := service.NewAdminService(db, bus, syncWorker, logging.Component(&logger, "admin"))

	deps := api.Deps{
		Auth:     manager,
		Workflow: workflow,
		Admin:    admin,
		Mailer:   confirmationMailer(cfg, &logger),
		Redis:    redisClient,
		DB:       db,
		Logger:   &logger,
	}
	if sheetsService != nil {
		deps.Sheets = sheetsService
	}

	httpServer, err := api.NewHTTPServer(cfg, deps)
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	var grpcServer *api.GRPCServer
	if cfg.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.GRPC, db, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		grpcServer.WatchDatabase(ctx, 15*time.Second)
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initAuth(cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *auth.Manager {
	ttl := config.Seconds(cfg.Auth.SessionCacheTTL)
	memory := repository.NewMemorySessionRepository(ttl)

	var sessions domain.SessionRepository = memory
	if redisClient != nil {
		sessions = repository.NewFailoverSessionRepository(
			repository.NewRedisSessionRepository(redisClient, ttl),
			memory,
			logging.Component(logger, "sessions"),
		)
	}

	return auth.NewManager(
		auth.NewVerifier(cfg.Auth.JWTSecret),
		auth.NewProviderClient(cfg.Auth),
		sessions,
		db,
		auth.Options{
			CacheTTL:         ttl,
			SubmissionLimit:  cfg.RateLimit.Submissions,
			SubmissionWindow: config.Seconds(cfg.RateLimit.SubmissionWindowSecs),
		},
		logging.Component(logger, "auth"),
	)
}

func initTelegram(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.StaffChatIDs) == 0 {
		return
	}

	bot, err := notify.NewTelegramBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without staff notifications")
		return
	}

	notifier := notify.NewTelegramNotifier(bot, cfg.Telegram.StaffChatIDs, logging.Component(logger, "telegram"))
	notifier.Subscribe(bus)
	notifier.Start(ctx)
	logger.Info().Str("bot", bot.Self.UserName).Int("chats", len(cfg.Telegram.StaffChatIDs)).Msg("telegram notifications enabled")
}

// initGoogleSheets returns a nil worker when the mirror is not configured so
// callers see an untyped nil domain.SyncWorker.
func initGoogleSheets(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) (*google.SheetsService, domain.SyncWorker) {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil, nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google, logging.Component(logger, "sheets"))
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil, nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		if account, aerr := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile); aerr == nil {
			logger.Warn().Err(err).Str("service_account", account).Msg("spreadsheet not reachable, share it with the service account")
		} else {
			logger.Warn().Err(err).Msg("spreadsheet not reachable")
		}
	}
	sheetsService.StartCacheRefresh(ctx, time.Duration(models.SheetsCacheTTL)*time.Second)

	w := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.PolicyFromConfig(cfg.Sync), logging.Component(logger, "sheets-worker"))
	go w.Start(ctx)

	logger.Info().Msg("google sheets connected")
	return sheetsService, w
}

// confirmationMailer backs the send-booking-confirmation endpoint. Only SMTP
// can serve it; function mode would call this very endpoint.
func confirmationMailer(cfg *config.Config, logger *zerolog.Logger) domain.ConfirmationSender {
	if cfg.Email.SMTP.Host == "" {
		return nil
	}
	sender, err := email.NewSMTPSender(cfg.Email, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("smtp init failed, confirmation endpoint disabled")
		return nil
	}
	return sender
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	logger.Info().Int("http_port", cfg.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("API server started")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return serveErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
