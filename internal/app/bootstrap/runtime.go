package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventadapter "github.com/stackyard/taskhub/internal/adapters/events"
	httpadapter "github.com/stackyard/taskhub/internal/adapters/http"
	"github.com/stackyard/taskhub/internal/adapters/security"
	"github.com/stackyard/taskhub/internal/adapters/storage"
	"github.com/stackyard/taskhub/internal/application"
	"github.com/stackyard/taskhub/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping taskhub api", "service_id", cfg.ServiceID, "http_port", cfg.HTTPPort)

	db, err := storage.Connect(ctx, cfg.PostgresURL, cfg.SQLitePath, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := storage.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repos := storage.NewRepositories(db)

	resolver, err := security.NewJWTResolver(cfg.JWTSharedSecret, cfg.JWTPublicKeyPEM)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("init jwt resolver: %w", err)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
			RecentWindow:    cfg.RecentWindow,
		},
		Activity: repos.Activity,
		Tasks:    repos.Tasks,
		Outbox:   repos.Outbox,
	})

	handler := httpadapter.NewHandler(svc, resolver, cfg.InternalToken, sqlDB.Ping)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var publisher ports.EventPublisher
	var closePublisher func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopics)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		closePublisher = kafkaPublisher.Close
	} else {
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		outbox:     outbox,
		cleanupFn: func(context.Context) {
			if closePublisher != nil {
				_ = closePublisher()
			}
			_ = sqlDB.Close()
		},
	}, nil
}

// Run serves HTTP and drains the outbox until a shutdown signal arrives, then
// shuts both down gracefully.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("outbox worker started")
		_ = r.outbox.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}
