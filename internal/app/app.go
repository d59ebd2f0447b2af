package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"leave-service/internal/admin"
	"leave-service/internal/auth"
	"leave-service/internal/config"
	"leave-service/internal/db"
	"leave-service/internal/health"
	"leave-service/internal/kafka"
	"leave-service/internal/leave"
	"leave-service/internal/logger"
	"leave-service/internal/messaging"
	"leave-service/internal/metrics"
	"leave-service/internal/middleware"
	"leave-service/internal/notify"
	"leave-service/internal/telemetry"
	"leave-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

const healthCheckInterval = 15 * time.Second

// runner is a broker consumer started alongside the HTTP server.
type runner interface {
	Start(ctx context.Context) error
	Close() error
}

type App struct {
	config     *config.Config
	router     *gin.Engine
	server     *http.Server
	db         *bun.DB
	telemetry  *telemetry.Telemetry
	dispatcher *notify.Dispatcher
	health     *health.Handler
	logger     *slog.Logger

	closers  []func() error
	consumer runner
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, cfg.Env)

	// Set as default logger so slog.Info() uses the configured format
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "env", cfg.Env, "commit", GitCommit, "built", BuildTime)

	app := &App{
		config: cfg,
		logger: slogLogger,
	}

	app.telemetry, err = telemetry.Init(ctx, cfg.Telemetry, ServiceName, Version, cfg.Env, slogLogger)
	if err != nil {
		return nil, err
	}
	m := app.telemetry.Metrics

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(cfg.Database.DSN()); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slogLogger.Info("database migrations applied")
	}

	app.db, err = db.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := m.Database.RegisterDB(app.db.DB, otel.Meter(ServiceName)); err != nil {
		slogLogger.Warn("failed to register connection pool metrics", "error", err)
	}

	app.health = health.NewHandler(m, slogLogger)
	app.health.AddCheck("postgres", func(ctx context.Context) error { return app.db.PingContext(ctx) })

	publisher, err := app.setupNotifications(cfg, m)
	if err != nil {
		return nil, err
	}
	app.dispatcher = notify.NewDispatcher(publisher, cfg.Notify.QueueSize, cfg.Notify.Workers, slogLogger, m)

	userRepo := user.NewRepository(app.db, m)
	userService := user.NewService(userRepo, slogLogger)
	if err := userService.EnsureAdmin(ctx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminDepartment); err != nil {
		return nil, err
	}

	resolver, err := leave.NewResolver(userRepo, cfg.Assignment.Strategy)
	if err != nil {
		return nil, err
	}
	leaveRepo := leave.NewRepository(app.db, m)
	leaveService := leave.NewService(leaveRepo, resolver, app.dispatcher, slogLogger, m)
	adminService := admin.NewService(userService, leaveService, leaveRepo, slogLogger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	authMiddleware := auth.Middleware(tokens, slogLogger)

	app.router = gin.New()
	app.router.Use(gin.Recovery(), middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints (no auth required)
	app.health.RegisterRoutes(app.router)

	auth.NewHandler(userService, tokens, cfg.Auth, slogLogger).RegisterRoutes(app.router, authMiddleware)

	protected := app.router.Group("", authMiddleware)
	leave.NewHandler(leaveService, slogLogger).RegisterRoutes(protected)
	admin.NewHandler(adminService, slogLogger).RegisterRoutes(protected)

	slogLogger.Info("application initialized successfully",
		"assignment_strategy", cfg.Assignment.Strategy,
		"notify_transport", cfg.Notify.Transport,
	)

	return app, nil
}

// setupNotifications builds the publisher the dispatcher drains into and,
// for broker transports with consume_mail set, the consumer that mails events.
func (a *App) setupNotifications(cfg *config.Config, m *metrics.Metrics) (notify.Publisher, error) {
	mail := func() notify.Publisher {
		return notify.NewMailPublisher(notify.NewSMTPMailer(cfg.SMTP, a.logger))
	}

	switch cfg.Notify.Transport {
	case "nats":
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, a.logger, m)
		if err != nil {
			return nil, fmt.Errorf("failed to create NATS producer: %w", err)
		}
		a.closers = append(a.closers, producer.Close)
		a.health.AddCheck("nats", func(context.Context) error { return producer.HealthCheck() })

		if cfg.Notify.ConsumeMail {
			consumer, err := messaging.NewConsumer(cfg.NATS.URL, cfg.NATS.Subject, mail(), a.logger, m)
			if err != nil {
				return nil, fmt.Errorf("failed to create NATS consumer: %w", err)
			}
			a.consumer = consumer
		}
		return producer, nil

	case "kafka":
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, a.logger, m)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka producer: %w", err)
		}
		a.closers = append(a.closers, producer.Close)
		a.health.AddCheck("kafka", func(context.Context) error { return producer.HealthCheck() })

		if cfg.Notify.ConsumeMail {
			consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, mail(), a.logger, m)
			if err != nil {
				return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
			}
			a.consumer = consumer
		}
		return producer, nil

	case "smtp":
		return mail(), nil

	default:
		return notify.NewLogPublisher(a.logger), nil
	}
}

// Handler exposes the router for in-process tests.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.stop = cancel

	a.dispatcher.Start()

	if a.consumer != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.logger.Info("notification consumer starting", "transport", a.config.Notify.Transport)
			if err := a.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("notification consumer error", "error", err)
			}
		}()
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartHealthChecks keeps the dependency gauges fresh until ctx is done.
func (a *App) StartHealthChecks(ctx context.Context) {
	a.health.Run(ctx, healthCheckInterval)
}

// Shutdown stops accepting requests, drains queued notifications and then
// closes the transports, the database and the meter provider.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	if err := a.dispatcher.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("notification dispatcher: %w", err))
	}

	if a.stop != nil {
		a.stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("notification consumer close error", "error", err)
		}
		a.wg.Wait()
	}

	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Error("transport close error", "error", err)
		}
	}

	db.Close(a.db)

	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
