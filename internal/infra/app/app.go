package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/database"
	kafkainfra "github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/kafka"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/logger"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/mail"
	redisinfra "github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/redis"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/scheduler"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/security"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/telemetry"
	postgresrepo "github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/repository/postgres"
	redisrepo "github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/repository/redis"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/transport/http/middleware"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/transport/http/routes"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/usecase"
)

// Application owns the wired service graph and its lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
	reaper   *scheduler.Reaper
}

// New builds the application from configuration: connections first, then
// repositories, services, and finally the HTTP engine.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	var tracer *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokenIssuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL, cfg.JWT.VerificationTokenTTL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	var producer *kafkainfra.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			producer = nil
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	dispatcher := mail.NewDispatcher(cfg.Mail, log)

	throttlePrefix := cfg.Redis.ThrottlePrefix
	if throttlePrefix == "" {
		throttlePrefix = "swapsavvy:throttle"
	}
	throttleTTL := cfg.RateLimit.ResendWindow
	if throttleTTL <= 0 {
		throttleTTL = time.Hour
	}
	throttleStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: throttlePrefix,
		TTL:       throttleTTL * 2,
	})

	rateLimiter := middleware.NewRateLimiter(throttleStore, log)

	verificationService := usecase.NewVerificationService(
		cfg,
		repos.Pendings,
		repos.Codes,
		repos.Accounts,
		throttleStore,
		dispatcher,
		eventPublisher,
		log,
	)
	registrationService := usecase.NewRegistrationService(
		repos.Accounts,
		repos.Pendings,
		repos.Codes,
		verificationService,
		dispatcher,
		eventPublisher,
		security.NewPasswordPolicy(),
		tokenIssuer,
		log,
	)
	authService := usecase.NewAuthService(cfg, repos.Accounts, verificationService, tokenIssuer, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	var reaper *scheduler.Reaper
	if cfg.Reaper.Enabled {
		reaper = scheduler.NewReaper(cfg.Reaper, repos.Pendings, repos.Codes, log)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Verification: verificationService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
		tracer:   tracer,
		reaper:   reaper,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts everything down
// in reverse dependency order.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			if err := a.producer.Close(); err != nil {
				a.logger.Warn("failed to close kafka producer", zap.Error(err))
			}
		}
	}()
	defer func() {
		if a.tracer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.tracer.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("failed to shutdown tracer", zap.Error(err))
			}
		}
	}()

	if a.reaper != nil {
		if err := a.reaper.Start(); err != nil {
			return fmt.Errorf("start reaper: %w", err)
		}
		defer a.reaper.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting SwapSavvy identity API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
