package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/rewardledger/internal/adapter/gateway"
	httpAdapter "github.com/iho/rewardledger/internal/adapter/http"
	"github.com/iho/rewardledger/internal/adapter/http/handler"
	"github.com/iho/rewardledger/internal/adapter/http/middleware"
	"github.com/iho/rewardledger/internal/adapter/notifier"
	postgresRepo "github.com/iho/rewardledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/rewardledger/internal/adapter/repository/redis"
	"github.com/iho/rewardledger/internal/infrastructure/config"
	"github.com/iho/rewardledger/internal/infrastructure/eventpublisher"
	"github.com/iho/rewardledger/internal/infrastructure/logger"
	"github.com/iho/rewardledger/internal/infrastructure/metrics"
	"github.com/iho/rewardledger/internal/infrastructure/postgres"
	"github.com/iho/rewardledger/internal/infrastructure/redis"
	"github.com/iho/rewardledger/internal/usecase"
)

const rateLimiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "rewardledger",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	rewardsDefaults, err := cfg.RewardsDefaults()
	if err != nil {
		return fmt.Errorf("invalid rewards defaults: %w", err)
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	redisClient, err := redis.NewClientWithConfig(ctx, redis.ClientConfig{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	userRepo := postgresRepo.NewUserRepository(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	balances := postgresRepo.NewBalanceStore(pool)
	entryRepo := postgresRepo.NewEntryRepository(pool)
	rankRepo := postgresRepo.NewRankRepository(pool)
	historyRepo := postgresRepo.NewRankHistoryRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	settingsRepo := postgresRepo.NewSettingsRepository(pool)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(log)

	// Use cases
	rewardsUC, err := usecase.NewRewardsConfigUseCase(
		rewardsDefaults,
		settingsRepo,
		redisRepo.NewRewardsConfigCache(redisClient),
		cfg.RewardsConfigTTL,
		log,
		m,
	)
	if err != nil {
		return fmt.Errorf("failed to build rewards configuration: %w", err)
	}

	settlementUC := usecase.NewSettlementUseCase(txManager, entryRepo, balances, outboxRepo, idGen, retrier, log, m)
	entryUC := usecase.NewEntryUseCase(txManager, accountRepo, entryRepo, settlementUC, idGen, log, m)
	userUC := usecase.NewUserUseCase(txManager, userRepo, accountRepo, rankRepo, idGen, usecase.ProvisioningConfig{
		DefaultCurrency: rewardsDefaults.DefaultCurrency,
		WalletTypes:     cfg.Wallets(),
	}, log, m)
	accountUC := usecase.NewAccountUseCase(accountRepo, userRepo, idGen)
	transferUC := usecase.NewTransferUseCase(accountRepo, entryUC)
	notificationUC := usecase.NewNotificationUseCase(newNotifier(cfg, redisClient, log), log, m)
	referralUC := usecase.NewReferralUseCase(userRepo, accountRepo, entryUC, log, m)
	rankUC := usecase.NewRankUseCase(usecase.RankDeps{
		UserRepo:      userRepo,
		RankRepo:      rankRepo,
		HistoryRepo:   historyRepo,
		AccountRepo:   accountRepo,
		EntryRepo:     entryRepo,
		OutboxRepo:    outboxRepo,
		Entries:       entryUC,
		Notifications: notificationUC,
		IDGen:         idGen,
	}, log, m)
	reconciliationUC := usecase.NewReconciliationUseCase(accountRepo, entryRepo, settlementUC, cfg.ReconciliationGrace, log, m)
	gateways := gateway.NewRegistry(gateway.NewManualGateway(redisClient, cfg.ManualGatewayTTL))
	log.Info().Strs("providers", gateways.Providers()).Msg("payment gateways registered")
	payoutUC := usecase.NewPayoutUseCase(entryRepo, entryUC, gateways, log)

	dispatcher := usecase.NewDispatcher(rewardsUC, log, m)
	dispatcher.Register(referralUC, rankUC, notificationUC)

	outboxPublishers := eventpublisher.MultiPublisher{newOutboxPublisher(cfg, redisClient, log)}
	if cfg.FanoutMode == config.FanoutOutbox {
		outboxPublishers = append(outboxPublishers, eventpublisher.NewDispatchPublisher(entryRepo, accountRepo, dispatcher))
	} else {
		settlementUC.SetDispatcher(dispatcher)
	}
	log.Info().Str("fanout", cfg.FanoutMode).Msg("settlement fan-out configured")

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  outboxPublishers,
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		UserHandler:           handler.NewUserHandler(userUC, accountUC),
		AccountHandler:        handler.NewAccountHandler(accountUC, entryUC, reconciliationUC),
		EntryHandler:          handler.NewEntryHandler(entryUC, payoutUC),
		TransferHandler:       handler.NewTransferHandler(transferUC),
		GatewayHandler:        handler.NewGatewayHandler(payoutUC),
		RankHandler:           handler.NewRankHandler(rankUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		SettingsHandler:       handler.NewSettingsHandler(rewardsUC),
		HealthHandler: handler.NewHealthHandler(
			handler.HealthCheck{Name: "database", Check: pool.Ping},
			handler.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}},
		),
		Logger:           log,
		Metrics:          m,
		Gatherer:         prometheus.DefaultGatherer,
		IdempotencyStore: redisRepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := publisher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if rateLimiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(rateLimiterIdle)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					rateLimiter.Sweep(rateLimiterIdle)
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newNotifier(cfg *config.Config, client *goredis.Client, log zerolog.Logger) usecase.Notifier {
	if cfg.Notifier == config.NotifierRedis {
		return notifier.NewRedisNotifier(client, cfg.NotificationChannel)
	}

	return notifier.NewLogNotifier(log)
}

func newOutboxPublisher(cfg *config.Config, client *goredis.Client, log zerolog.Logger) eventpublisher.Publisher {
	if cfg.OutboxPublisher == config.NotifierRedis {
		return eventpublisher.NewRedisPublisher(client, eventpublisher.DefaultEventsChannel)
	}

	return eventpublisher.NewLogPublisher(log)
}
