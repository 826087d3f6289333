package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nimasrn/campaign-mailer/internal/config"
	"github.com/nimasrn/campaign-mailer/internal/processor"
	"github.com/nimasrn/campaign-mailer/internal/queue"
	"github.com/nimasrn/campaign-mailer/internal/repository"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
	"github.com/nimasrn/campaign-mailer/pkg/prom"
	"github.com/nimasrn/campaign-mailer/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	if err = logger.Configure(logger.Options{Production: cfg.IsProduction(), Level: cfg.LogLevel}); err != nil {
		logger.Error("invalid LOG_LEVEL, keeping defaults", "level", cfg.LogLevel, "error", err)
	}
	logger.Info("starting delivery event processor", "version", version, "commit", commit, "built", date)

	if cfg.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.AppEnv}); err != nil {
			logger.Error("failed to init sentry", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.RedisAddr == "" {
		logger.Error("REDIS_ADDR is required by the processor")
		return
	}

	readConf := pg.Config{
		User:     cfg.PostgresReadUser,
		Host:     cfg.PostgresReadHost,
		Port:     cfg.PostgresReadPort,
		Password: cfg.PostgresReadPassword,
		Database: cfg.PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDatabase,
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, false)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: cfg.AppName + "-processor",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	metricsAddr := cfg.AppDebugMetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9100"
	}
	go prom.ListenAndServer(metricsAddr, cfg.AppDebugMetricsURI)

	consumer := cfg.EventsConsumerName
	if consumer == "" {
		consumer = hostname
	}

	idempotency := processor.NewIdempotency(redisAdap, processor.IdempotencyConfig{
		DoneTTL:     cfg.EventsIdempotencyTTL,
		MaxAttempts: cfg.EventsMaxRetries,
	})
	proc := processor.NewDeliveryEventProcessor(repository.NewDeliveryEventRepository(db), idempotency)

	service, err := processor.NewService(redisAdap, processor.Config{
		Queue: queue.Config{
			Stream:        cfg.EventsStream,
			Group:         cfg.EventsConsumerGroup,
			Consumer:      consumer,
			MaxDeliveries: int64(cfg.EventsMaxRetries) + 1,
			ClaimAfter:    cfg.EventsClaimAfter,
			PollInterval:  cfg.EventsPollInterval,
			BatchSize:     cfg.EventsBatchSize,
			MaxLen:        cfg.EventsMaxLen,
			DeadLetter:    cfg.EventsEnableDLQ,
		},
		Consumers: 2,
		Workers:   cfg.EventsWorkerCount,
	}, proc)
	if err != nil {
		logger.Error("failed to create the processor", "error", err)
		return
	}

	if err = service.Start(); err != nil {
		logger.Error("failed to start processor", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			p := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(p); err != nil {
				logger.Error("failed to open the passed env file", "path", p, "error", err)
				return ""
			}
			return p
		}
	}
	return ""
}
