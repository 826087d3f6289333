package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nimasrn/campaign-mailer/internal/app"
	"github.com/nimasrn/campaign-mailer/internal/config"
	gateway "github.com/nimasrn/campaign-mailer/internal/gateways"
	"github.com/nimasrn/campaign-mailer/internal/handlers"
	"github.com/nimasrn/campaign-mailer/internal/queue"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
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
	logger.Info("starting campaign api", "version", version, "commit", commit, "built", date, "env", cfg.AppEnv)

	if cfg.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
			Release:     cfg.AppName + "@" + version,
		})
		if err != nil {
			logger.Error("failed to init sentry", "error", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	if cfg.AppDebugMetricsAddr != "" {
		hostname, _ := os.Hostname()
		if err = prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed to create prometheus metrics", "error", err)
			return
		}
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
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
	db, err := pg.CreateReadWrite(readConf, writeConf, cfg.AppEnv == "dev")
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	workflow, err := gateway.NewWorkflowClient(&gateway.Config{
		WebhookURL:     cfg.WorkflowWebhookURL,
		TriggerTimeout: cfg.WorkflowTriggerTimeout,
		TestTimeout:    cfg.WorkflowTestTimeout,
	})
	if err != nil {
		logger.Error("failed to create workflow client", "error", err)
		return
	}
	if !workflow.Configured() {
		logger.Warn("WORKFLOW_WEBHOOK_URL is not set, trigger endpoints will fail")
	}

	opts := app.Options{
		Location:       cfg.Location(),
		MaxRetries:     cfg.QueueDefaultMaxRetries,
		PendingLimit:   cfg.PendingDefaultLimit,
		RetryableLimit: cfg.RetryableDefaultLimit,
		Workflow:       workflow,
		Source:         cfg.AppName,
		CorsOrigin:     cfg.CorsAllowOrigin,
		RequestTimeout: cfg.HttpRequestTimeout,
		ExposeErrors:   !cfg.IsProduction(),
		HealthChecks:   map[string]handlers.Pinger{},
	}

	if cfg.RedisAddr != "" {
		redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisKeyPrefix, &redis.Options{
			Addrs:      []string{cfg.RedisAddr},
			ClientName: cfg.AppName,
			DB:         cfg.RedisDatabase,
			Username:   cfg.RedisUsername,
			Password:   cfg.RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		opts.HealthChecks["redis"] = redisAdap

		if cfg.EventsEnabled {
			events, err := queue.NewQueue(redisAdap, queue.Config{
				Stream: cfg.EventsStream,
				Group:  cfg.EventsConsumerGroup,
				MaxLen: cfg.EventsMaxLen,
			})
			if err != nil {
				logger.Error("failed creating event stream", "error", err)
				return
			}
			opts.Publisher = events
			logger.Info("publishing delivery events", "stream", cfg.EventsStream)
		}
	} else if cfg.EventsEnabled {
		logger.Warn("EVENTS_ENABLED is set without REDIS_ADDR, delivery events are off")
	}

	serverOpt := xhttp.DefaultServerOption
	serverOpt.Name = cfg.AppName
	serverOpt.ReadTimeout = time.Duration(cfg.HttpServerReadTimeout) * time.Second
	serverOpt.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeout) * time.Second
	if cfg.HttpServerReadBufferSize > 0 {
		serverOpt.ReadBufferSize = cfg.HttpServerReadBufferSize
	}
	if cfg.HttpServerWriteBufferSize > 0 {
		serverOpt.WriteBufferSize = cfg.HttpServerWriteBufferSize
	}

	s := app.NewServer(db, serverOpt, opts)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	logger.Info("shutting down http server")
	s.Shutdown()
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
