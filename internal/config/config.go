package config

import (
	"time"
	_ "time/tzdata"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/pkg/errors"
)

var config *Config

// Config holds every configuration value of the service. Only this struct
// must be used to read configuration, no direct access to env or any other
// config source should be made.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=campaign_mailer"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`
	AppTimezone         string `env:"APP_TIMEZONE,default=UTC"`
	LogLevel            string `env:"LOG_LEVEL"`

	HttpListenAddr            string        `env:"HTTP_LISTEN_ADDR,default=:3001"`
	HttpServerReadTimeout     int           `env:"HTTP_SERVER_READ_TIMEOUT,default=30"`
	HttpServerWriteTimeout    int           `env:"HTTP_SERVER_WRITE_TIMEOUT,default=30"`
	HttpServerReadBufferSize  int           `env:"HTTP_SERVER_READ_BUFFER_SIZE"`
	HttpServerWriteBufferSize int           `env:"HTTP_SERVER_WRITE_BUFFER_SIZE"`
	HttpRequestTimeout        time.Duration `env:"HTTP_REQUEST_TIMEOUT,default=60s"`
	CorsAllowOrigin           string        `env:"CORS_ALLOW_ORIGIN,default=*"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST,default=localhost"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT,default=5432"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisUsername  string `env:"REDIS_USER"`
	RedisPassword  string `env:"REDIS_PASS"`
	RedisDatabase  int    `env:"REDIS_DATABASE"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX,default=campaign_mailer:"`

	PromNamespace string `env:"PROM_NAMESPACE,default=campaign_mailer"`

	SentryDSN string `env:"SENTRY_DSN"`

	WorkflowWebhookURL     string        `env:"WORKFLOW_WEBHOOK_URL"`
	WorkflowTriggerTimeout time.Duration `env:"WORKFLOW_TRIGGER_TIMEOUT,default=30s"`
	WorkflowTestTimeout    time.Duration `env:"WORKFLOW_TEST_TIMEOUT,default=8s"`

	QueueDefaultMaxRetries int `env:"QUEUE_DEFAULT_MAX_RETRIES,default=3"`
	PendingDefaultLimit    int `env:"PENDING_DEFAULT_LIMIT,default=100"`
	RetryableDefaultLimit  int `env:"RETRYABLE_DEFAULT_LIMIT,default=50"`

	EventsEnabled        bool          `env:"EVENTS_ENABLED,default=false"`
	EventsStream         string        `env:"EVENTS_STREAM,default=delivery-events"`
	EventsConsumerGroup  string        `env:"EVENTS_CONSUMER_GROUP,default=delivery-processors"`
	EventsConsumerName   string        `env:"EVENTS_CONSUMER_NAME"`
	EventsMaxRetries     int           `env:"EVENTS_MAX_RETRIES,default=3"`
	EventsClaimAfter     time.Duration `env:"EVENTS_CLAIM_AFTER,default=30s"`
	EventsPollInterval   time.Duration `env:"EVENTS_POLL_INTERVAL,default=500ms"`
	EventsBatchSize      int64         `env:"EVENTS_BATCH_SIZE,default=50"`
	EventsMaxLen         int64         `env:"EVENTS_MAX_LEN,default=100000"`
	EventsEnableDLQ      bool          `env:"EVENTS_ENABLE_DLQ,default=true"`
	EventsWorkerCount    int           `env:"EVENTS_WORKER_COUNT,default=4"`
	EventsIdempotencyTTL time.Duration `env:"EVENTS_IDEMPOTENCY_TTL,default=24h"`
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location resolves AppTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", "timezone", c.AppTimezone)
		return time.UTC
	}
	return loc
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to load env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	_, err = env.UnmarshalFromEnviron(c)
	if err != nil {
		return errors.Wrap(err, "failed to map env variables to configuration")
	}

	config = c
	return nil
}

// Set replaces the loaded configuration; used by tests and tools.
func Set(c *Config) {
	config = c
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
