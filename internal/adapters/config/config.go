package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"eventpulse/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	API           APIConfig
	Provider      ProviderConfig
	Pipeline      PipelineConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"eventpulse"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"marketdata"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"eventpulse"`
}

type APIConfig struct {
	Port         int    `envconfig:"API_PORT" default:"8080"`
	IngestSecret string `envconfig:"INGEST_SECRET" required:"true"`
}

type ProviderConfig struct {
	BaseURL        string        `envconfig:"CANDLE_PROVIDER_URL" required:"true"`
	APIKey         string        `envconfig:"CANDLE_PROVIDER_API_KEY"`
	Timeout        time.Duration `envconfig:"CANDLE_PROVIDER_TIMEOUT" default:"30s"`
	RequestsPerSec float64       `envconfig:"CANDLE_PROVIDER_RPS" default:"5"`
}

// PipelineConfig contains intervals and batch sizes for the batch orchestrators.
// Batch sizes are deliberately small (tens, not thousands) so an abandoned
// invocation leaves a bounded amount of re-doable work.
type PipelineConfig struct {
	TrackedPairs []string `envconfig:"TRACKED_PAIRS" default:"EURUSD,GBPUSD,USDJPY,AUDUSD,USDCAD"`

	WindowFetchInterval   time.Duration `envconfig:"PIPELINE_WINDOW_FETCH_INTERVAL" default:"5m"`
	ReactionInterval      time.Duration `envconfig:"PIPELINE_REACTION_INTERVAL" default:"5m"`
	SettlementInterval    time.Duration `envconfig:"PIPELINE_SETTLEMENT_INTERVAL" default:"15m"`
	StatsRefreshInterval  time.Duration `envconfig:"PIPELINE_STATS_REFRESH_INTERVAL" default:"30m"`
	HourlyCollectInterval time.Duration `envconfig:"PIPELINE_HOURLY_COLLECT_INTERVAL" default:"30m"`

	BatchSize        int `envconfig:"PIPELINE_BATCH_SIZE" default:"25"`
	MaxBatchesPerRun int `envconfig:"PIPELINE_MAX_BATCHES_PER_RUN" default:"4"`

	WindowFetchEnabled   bool `envconfig:"PIPELINE_WINDOW_FETCH_ENABLED" default:"true"`
	ReactionEnabled      bool `envconfig:"PIPELINE_REACTION_ENABLED" default:"true"`
	SettlementEnabled    bool `envconfig:"PIPELINE_SETTLEMENT_ENABLED" default:"true"`
	StatsRefreshEnabled  bool `envconfig:"PIPELINE_STATS_REFRESH_ENABLED" default:"true"`
	HourlyCollectEnabled bool `envconfig:"PIPELINE_HOURLY_COLLECT_ENABLED" default:"true"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
