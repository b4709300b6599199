package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is empty because every tag below spells out its full variable name.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DraftStoreRedis = "redis"
	DraftStoreDB    = "db"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Backend      BackendConfig
	Forms        FormsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Tracing      TracingConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	} else if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.FeatureFlags.validate(); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.PublishEvents && strings.TrimSpace(cfg.GCP.ProjectID) == "" {
		return nil, fmt.Errorf("%s is required when %s is enabled", EnvGCPProjectID, EnvPublishEvents)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ORDERDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
	MetricsPort  string `envconfig:"ORDERDESK_METRICS_PORT" default:"9090"`

	// CORSOrigins is a comma separated allow list.
	CORSOrigins []string `envconfig:"ORDERDESK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERDESK_DB_DSN"`
	Driver string `envconfig:"ORDERDESK_DB_DRIVER" default:"postgres"`
	// SQLitePath is used when the UseSQLite flag is on.
	SQLitePath string `envconfig:"ORDERDESK_SQLITE_PATH" default:"orderdesk.db"`

	LegacyHost     string `envconfig:"ORDERDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERDESK_DB_USER"`
	LegacyPassword string `envconfig:"ORDERDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDESK_REDIS_URL"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORDERDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORDERDESK_AUTO_MIGRATE" default:"false"`
	// DraftStore selects where order form drafts live: redis or db.
	DraftStore    string `envconfig:"ORDERDESK_DRAFT_STORE" default:"redis"`
	PublishEvents bool   `envconfig:"ORDERDESK_PUBLISH_EVENTS" default:"false"`
}

func (f FeatureFlagsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(f.DraftStore)) {
	case DraftStoreRedis, DraftStoreDB:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q, got %q", EnvDraftStore, DraftStoreRedis, DraftStoreDB, f.DraftStore)
}

// UsesDBDrafts reports whether drafts should be persisted in the database.
func (f FeatureFlagsConfig) UsesDBDrafts() bool {
	return strings.EqualFold(strings.TrimSpace(f.DraftStore), DraftStoreDB)
}

// BackendConfig points at the authoritative ledger REST API.
type BackendConfig struct {
	BaseURL     string        `envconfig:"ORDERDESK_BACKEND_BASE_URL" required:"true"`
	APIToken    string        `envconfig:"ORDERDESK_BACKEND_API_TOKEN"`
	Timeout     time.Duration `envconfig:"ORDERDESK_BACKEND_TIMEOUT" default:"10s"`
	MaxAttempts int           `envconfig:"ORDERDESK_BACKEND_MAX_ATTEMPTS" default:"3"`
	BaseBackoff time.Duration `envconfig:"ORDERDESK_BACKEND_BASE_BACKOFF" default:"100ms"`
	MaxBackoff  time.Duration `envconfig:"ORDERDESK_BACKEND_MAX_BACKOFF" default:"2s"`

	BreakerFailureThreshold uint32        `envconfig:"ORDERDESK_BACKEND_BREAKER_FAILURES" default:"5"`
	BreakerOpenTimeout      time.Duration `envconfig:"ORDERDESK_BACKEND_BREAKER_OPEN_TIMEOUT" default:"30s"`
	BreakerHalfOpenRequests uint32        `envconfig:"ORDERDESK_BACKEND_BREAKER_HALF_OPEN_REQUESTS" default:"1"`
}

// FormsConfig tunes order form sessions and settlement runs.
type FormsConfig struct {
	DraftTTL           time.Duration `envconfig:"ORDERDESK_DRAFT_TTL" default:"168h"`
	SubmitLockTTL      time.Duration `envconfig:"ORDERDESK_SUBMIT_LOCK_TTL" default:"30s"`
	RefDataCacheTTL    time.Duration `envconfig:"ORDERDESK_REFDATA_CACHE_TTL" default:"30s"`
	SettlementPriority string        `envconfig:"ORDERDESK_SETTLEMENT_PRIORITY" default:"buy_first"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORDERDESK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"ORDERDESK_PUBSUB_ORDERS_TOPIC" default:"orderdesk-order-events"`
	Endpoint    string `envconfig:"ORDERDESK_PUBSUB_ENDPOINT"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"ORDERDESK_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"ORDERDESK_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts    int           `envconfig:"ORDERDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeout time.Duration `envconfig:"ORDERDESK_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
}

// CronConfig schedules the maintenance jobs run by the cron worker.
type CronConfig struct {
	Interval        time.Duration `envconfig:"ORDERDESK_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"ORDERDESK_CRON_LOCK_TTL" default:"30m"`
	OutboxRetention time.Duration `envconfig:"ORDERDESK_CRON_OUTBOX_RETENTION" default:"720h"`
	DLQRetention    time.Duration `envconfig:"ORDERDESK_CRON_DLQ_RETENTION" default:"2160h"`
}

// TracingConfig controls OTLP export. An empty endpoint keeps tracing local.
type TracingConfig struct {
	Endpoint    string  `envconfig:"ORDERDESK_OTEL_ENDPOINT"`
	SampleRatio float64 `envconfig:"ORDERDESK_OTEL_SAMPLE_RATIO" default:"1"`
}

// RateLimitConfig uses ulule limiter rate notation, e.g. "120-M".
type RateLimitConfig struct {
	Enabled bool   `envconfig:"ORDERDESK_RATE_LIMIT_ENABLED" default:"true"`
	Rate    string `envconfig:"ORDERDESK_RATE_LIMIT" default:"120-M"`
	Submit  string `envconfig:"ORDERDESK_RATE_LIMIT_SUBMIT" default:"10-M"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
