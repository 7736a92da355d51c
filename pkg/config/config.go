package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Settlement   SettlementConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Razorpay.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KARTLY_APP_ENV" required:"true"`
	Port         string `envconfig:"KARTLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KARTLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KARTLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"KARTLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"KARTLY_DB_DSN"`
	Driver string `envconfig:"KARTLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KARTLY_DB_HOST"`
	LegacyPort     int    `envconfig:"KARTLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KARTLY_DB_USER"`
	LegacyPassword string `envconfig:"KARTLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"KARTLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"KARTLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KARTLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KARTLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KARTLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KARTLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KARTLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KARTLY_REDIS_ADDR"`
	Password     string        `envconfig:"KARTLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"KARTLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KARTLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KARTLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KARTLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KARTLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KARTLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KARTLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KARTLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KARTLY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RazorpayConfig holds the gateway credentials. KeyID is public and is handed
// to the storefront; KeySecret signs payment receipts and never leaves the server.
type RazorpayConfig struct {
	KeyID          string        `envconfig:"KARTLY_RAZORPAY_KEY_ID" required:"true"`
	KeySecret      string        `envconfig:"KARTLY_RAZORPAY_KEY_SECRET" required:"true"`
	BaseURL        string        `envconfig:"KARTLY_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Currency       string        `envconfig:"KARTLY_RAZORPAY_CURRENCY" default:"INR"`
	MinorUnitScale int32         `envconfig:"KARTLY_RAZORPAY_MINOR_UNIT_SCALE" default:"2"`
	Timeout        time.Duration `envconfig:"KARTLY_RAZORPAY_TIMEOUT" default:"10s"`
}

func (r RazorpayConfig) validate() error {
	if strings.TrimSpace(r.KeyID) == "" || strings.TrimSpace(r.KeySecret) == "" {
		return fmt.Errorf("%s and %s are required", EnvRazorpayKeyID, EnvRazorpayKeySecret)
	}
	if r.MinorUnitScale < 0 || r.MinorUnitScale > 4 {
		return fmt.Errorf("%s must be between 0 and 4", EnvRazorpayMinorScale)
	}
	return nil
}

// NormalizedCurrency returns the upper-cased ISO currency code.
func (r RazorpayConfig) NormalizedCurrency() string {
	c := strings.ToUpper(strings.TrimSpace(r.Currency))
	if c == "" {
		return "INR"
	}
	return c
}

type SettlementConfig struct {
	SessionTTL time.Duration `envconfig:"KARTLY_PAYMENT_SESSION_TTL" default:"30m"`
	LockTTL    time.Duration `envconfig:"KARTLY_SETTLEMENT_LOCK_TTL" default:"30s"`
	// IdempotencyKeyTTL bounds how long a replayed Idempotency-Key response is kept.
	IdempotencyKeyTTL time.Duration `envconfig:"KARTLY_IDEMPOTENCY_KEY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KARTLY_AUTO_MIGRATE" default:"false"`
	// EnforceSessionOwnership rejects settlement when the payment session was
	// opened by a different user.
	EnforceSessionOwnership bool `envconfig:"KARTLY_ENFORCE_SESSION_OWNERSHIP" default:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"KARTLY_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"KARTLY_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"KARTLY_GCP_CREDENTIALS_JSON"`
	// ApplicationCredentials is a path to a service account file.
	ApplicationCredentials string `envconfig:"KARTLY_GCP_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"KARTLY_PUBSUB_ORDERS_TOPIC" default:"kartly-order-events"`
	NotificationTopic        string `envconfig:"KARTLY_PUBSUB_NOTIFICATION_TOPIC" default:"kartly-notification-events"`
	NotificationSubscription string `envconfig:"KARTLY_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KARTLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KARTLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KARTLY_OUTBOX_MAX_ATTEMPTS" default:"10"`

	ConsumerIdempotencyTTL time.Duration `envconfig:"KARTLY_EVENTING_IDEMPOTENCY_TTL" default:"168h"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"KARTLY_CRON_INTERVAL" default:"24h"`
	OutboxRetentionDays int           `envconfig:"KARTLY_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int           `envconfig:"KARTLY_CRON_DLQ_RETENTION_DAYS" default:"90"`
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
