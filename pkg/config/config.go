package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pickup       PickupConfig
	Settlement   SettlementConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BITEDASH_APP_ENV" required:"true"`
	Port         string `envconfig:"BITEDASH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BITEDASH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BITEDASH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BITEDASH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BITEDASH_DB_DSN"`
	Driver string `envconfig:"BITEDASH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BITEDASH_DB_HOST"`
	LegacyPort     int    `envconfig:"BITEDASH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BITEDASH_DB_USER"`
	LegacyPassword string `envconfig:"BITEDASH_DB_PASSWORD"`
	LegacyName     string `envconfig:"BITEDASH_DB_NAME"`
	LegacySSLMode  string `envconfig:"BITEDASH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BITEDASH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BITEDASH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BITEDASH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BITEDASH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BITEDASH_REDIS_URL"`
	Address      string        `envconfig:"BITEDASH_REDIS_ADDR"`
	Password     string        `envconfig:"BITEDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"BITEDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BITEDASH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BITEDASH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BITEDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BITEDASH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BITEDASH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BITEDASH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BITEDASH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BITEDASH_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PickupConfig controls pickup token signing and freshness.
type PickupConfig struct {
	SecretKey string        `envconfig:"BITEDASH_PICKUP_SECRET_KEY" required:"true"`
	MaxAge    time.Duration `envconfig:"BITEDASH_PICKUP_TOKEN_MAX_AGE" default:"24h"`
}

// SettlementConfig carries order settlement policy knobs.
type SettlementConfig struct {
	CommissionRate string `envconfig:"BITEDASH_COMMISSION_RATE" default:"0.15"`
}

// CommissionRateDecimal parses the configured commission rate.
func (s SettlementConfig) CommissionRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(s.CommissionRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

func (s SettlementConfig) validate() error {
	rate, err := decimal.NewFromString(s.CommissionRate)
	if err != nil {
		return fmt.Errorf("invalid commission rate %q: %w", s.CommissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("commission rate %s out of range [0,1]", rate)
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BITEDASH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BITEDASH_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BITEDASH_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrderUpdatesTopic        string `envconfig:"BITEDASH_PUBSUB_ORDER_UPDATES_TOPIC" default:"bd-order-updates"`
	OrderUpdatesSubscription string `envconfig:"BITEDASH_PUBSUB_ORDER_UPDATES_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BITEDASH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BITEDASH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BITEDASH_OUTBOX_MAX_ATTEMPTS" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || strings.EqualFold(db.Driver, DBDriverSQLite) {
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
