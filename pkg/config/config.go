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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Billing      BillingConfig
	Sweep        SweepConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Billing.Rate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORBFOOD_APP_ENV" required:"true"`
	Port         string `envconfig:"ORBFOOD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORBFOOD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORBFOOD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORBFOOD_DB_DSN"`
	Driver string `envconfig:"ORBFOOD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORBFOOD_DB_HOST"`
	LegacyPort     int    `envconfig:"ORBFOOD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORBFOOD_DB_USER"`
	LegacyPassword string `envconfig:"ORBFOOD_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORBFOOD_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORBFOOD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORBFOOD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORBFOOD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORBFOOD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORBFOOD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORBFOOD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORBFOOD_REDIS_ADDR"`
	Password     string        `envconfig:"ORBFOOD_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORBFOOD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORBFOOD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORBFOOD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORBFOOD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORBFOOD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORBFOOD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ORBFOOD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORBFOOD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORBFOOD_JWT_EXPIRATION_MINUTES" required:"true"`
}

// BillingConfig carries platform fee policy. The rate is injected rather than
// hard-coded so ops can adjust it without a deploy.
type BillingConfig struct {
	FeeRate string `envconfig:"ORBFOOD_BILLING_FEE_RATE" default:"0.05"`
}

// Rate parses the configured platform fee rate.
func (b BillingConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(b.FeeRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing billing fee rate %q: %w", b.FeeRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("billing fee rate %q out of range", b.FeeRate)
	}
	return rate, nil
}

type SweepConfig struct {
	Interval    time.Duration `envconfig:"ORBFOOD_SWEEP_INTERVAL" default:"5m"`
	BatchSize   int           `envconfig:"ORBFOOD_SWEEP_BATCH_SIZE" default:"100"`
	MetricsPort string        `envconfig:"ORBFOOD_SWEEP_METRICS_PORT" default:"9091"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORBFOOD_AUTO_MIGRATE" default:"false"`
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
