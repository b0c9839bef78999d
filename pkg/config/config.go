package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the app reads.
const EnvPrefix = "CONDISC"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "CONDISC_APP_ENV"
	EnvPort   = "CONDISC_APP_PORT"
	EnvDBDSN  = "CONDISC_DB_DSN"
	EnvDBHost = "CONDISC_DB_HOST"
	EnvDBUser = "CONDISC_DB_USER"
	EnvDBName = "CONDISC_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Shopify      ShopifyConfig
	Collections  CollectionsConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONDISC_APP_ENV" required:"true"`
	Port         string `envconfig:"CONDISC_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CONDISC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONDISC_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CONDISC_DB_DSN"`
	Driver string `envconfig:"CONDISC_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CONDISC_DB_HOST"`
	LegacyPort     int    `envconfig:"CONDISC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CONDISC_DB_USER"`
	LegacyPassword string `envconfig:"CONDISC_DB_PASSWORD"`
	LegacyName     string `envconfig:"CONDISC_DB_NAME"`
	LegacySSLMode  string `envconfig:"CONDISC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CONDISC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONDISC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONDISC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONDISC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONDISC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CONDISC_REDIS_ADDR"`
	Password     string        `envconfig:"CONDISC_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONDISC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONDISC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONDISC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONDISC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONDISC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONDISC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ShopifyConfig carries the Admin API credentials plus the metafield
// coordinates the rule config blob is synchronized to.
type ShopifyConfig struct {
	AdminToken         string        `envconfig:"CONDISC_SHOPIFY_ADMIN_TOKEN" required:"true"`
	APIVersion         string        `envconfig:"CONDISC_SHOPIFY_API_VERSION" default:"2025-07"`
	FunctionID         string        `envconfig:"CONDISC_SHOPIFY_FUNCTION_ID"`
	MetafieldNamespace string        `envconfig:"CONDISC_SHOPIFY_METAFIELD_NAMESPACE" default:"conditional-discount"`
	MetafieldKey       string        `envconfig:"CONDISC_SHOPIFY_METAFIELD_KEY" default:"rule-config"`
	HTTPTimeout        time.Duration `envconfig:"CONDISC_SHOPIFY_HTTP_TIMEOUT" default:"10s"`
}

type CollectionsConfig struct {
	CacheTTL  time.Duration `envconfig:"CONDISC_COLLECTIONS_CACHE_TTL" default:"5m"`
	PageLimit int           `envconfig:"CONDISC_COLLECTIONS_PAGE_LIMIT" default:"250"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CONDISC_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CONDISC_AUTO_MIGRATE" default:"false"`
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
