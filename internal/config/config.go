package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DevJWTSecret is only acceptable outside production.
const DevJWTSecret = "dev-only-change-me-userhub-signing-key"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env  string `envconfig:"APP_ENV" default:"dev"`
	Port int    `envconfig:"PORT" default:"8080"`

	// embedded so envconfig reads the groups' keys without a prefix
	DB
	JWT
	Admin
	Redis
	HTTP
	Tracer

	BcryptCost    int  `envconfig:"BCRYPT_COST" default:"10"`
	SeedDemoUsers bool `envconfig:"SEED_DEMO_USERS" default:"false"`
}

type DB struct {
	// Driver is postgres or sqlite. Empty picks postgres when a Postgres
	// URL or host is configured and sqlite otherwise.
	Driver      string        `envconfig:"DB_DRIVER"`
	URL         string        `envconfig:"DB_URL"`
	Host        string        `envconfig:"DB_HOST"`
	Port        string        `envconfig:"DB_PORT" default:"5432"`
	User        string        `envconfig:"DB_USER" default:"userhub"`
	Password    string        `envconfig:"DB_PASSWORD" default:"userhub"`
	Name        string        `envconfig:"DB_NAME" default:"userhub"`
	SSLMode     string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int32         `envconfig:"DB_MAX_CONNS" default:"5"`
	SQLitePath  string        `envconfig:"SQLITE_PATH" default:"userhub.db"`
	AutoMigrate bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	Timeout     time.Duration `envconfig:"DB_TIMEOUT" default:"5s"`
}

type JWT struct {
	Secret   string `envconfig:"JWT_SECRET"`
	Issuer   string `envconfig:"JWT_ISSUER" default:"userhub"`
	Audience string `envconfig:"JWT_AUDIENCE" default:"userhub-dashboard"`
}

type Admin struct {
	Username string `envconfig:"ADMIN_USERNAME"`
	Email    string `envconfig:"ADMIN_EMAIL"`
	Password string `envconfig:"ADMIN_PASSWORD"`
}

type Redis struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type HTTP struct {
	LoginRateLimit  int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`
	CORSOrigins     []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"1048576"`
}

type Tracer struct {
	Endpoint    string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"userhub-api"`
}

// Load reads a .env file (outside production) and then the environment.
func Load() (Config, error) {
	if !isProductionEnv(os.Getenv("APP_ENV")) {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if cfg.JWT.Secret == "" {
		if cfg.IsProduction() {
			return Config{}, errors.New("JWT_SECRET must be set in production")
		}
		cfg.JWT.Secret = DevJWTSecret
	}
	if cfg.IsProduction() && cfg.JWT.Secret == DevJWTSecret {
		return Config{}, errors.New("refusing to start with the development JWT secret")
	}

	switch cfg.DB.Driver {
	case "":
		cfg.DB.Driver = DriverSQLite
		if cfg.DB.URL != "" || cfg.DB.Host != "" {
			cfg.DB.Driver = DriverPostgres
		}
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return isProductionEnv(c.Env)
}

func isProductionEnv(env string) bool {
	return strings.EqualFold(env, "prod") || strings.EqualFold(env, "production")
}

// PostgresURL returns DB_URL or builds one from the DB_* parts.
func (d DB) PostgresURL() string {
	if d.URL != "" {
		return d.URL
	}

	host := d.Host
	if host == "" {
		host = "127.0.0.1"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   host + ":" + d.Port,
		User:   url.UserPassword(d.User, d.Password),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()

	return u.String()
}

func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}
