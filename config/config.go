package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env Environment `mapstructure:"-"`

	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Session   SessionConfig   `mapstructure:"session"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"ssl_mode"`
	SQLitePath string `mapstructure:"sqlite_path"`

	// MigrationsDir holds the SQL migrations applied at startup on postgres.
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL returns the PostgreSQL connection URL used by lib/pq.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	// Store is "redis" or "database".
	Store   string        `mapstructure:"store"`
	TTL     time.Duration `mapstructure:"ttl"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

type ScoringConfig struct {
	// TablePath points at a Nutri-Score points table; empty uses the built-in one.
	TablePath string `mapstructure:"table_path"`
}

type StorageConfig struct {
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	Endpoint      string        `mapstructure:"endpoint"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// Enabled reports whether history export has somewhere to write.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string][]string{
	"server.host":             {"SERVER_HOST"},
	"server.port":             {"SERVER_PORT"},
	"server.allowed_origins":  {"ALLOWED_ORIGINS"},
	"database.driver":         {"DB_DRIVER"},
	"database.host":           {"DB_HOST"},
	"database.port":           {"DB_PORT"},
	"database.user":           {"DB_USER"},
	"database.password":       {"DB_PASSWORD", "TEST_DB_PASSWORD"},
	"database.name":           {"DB_NAME"},
	"database.ssl_mode":       {"DB_SSL_MODE"},
	"database.sqlite_path":    {"DB_SQLITE_PATH"},
	"database.migrations_dir": {"DB_MIGRATIONS_DIR"},
	"redis.url":               {"REDIS_URL", "TEST_REDIS_URL"},
	"redis.host":              {"REDIS_HOST"},
	"redis.port":              {"REDIS_PORT"},
	"redis.password":          {"REDIS_PASSWORD", "TEST_REDIS_PASSWORD"},
	"jwt.secret":              {"JWT_SECRET", "TEST_JWT_SECRET"},
	"jwt.issuer":              {"JWT_ISSUER"},
	"session.store":           {"SESSION_STORE"},
	"session.ttl":             {"SESSION_TTL"},
	"session.lock_ttl":        {"SESSION_LOCK_TTL"},
	"scoring.table_path":      {"NUTRISCORE_TABLE"},
	"storage.bucket":          {"S3_BUCKET_NAME"},
	"storage.region":          {"AWS_REGION"},
	"storage.endpoint":        {"S3_ENDPOINT"},
	"storage.presign_expiry":  {"S3_PRESIGN_EXPIRY"},
	"rate_limit.enabled":      {"RATE_LIMIT_ENABLED"},
	"rate_limit.requests":     {"RATE_LIMIT_REQUESTS"},
	"rate_limit.window":       {"RATE_LIMIT_WINDOW"},
	"log.level":               {"LOG_LEVEL"},
	"log.format":              {"LOG_FORMAT"},
}

// secretBindings maps config keys to Docker secret file names. Secrets win
// over environment variables outside CI.
var secretBindings = map[string]string{
	"database.user":     "db_user",
	"database.password": "db_password",
	"jwt.secret":        "jwt_secret",
	"redis.password":    "redis_password",
	"redis.url":         "redis_url",
}

// LoadConfig creates a new Config instance with values from defaults, an
// optional .env file, environment variables and Docker secrets.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	env := GetEnvironment()
	v := viper.New()
	setDefaults(v, env)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if env != CI {
		for key, name := range secretBindings {
			if value := readSecret(name); value != "" {
				v.Set(key, value)
			}
		}
	}

	cfg := &Config{Env: env}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, env Environment) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "nutrichef")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "nutrichef.db")
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.issuer", "nutrichef")
	v.SetDefault("jwt.ttl", "24h")

	v.SetDefault("session.store", "database")
	v.SetDefault("session.ttl", "6h")
	v.SetDefault("session.lock_ttl", "5s")

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presign_expiry", "15m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	if env == Production {
		v.SetDefault("log.format", "json")
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
