package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Verification VerificationConfig
	Cache        KeySpace
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                 string
	Password             string
	DB                   int
	OperationTimeoutMsec int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and password parameters.
type AuthConfig struct {
	JWTSecret          string
	TokenValidityHours int
	BcryptCost         int
}

// VerificationConfig defines email verification code behavior.
type VerificationConfig struct {
	CodeTTLSeconds     int
	LimitWindowSeconds int
}

// NotificationConfig describes the mail queue.
type NotificationConfig struct {
	Transport         string
	Stream            string
	Group             string
	Consumer          string
	StreamMaxLen      int64
	EmailFrom         string
	WorkerEnabled     bool
	RetryEverySeconds int
	MaxAttempts       int
	MemoryQueueSize   int
}

// Notification transports.
const (
	TransportRedis  = "redis"
	TransportMemory = "memory"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	hostname, _ := os.Hostname()

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "dorm-manager-backend"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:                 getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:             os.Getenv("REDIS_PASSWORD"),
			DB:                   redisDB,
			OperationTimeoutMsec: getEnvAsInt("REDIS_OPERATION_TIMEOUT_MS", 500),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("AUTH_JWT_SECRET", ""),
			TokenValidityHours: getEnvAsInt("AUTH_TOKEN_VALIDITY_HOURS", 7*24),
			BcryptCost:         getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Verification: VerificationConfig{
			CodeTTLSeconds:     getEnvAsInt("VERIFY_CODE_TTL_SECONDS", 180),
			LimitWindowSeconds: getEnvAsInt("VERIFY_LIMIT_WINDOW_SECONDS", 60),
		},
		Cache: DefaultKeySpace(os.Getenv("CACHE_NAMESPACE")),
		Notification: NotificationConfig{
			Transport:         getEnv("NOTIFY_TRANSPORT", TransportRedis),
			Stream:            getEnv("NOTIFY_STREAM", "mail"),
			Group:             getEnv("NOTIFY_GROUP", "mailer"),
			Consumer:          getEnv("NOTIFY_CONSUMER", hostname),
			StreamMaxLen:      int64(getEnvAsInt("NOTIFY_STREAM_MAX_LEN", 10000)),
			EmailFrom:         getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WorkerEnabled:     getEnvAsBool("NOTIFY_WORKER_ENABLED", true),
			RetryEverySeconds: getEnvAsInt("NOTIFY_RETRY_SECONDS", 30),
			MaxAttempts:       getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 5),
			MemoryQueueSize:   getEnvAsInt("NOTIFY_MEMORY_QUEUE_SIZE", 256),
		},
	}

	if cfg.App.Env == "development" && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that defaults cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Auth.TokenValidityHours <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_VALIDITY_HOURS must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, errors.New("AUTH_BCRYPT_COST must be between 4 and 31"))
	}
	if c.Verification.CodeTTLSeconds <= 0 {
		errs = append(errs, errors.New("VERIFY_CODE_TTL_SECONDS must be positive"))
	}
	if c.Verification.LimitWindowSeconds <= 0 {
		errs = append(errs, errors.New("VERIFY_LIMIT_WINDOW_SECONDS must be positive"))
	}
	switch c.Notification.Transport {
	case TransportRedis, TransportMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", c.Notification.Transport))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// OperationTimeout bounds each individual call to the shared cache.
func (r RedisConfig) OperationTimeout() time.Duration {
	if r.OperationTimeoutMsec <= 0 {
		return 0
	}
	return time.Duration(r.OperationTimeoutMsec) * time.Millisecond
}

// TokenValidity returns how long issued tokens stay valid.
func (a AuthConfig) TokenValidity() time.Duration {
	return time.Duration(a.TokenValidityHours) * time.Hour
}

// CodeTTL returns the lifetime of a verification code.
func (v VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(v.CodeTTLSeconds) * time.Second
}

// LimitWindow returns the debounce window for code requests.
// RetryEvery is the interval between sweeps of pending mail entries.
func (n NotificationConfig) RetryEvery() time.Duration {
	return time.Duration(n.RetryEverySeconds) * time.Second
}

func (v VerificationConfig) LimitWindow() time.Duration {
	return time.Duration(v.LimitWindowSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
