package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"

	FallbackMemory = "memory"
	FallbackFile   = "file"
	FallbackRedis  = "redis"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string
	HTTPAddr string

	StorageMode        string
	FallbackMode       string
	FallbackFile       string
	RemoteWriteTimeout time.Duration
	ReconcileInterval  time.Duration
	UnitsFile          string

	AdminName         string
	AdminPasswordHash string
	SessionTTL        time.Duration

	NotifyURL     string
	NotifyTimeout time.Duration
	ResendAPIKey  string
	PaymentDelay  time.Duration

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3LinkTTL   time.Duration

	CORSOrigins []string

	// Location is the zone whose calendar day counts as "today" for bookings.
	Location *time.Location
}

// Load parses configuration from the current environment. A .env file in the
// working directory is read first when present; real variables win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Env:               getEnv("APP_ENV", "dev"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		StorageMode:       strings.ToLower(getEnv("STORAGE_MODE", StorageMemory)),
		FallbackMode:      strings.ToLower(getEnv("FALLBACK_MODE", FallbackMemory)),
		FallbackFile:      getEnv("FALLBACK_FILE", "data/fallback-reservations.json"),
		UnitsFile:         os.Getenv("UNITS_FILE"),
		AdminName:         getEnv("ADMIN_NAME", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		NotifyURL:         os.Getenv("NOTIFY_URL"),
		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "villabook"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisPrefix:       getEnv("REDIS_PREFIX", "villabook:"),
		KafkaTopicPrefix:  getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "villabook-availability"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:       getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:          getEnv("S3_BUCKET", "villabook-exports"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitList(brokers)
	}
	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"REMOTE_WRITE_TIMEOUT", 5 * time.Second, &cfg.RemoteWriteTimeout},
		{"RECONCILE_INTERVAL", 30 * time.Second, &cfg.ReconcileInterval},
		{"SESSION_TTL", 8 * time.Hour, &cfg.SessionTTL},
		{"NOTIFY_TIMEOUT", 10 * time.Second, &cfg.NotifyTimeout},
		{"PAYMENT_DELAY", 1500 * time.Millisecond, &cfg.PaymentDelay},
		{"IDEMP_TTL", 24 * time.Hour, &cfg.IdempotencyTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"S3_LINK_TTL", 15 * time.Minute, &cfg.S3LinkTTL},
	}
	for _, d := range durations {
		v, err := parseDurationEnv(d.key, d.def)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	for _, raw := range strings.Split(getEnv("RETRY_BACKOFF", "1s,5s,30s"), ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	useSSL, err := parseBoolEnv("S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg.S3UseSSL = useSSL

	zone := getEnv("TIME_ZONE", "UTC")
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIME_ZONE %q: %w", zone, err)
	}
	cfg.Location = loc

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.RedisDB = redisDB

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageMode {
	case StorageMemory:
	case StorageMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
		}
	default:
		return fmt.Errorf("invalid STORAGE_MODE %q", c.StorageMode)
	}
	switch c.FallbackMode {
	case FallbackMemory, FallbackRedis:
	case FallbackFile:
		if c.FallbackFile == "" {
			return fmt.Errorf("FALLBACK_FILE is required when FALLBACK_MODE=file")
		}
	default:
		return fmt.Errorf("invalid FALLBACK_MODE %q", c.FallbackMode)
	}
	if c.RemoteWriteTimeout <= 0 {
		return fmt.Errorf("REMOTE_WRITE_TIMEOUT must be positive")
	}
	return nil
}

// MessagingEnabled reports whether events go to Kafka.
func (c Config) MessagingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// ExportsEnabled reports whether an object store is configured for CSV exports.
func (c Config) ExportsEnabled() bool {
	return c.S3Endpoint != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid %s integer: %q", key, raw)
	}
	return v, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
