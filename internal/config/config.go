package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends for orders and idempotency keys.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// ErrInvalidStorage is returned for an unknown ORDERS_STORAGE value.
var ErrInvalidStorage = errors.New("invalid storage backend")

// Config captures runtime configuration for the API service.
type Config struct {
	HTTP        HTTPConfig
	Storage     string
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Carrier     CarrierConfig
	EventBus    EventBusConfig
	Idempotency IdempotencyConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
}

type HTTPConfig struct {
	Port          int
	ShutdownGrace time.Duration
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

type KafkaConfig struct {
	Brokers           []string
	NotificationTopic string
}

// Enabled reports whether notifications should be produced to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type CarrierConfig struct {
	BaseURL string
	Timeout time.Duration
}

type EventBusConfig struct {
	ShutdownTimeout time.Duration
}

type IdempotencyConfig struct {
	TTL time.Duration
}

type TelemetryConfig struct {
	LogLevel       string
	OTelEndpoint   string
	EnableTracing  bool
	EnableMetrics  bool
	SampleRate     float64
	MetricInterval time.Duration
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort           = 8080
	defaultShutdownGrace      = 15 * time.Second
	defaultStorage            = StoragePostgres
	defaultMigrationsPath     = "migrations"
	defaultAutoMigrate        = true
	defaultNotificationTopic  = "notifications.email"
	defaultCarrierTimeout     = 5 * time.Second
	defaultBusShutdownTimeout = 10 * time.Second
	defaultIdempotencyTTL     = 24 * time.Hour
	defaultServiceName        = "orderflow-api"
	defaultServiceVersion     = "0.1.0"
	defaultEnvironment        = "development"
	defaultLogLevel           = "info"
	defaultOTelSampleRate     = 1.0
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	storage := strings.ToLower(getEnvOrDefault("ORDERS_STORAGE", defaultStorage))
	if storage != StorageMemory && storage != StoragePostgres {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStorage, storage)
	}

	carrierCfg, err := loadCarrierConfig()
	if err != nil {
		return nil, fmt.Errorf("loading carrier config: %w", err)
	}

	busTimeout, err := getDurationEnv("EVENT_BUS_SHUTDOWN_TIMEOUT", defaultBusShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("loading event bus config: %w", err)
	}

	idemTTL, err := getDurationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("loading idempotency config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		HTTP:        httpCfg,
		Storage:     storage,
		Database:    loadDatabaseConfig(),
		Kafka:       loadKafkaConfig(),
		Carrier:     carrierCfg,
		EventBus:    EventBusConfig{ShutdownTimeout: busTimeout},
		Idempotency: IdempotencyConfig{TTL: idemTTL},
		Telemetry:   telCfg,
		Service:     loadServiceConfig(),
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port := defaultHTTPPort
	if value, ok := os.LookupEnv("API_HTTP_PORT"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_HTTP_PORT: %w", err)
		}
		port = parsed
	}

	shutdownGrace, err := getDurationEnv("API_SHUTDOWN_GRACE", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		Port:          port,
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	autoMigrate := getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate)
	migrationsPath := getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath)

	return DatabaseConfig{
		URL:            databaseURL,
		AutoMigrate:    autoMigrate,
		MigrationsPath: migrationsPath,
	}
}

func loadKafkaConfig() KafkaConfig {
	var brokers []string
	if value, ok := os.LookupEnv("KAFKA_BROKERS"); ok && value != "" {
		for _, broker := range strings.Split(value, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	return KafkaConfig{
		Brokers:           brokers,
		NotificationTopic: getEnvOrDefault("KAFKA_NOTIFICATION_TOPIC", defaultNotificationTopic),
	}
}

func loadCarrierConfig() (CarrierConfig, error) {
	timeout, err := getDurationEnv("CARRIER_TIMEOUT", defaultCarrierTimeout)
	if err != nil {
		return CarrierConfig{}, err
	}

	return CarrierConfig{
		BaseURL: getEnvOrDefault("CARRIER_BASE_URL", ""),
		Timeout: timeout,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", defaultLogLevel)
	otelEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	enableTracing := getBoolEnv("OTEL_ENABLE_TRACING", true)
	enableMetrics := getBoolEnv("OTEL_ENABLE_METRICS", true)

	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	metricInterval, err := getDurationEnv("OTEL_METRIC_EXPORT_INTERVAL", 0)
	if err != nil {
		return TelemetryConfig{}, err
	}

	return TelemetryConfig{
		LogLevel:       logLevel,
		OTelEndpoint:   otelEndpoint,
		EnableTracing:  enableTracing,
		EnableMetrics:  enableMetrics,
		SampleRate:     sampleRate,
		MetricInterval: metricInterval,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "orderflow")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
