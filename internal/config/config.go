package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port        string
	Origin      string
	Environment string
	JWTSecret   string
	AppURL      string
	Database    DatabaseConfig
	Gateway     GatewayConfig
	Webhook     WebhookConfig
	Messaging   MessagingConfig
	Jobs        JobsConfig
	Tracing     TracingConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// GatewayConfig holds the payment processor settings
type GatewayConfig struct {
	Mode       string
	BaseURL    string
	ShopID     string
	SecretKey  string
	ReturnURL  string
	Timeout    time.Duration
	MaxRetries int
}

// WebhookConfig holds inbound webhook settings
type WebhookConfig struct {
	Secret    string
	Retention time.Duration
}

// MessagingConfig holds RabbitMQ settings. An empty URL disables the broker.
type MessagingConfig struct {
	RabbitURL             string
	EventsExchange        string
	NotificationsExchange string
}

// JobsConfig holds background job intervals
type JobsConfig struct {
	ReconcileInterval time.Duration
	PruneInterval     time.Duration
}

// TracingConfig holds OpenTelemetry settings. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

const (
	GatewayModeYooKassa = "yookassa"
	GatewayModeSandbox  = "sandbox"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "practice"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	gatewayTimeout, err := getEnvInt("GATEWAY_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	gatewayRetries, err := getEnvInt("GATEWAY_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}

	gatewayConfig := GatewayConfig{
		Mode:       getEnv("GATEWAY_MODE", GatewayModeSandbox),
		BaseURL:    getEnv("GATEWAY_BASE_URL", "https://api.yookassa.ru/v3"),
		ShopID:     getEnv("GATEWAY_SHOP_ID", ""),
		SecretKey:  getEnv("GATEWAY_SECRET_KEY", ""),
		ReturnURL:  getEnv("GATEWAY_RETURN_URL", "http://localhost:4200/booking/complete"),
		Timeout:    time.Duration(gatewayTimeout) * time.Second,
		MaxRetries: gatewayRetries,
	}
	if gatewayConfig.Mode != GatewayModeYooKassa && gatewayConfig.Mode != GatewayModeSandbox {
		return nil, fmt.Errorf("invalid GATEWAY_MODE: %q", gatewayConfig.Mode)
	}
	if gatewayConfig.Mode == GatewayModeYooKassa && (gatewayConfig.ShopID == "" || gatewayConfig.SecretKey == "") {
		return nil, fmt.Errorf("GATEWAY_SHOP_ID and GATEWAY_SECRET_KEY are required in %s mode", GatewayModeYooKassa)
	}

	retentionHours, err := getEnvInt("WEBHOOK_RETENTION_HOURS", 720) // 30 days
	if err != nil {
		return nil, err
	}

	reconcileSeconds, err := getEnvInt("RECONCILE_INTERVAL_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	pruneMinutes, err := getEnvInt("PRUNE_INTERVAL_MINUTES", 60)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:        getEnv("PORT", "3001"),
		Origin:      getEnv("ORIGIN", "http://localhost:4200"),
		Environment: getEnv("APP_ENV", getEnv("NODE_ENV", "development")),
		JWTSecret:   getEnv("JWT_SECRET", "default_jwt_secret"),
		AppURL:      getEnv("APP_URL", "http://localhost:3001"),
		Database:    dbConfig,
		Gateway:     gatewayConfig,
		Webhook: WebhookConfig{
			Secret:    getEnv("WEBHOOK_SECRET", ""),
			Retention: time.Duration(retentionHours) * time.Hour,
		},
		Messaging: MessagingConfig{
			RabbitURL:             getEnv("RABBIT_URL", ""),
			EventsExchange:        getEnv("EVENTS_EXCHANGE", "booking.exchange"),
			NotificationsExchange: getEnv("NOTIFICATIONS_EXCHANGE", "notification.exchange"),
		},
		Jobs: JobsConfig{
			ReconcileInterval: time.Duration(reconcileSeconds) * time.Second,
			PruneInterval:     time.Duration(pruneMinutes) * time.Minute,
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "practice-server"),
		},
	}, nil
}

// IsDevelopment reports whether the server runs with development defaults
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return value, nil
}
