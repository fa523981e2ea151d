package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	HTTP    ServerConfig
	MySQL   MySQLConfig
	Redis   RedisConfig
	Log     LogConfig
	Auth    AuthConfig
	Secrets SecretsConfig
	Orders  OrdersConfig
	Jobs    JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	MaintenanceKey string
}

type LogConfig struct {
	Level string
}

type AuthConfig struct {
	ServiceURL  string
	HTTPTimeout time.Duration
}

type SecretsConfig struct {
	MasterKey string
}

type OrdersConfig struct {
	WebhookEventRetention time.Duration
	PendingReminderAge    time.Duration
	JobBatchSize          int32
	InvoiceBaseURL        string
}

type JobsConfig struct {
	PurgeWebhookEventsInterval time.Duration
	RemindPendingInterval      time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "orders-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getIntEnv("REDIS_DB", 0),
			MaintenanceKey: getEnv("REDIS_MAINTENANCE_KEY", "platform:maintenance"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			ServiceURL:  getEnv("AUTH_SERVICE_URL", "http://localhost:8081"),
			HTTPTimeout: getSecondsEnv("AUTH_HTTP_TIMEOUT_SECONDS", 5*time.Second),
		},
		Secrets: SecretsConfig{
			MasterKey: getEnv("SECRETS_MASTER_KEY", ""),
		},
		Orders: OrdersConfig{
			WebhookEventRetention: getDaysEnv("WEBHOOK_EVENT_RETENTION_DAYS", 7*24*time.Hour),
			PendingReminderAge:    getMinutesEnv("ORDERS_PENDING_REMINDER_AGE_MINUTES", 24*time.Hour),
			JobBatchSize:          int32(getIntEnv("ORDERS_JOB_BATCH_SIZE", 100)),
			InvoiceBaseURL:        getEnv("ORDERS_INVOICE_BASE_URL", ""),
		},
		Jobs: JobsConfig{
			PurgeWebhookEventsInterval: getMinutesEnv("JOBS_PURGE_WEBHOOK_EVENTS_INTERVAL_MINUTES", 60*time.Minute),
			RemindPendingInterval:      getMinutesEnv("JOBS_REMIND_PENDING_INTERVAL_MINUTES", 60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getDaysEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if days, err := strconv.Atoi(value); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	return defaultValue
}
