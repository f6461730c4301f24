package config

import (
	"time"
)

type AppConfig struct {
	APIPort             string        `env:"PORT,required" envDefault:"8080"`
	DocsDir             string        `env:"DOCS_DIR"`
	FailedRequestDelay  time.Duration `env:"FAILED_REQUEST_DELAY" envDefault:"10s"`
	LogSinkFailureFatal bool          `env:"LOG_SINK_FAILURE_FATAL" envDefault:"true"`
	MaxBodyBytes        int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type AuthConfig struct {
	IdentityURL    string        `env:"IDENTITY_URL,required"`
	CacheTTL       time.Duration `env:"AUTH_CACHE_TTL" envDefault:"5m"`
	CacheCapacity  int           `env:"AUTH_CACHE_CAPACITY" envDefault:"10000"`
	RequestTimeout time.Duration `env:"IDENTITY_REQUEST_TIMEOUT" envDefault:"30s"`
}

type ProfileConfig struct {
	ProfileURL     string        `env:"PROFILE_URL,required"`
	RequestTimeout time.Duration `env:"PROFILE_REQUEST_TIMEOUT" envDefault:"30s"`
}

type AnalyticsConfig struct {
	Url             string        `env:"ANALYTICS_URL" envDefault:"https://api.mixpanel.com"`
	Token           string        `env:"ANALYTICS_TOKEN"`
	TokenSecretName string        `env:"ANALYTICS_TOKEN_SECRET_NAME" envDefault:"mixpanel-api"`
	AWSRegion       string        `env:"AWS_REGION"`
	RequestTimeout  time.Duration `env:"ANALYTICS_REQUEST_TIMEOUT" envDefault:"30s"`
}

type SinkConfig struct {
	// any of: log, rabbitmq, warehouse
	Sinks       []string `env:"LOG_SINKS" envDefault:"log"`
	LogName     string   `env:"LOG_SINK_NAME" envDefault:"metrics"`
	RabbitMQURL string   `env:"RABBITMQ_URL"`
}

type WarehouseDatabaseConfig struct {
	Host            string `env:"WAREHOUSE_POSTGRES_HOST"`
	Port            string `env:"WAREHOUSE_POSTGRES_PORT" envDefault:"5432"`
	User            string `env:"WAREHOUSE_POSTGRES_USER"`
	DBName          string `env:"WAREHOUSE_POSTGRES_DB_NAME"`
	Password        string `env:"WAREHOUSE_POSTGRES_PASSWORD"`
	MaxConn         int    `env:"WAREHOUSE_POSTGRES_DB_MAX_CONN" envDefault:"20"`
	MaxIdleConn     int    `env:"WAREHOUSE_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"5"`
	ConnMaxLifetime int    `env:"WAREHOUSE_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"WAREHOUSE_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"WAREHOUSE_POSTGRES_SSL_MODE" envDefault:"require"`
}

type CryptominerConfig struct {
	Enabled bool   `env:"CRYPTOMINER_LISTENER_ENABLED" envDefault:"false"`
	Queue   string `env:"CRYPTOMINER_QUEUE" envDefault:"flag-cryptominer"`
}
