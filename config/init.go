package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	cron_config "github.com/customeros/metricsrelay/internal/cron/config"
	"github.com/customeros/metricsrelay/internal/logger"
	"github.com/customeros/metricsrelay/internal/tracing"
)

type Config struct {
	AppConfig         *AppConfig
	AuthConfig        *AuthConfig
	ProfileConfig     *ProfileConfig
	AnalyticsConfig   *AnalyticsConfig
	SinkConfig        *SinkConfig
	WarehouseConfig   *WarehouseDatabaseConfig
	CryptominerConfig *CryptominerConfig
	CronConfig        *cron_config.Config
	Logger            *logger.Config
	Tracing           *tracing.JaegerConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:         &AppConfig{},
		AuthConfig:        &AuthConfig{},
		ProfileConfig:     &ProfileConfig{},
		AnalyticsConfig:   &AnalyticsConfig{},
		SinkConfig:        &SinkConfig{},
		WarehouseConfig:   &WarehouseDatabaseConfig{},
		CryptominerConfig: &CryptominerConfig{},
		CronConfig:        &cron_config.Config{},
		Logger:            &logger.Config{},
		Tracing:           &tracing.JaegerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
