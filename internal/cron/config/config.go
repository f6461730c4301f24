package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Drop expired auth cache entries, every 30 seconds
	CronScheduleAuthCachePurge string `env:"CRON_SCHEDULE_AUTH_CACHE_PURGE" envDefault:"*/30 * * * * *"`
}
