package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	App struct {
		Environment string
		LogLevel    string
		ListenAddr  string
	}

	Feed struct {
		Interval       time.Duration
		TickWindow     int
		BootstrapTicks int
		CandleLimit    int
	}

	Trading struct {
		SettlementInterval time.Duration
		TieEpsilon         float64
	}

	Funds struct {
		DemoSeed           float64
		ReferralPercentage float64
		MinDeposit         float64
		MaxDeposit         float64
		MinWithdrawal      float64
		MaxWithdrawal      float64
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	ClickHouse struct {
		Host          string
		Port          int
		User          string
		Password      string
		Database      string
		FlushInterval time.Duration
		BatchSize     int
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// App settings
	cfg.App.Environment = getEnvOrDefault("APP_ENV", "production")
	cfg.App.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.App.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")

	// Feed settings
	cfg.Feed.Interval = time.Duration(getEnvAsIntOrDefault("FEED_INTERVAL_MS", 250)) * time.Millisecond
	cfg.Feed.TickWindow = getEnvAsIntOrDefault("FEED_TICK_WINDOW", 400)
	cfg.Feed.BootstrapTicks = getEnvAsIntOrDefault("FEED_BOOTSTRAP_TICKS", 400)
	cfg.Feed.CandleLimit = getEnvAsIntOrDefault("FEED_CANDLE_LIMIT", 400)

	// Trading settings
	cfg.Trading.SettlementInterval = time.Duration(getEnvAsIntOrDefault("SETTLEMENT_INTERVAL_MS", 500)) * time.Millisecond
	cfg.Trading.TieEpsilon = getEnvAsFloatOrDefault("SETTLEMENT_TIE_EPSILON", 0.00001)

	// Funds settings
	cfg.Funds.DemoSeed = getEnvAsFloatOrDefault("DEMO_SEED_BALANCE", 10000)
	cfg.Funds.ReferralPercentage = getEnvAsFloatOrDefault("REFERRAL_PERCENTAGE", 1)
	cfg.Funds.MinDeposit = getEnvAsFloatOrDefault("MIN_DEPOSIT", 100)
	cfg.Funds.MaxDeposit = getEnvAsFloatOrDefault("MAX_DEPOSIT", 50000)
	cfg.Funds.MinWithdrawal = getEnvAsFloatOrDefault("MIN_WITHDRAWAL", 500)
	cfg.Funds.MaxWithdrawal = getEnvAsFloatOrDefault("MAX_WITHDRAWAL", 25000)

	// Redis settings (persistence port; empty addr keeps state in memory only)
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = getEnvAsIntOrDefault("REDIS_DB", 0)

	// ClickHouse settings (archive sink; empty host disables archiving)
	cfg.ClickHouse.Host = os.Getenv("CLICKHOUSE_HOST")
	cfg.ClickHouse.Port = getEnvAsIntOrDefault("CLICKHOUSE_PORT", 9000)
	cfg.ClickHouse.User = getEnvOrDefault("CLICKHOUSE_USER", "default")
	cfg.ClickHouse.Password = os.Getenv("CLICKHOUSE_PASSWORD")
	cfg.ClickHouse.Database = getEnvOrDefault("CLICKHOUSE_DB", "default")
	cfg.ClickHouse.FlushInterval = time.Duration(getEnvAsIntOrDefault("CLICKHOUSE_FLUSH_SECS", 5)) * time.Second
	cfg.ClickHouse.BatchSize = getEnvAsIntOrDefault("CLICKHOUSE_BATCH_SIZE", 1000)

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
