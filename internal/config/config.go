/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the billing-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	ImportEventExchange  string `mapstructure:"IMPORT_EVENT_EXCHANGE"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`

	// Billing provider API credentials.
	OVHEndpoint    string `mapstructure:"OVH_ENDPOINT"`
	OVHAppKey      string `mapstructure:"OVH_APP_KEY"`
	OVHAppSecret   string `mapstructure:"OVH_APP_SECRET"`
	OVHConsumerKey string `mapstructure:"OVH_CONSUMER_KEY"`

	// Import pipeline tuning.
	ImportBatchSize int    `mapstructure:"IMPORT_BATCH_SIZE"`
	ImportSchedule  string `mapstructure:"IMPORT_SCHEDULE"` // cron expression; empty disables scheduled imports

	// API rate limiting (fixed window per client IP).
	RateLimitRequests int           `mapstructure:"RATE_LIMIT_REQUESTS"`
	RateLimitWindow   time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`

	// Dashboard hints exposed on /api/config.
	DashboardBudget   float64 `mapstructure:"DASHBOARD_BUDGET"`
	DashboardCurrency string  `mapstructure:"DASHBOARD_CURRENCY"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("OVH_ENDPOINT", "https://eu.api.ovh.com/1.0")
	viper.SetDefault("IMPORT_EVENT_EXCHANGE", "billing.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "billing:rate_limit")
	viper.SetDefault("IMPORT_BATCH_SIZE", 80)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_WINDOW", "15m")
	viper.SetDefault("DASHBOARD_BUDGET", 50000.0)
	viper.SetDefault("DASHBOARD_CURRENCY", "EUR")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("IMPORT_EVENT_EXCHANGE")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "BILLING_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("OVH_ENDPOINT")
	_ = viper.BindEnv("OVH_APP_KEY")
	_ = viper.BindEnv("OVH_APP_SECRET")
	_ = viper.BindEnv("OVH_CONSUMER_KEY")
	_ = viper.BindEnv("IMPORT_BATCH_SIZE")
	_ = viper.BindEnv("IMPORT_SCHEDULE")
	_ = viper.BindEnv("RATE_LIMIT_REQUESTS")
	_ = viper.BindEnv("RATE_LIMIT_WINDOW")
	_ = viper.BindEnv("DASHBOARD_BUDGET")
	_ = viper.BindEnv("DASHBOARD_CURRENCY")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("BILLING_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "billing:rate_limit"
	}
	config.ImportSchedule = strings.TrimSpace(config.ImportSchedule)

	if config.ImportBatchSize <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive import batch size; using default\" value=%d", config.ImportBatchSize)
		config.ImportBatchSize = 80
	}
	if config.RateLimitRequests < 0 {
		log.Printf("level=warn component=config msg=\"negative rate limit configured; disabling rate limiting\" value=%d", config.RateLimitRequests)
		config.RateLimitRequests = 0
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = 15 * time.Minute
	}
	if config.DashboardBudget < 0 {
		config.DashboardBudget = 0
	}
	if strings.TrimSpace(config.DashboardCurrency) == "" {
		config.DashboardCurrency = "EUR"
	}

	return
}
