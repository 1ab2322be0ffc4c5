package config

import (
	"spruce/internal/logger"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string  `mapstructure:"GENERAL_VERSION"`
	Environment          string  `mapstructure:"ENVIRONMENT"`
	ServerPort           int     `mapstructure:"SERVER_PORT"`
	DatabaseHost         string  `mapstructure:"DB_HOST"`
	DatabasePort         int     `mapstructure:"DB_PORT"`
	DatabaseName         string  `mapstructure:"DB_NAME"`
	DatabaseUser         string  `mapstructure:"DB_USER"`
	DatabasePassword     string  `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string  `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int     `mapstructure:"DB_CACHE_PORT"`
	CorsAllowOrigins     string  `mapstructure:"CORS_ALLOW_ORIGINS"`
	AuthJWTSecret        string  `mapstructure:"AUTH_JWT_SECRET"`
	GatewayBaseURL       string  `mapstructure:"GATEWAY_BASE_URL"`
	GatewayAPIKey        string  `mapstructure:"GATEWAY_API_KEY"`
	GatewayWebhookSecret string  `mapstructure:"GATEWAY_WEBHOOK_SECRET"`
	SchedulerEnabled     bool    `mapstructure:"SCHEDULER_ENABLED"`
	PlatformFeePercent   float64 `mapstructure:"PLATFORM_FEE_PERCENT"`
	CancellationWindow   int     `mapstructure:"CANCELLATION_WINDOW_DAYS"`
	CancellationFee      float64 `mapstructure:"CANCELLATION_FEE"`
	AutoApproveHours     int     `mapstructure:"AUTO_APPROVE_HOURS"`
	HorizonWeeksWeekly   int     `mapstructure:"HORIZON_WEEKS_WEEKLY"`
	HorizonWeeksBiweekly int     `mapstructure:"HORIZON_WEEKS_BIWEEKLY"`
	HorizonWeeksMonthly  int     `mapstructure:"HORIZON_WEEKS_MONTHLY"`
}

var ConfigInstance Config

func InitConfig() (Config, error) {
	log := logger.New("config").Function("InitConfig")
	log.Info("Initializing config")

	// Enable automatic environment variable reading first
	viper.AutomaticEnv()

	// Bind environment variables to config keys
	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT",
		"CORS_ALLOW_ORIGINS", "AUTH_JWT_SECRET",
		"GATEWAY_BASE_URL", "GATEWAY_API_KEY", "GATEWAY_WEBHOOK_SECRET",
		"SCHEDULER_ENABLED", "PLATFORM_FEE_PERCENT", "CANCELLATION_WINDOW_DAYS", "CANCELLATION_FEE",
		"AUTO_APPROVE_HOURS", "HORIZON_WEEKS_WEEKLY", "HORIZON_WEEKS_BIWEEKLY", "HORIZON_WEEKS_MONTHLY",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	setDefaults()

	// Check if key environment variables are already set
	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("DB_HOST")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		// Load base .env file
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		// Load .env.local overrides if it exists
		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	log.Info("Successfully initialized config")
	err := validateConfig(config, log)
	if err != nil {
		return Config{}, err
	}
	return ConfigInstance, nil
}

func setDefaults() {
	viper.SetDefault("PLATFORM_FEE_PERCENT", 0.10)
	viper.SetDefault("CANCELLATION_WINDOW_DAYS", 7)
	viper.SetDefault("CANCELLATION_FEE", 25.0)
	viper.SetDefault("AUTO_APPROVE_HOURS", 48)
	viper.SetDefault("HORIZON_WEEKS_WEEKLY", 4)
	viper.SetDefault("HORIZON_WEEKS_BIWEEKLY", 8)
	viper.SetDefault("HORIZON_WEEKS_MONTHLY", 12)
}

func GetConfig() Config {
	return ConfigInstance
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	if config.PlatformFeePercent < 0 || config.PlatformFeePercent > 1 {
		return log.Error(
			"Fatal error: platform fee percent must be between 0 and 1",
			"percent", config.PlatformFeePercent,
		)
	}

	if config.CancellationWindow < 0 {
		return log.Error(
			"Fatal error: cancellation window must not be negative",
			"days", config.CancellationWindow,
		)
	}

	if config.GatewayBaseURL != "" && config.GatewayAPIKey == "" {
		return log.ErrMsg(
			"Fatal error: GATEWAY_API_KEY required when GATEWAY_BASE_URL is set",
		)
	}

	ConfigInstance = config
	return nil
}
