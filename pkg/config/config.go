package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Port            string `mapstructure:"PORT"`
	Env             string `mapstructure:"ENV"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	DataPath        string `mapstructure:"DATA_PATH"`
	JWTSecret       string `mapstructure:"JWT_SECRET"`
	SyncMasterKey   string `mapstructure:"SYNC_MASTER_SECRET"`
	AdminUsername   string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword   string `mapstructure:"ADMIN_PASSWORD"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	DefaultCapacity int    `mapstructure:"DEFAULT_MAX_PER_DAY"`
}

var AppConfig Config

// Load reads configuration from config.yaml (if present) and the
// environment, applying defaults for anything unset.
func Load() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8000")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DATA_PATH", "turnover.db")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("SYNC_MASTER_SECRET", "")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_PASSWORD", "")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DEFAULT_MAX_PER_DAY", 3)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
