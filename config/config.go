package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralEnvironment   string `mapstructure:"GENERAL_ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	DatabaseDbPath       string `mapstructure:"DATABASE_DB_PATH"`
	DatabaseCacheAddress string `mapstructure:"DATABASE_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DATABASE_CACHE_PORT"`
	PatientIDPrefix      string `mapstructure:"PATIENT_ID_PREFIX"`
	ExportDir            string `mapstructure:"EXPORT_DIR"`
	ImageDir             string `mapstructure:"IMAGE_DIR"`
	SeedAdminUsername    string `mapstructure:"SEED_ADMIN_USERNAME"`
	SeedAdminPassword    string `mapstructure:"SEED_ADMIN_PASSWORD"`
	LogLevel             string `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"GENERAL_ENVIRONMENT":    "development",
	"SERVER_PORT":            8280,
	"DATABASE_DB_PATH":       "data/eyeshield.db",
	"DATABASE_CACHE_ADDRESS": "",
	"DATABASE_CACHE_PORT":    0,
	"PATIENT_ID_PREFIX":      "ES",
	"EXPORT_DIR":             "data/exports",
	"IMAGE_DIR":              "data/images",
	"SEED_ADMIN_USERNAME":    "admin",
	"SEED_ADMIN_PASSWORD":    "",
	"LOG_LEVEL":              "info",
}

// InitConfig reads .env from the working directory when present, then lets
// the environment override every key.
func InitConfig() (Config, error) {
	return Load(".env")
}

func Load(envFile string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, err
			}
		}
	}

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, err
	}

	config.PatientIDPrefix = strings.ToUpper(strings.TrimSpace(config.PatientIDPrefix))
	return config, nil
}

func (c Config) IsDevelopment() bool {
	return c.GeneralEnvironment == "development"
}

func (c Config) CacheEnabled() bool {
	return c.DatabaseCacheAddress != "" && c.DatabaseCachePort != 0
}
