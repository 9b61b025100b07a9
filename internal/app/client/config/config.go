package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".docsync"
	defaultCollection    = "documents"
	defaultStrategy      = "lww"
)

type Config struct {
	Env              string `mapstructure:"app_env"`
	ServerAddress    string `mapstructure:"server_address"`
	LogLevel         string `mapstructure:"log_level"`
	ConfigDir        string `mapstructure:"config_dir"`
	DataPath         string `mapstructure:"data_path"`
	Collection       string `mapstructure:"collection"`
	ScopeID          string `mapstructure:"scope_id"`
	SyncInterval     int    `mapstructure:"sync_interval_seconds"`
	ConflictStrategy string `mapstructure:"conflict_strategy"`
	PreferLocalOnTie bool   `mapstructure:"prefer_local_on_tie"`
	TombstoneTTL     int    `mapstructure:"tombstone_ttl_hours"`
	EnableTLS        bool   `mapstructure:"enable_tls"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("COLLECTION", defaultCollection)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 300)
	viper.SetDefault("CONFLICT_STRATEGY", defaultStrategy)
	viper.SetDefault("TOMBSTONE_TTL_HOURS", 720)
	viper.SetDefault("ENABLE_TLS", false)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Printf("Ошибка создания директории конфигурации: %v\n", err)
	}

	dataPath := filepath.Join(configDir, "data.db")

	config := &Config{
		Env:              viper.GetString("APP_ENV"),
		ServerAddress:    viper.GetString("SERVER_ADDRESS"),
		LogLevel:         viper.GetString("LOG_LEVEL"),
		ConfigDir:        configDir,
		DataPath:         dataPath,
		Collection:       viper.GetString("COLLECTION"),
		ScopeID:          viper.GetString("SCOPE_ID"),
		SyncInterval:     viper.GetInt("SYNC_INTERVAL_SECONDS"),
		ConflictStrategy: viper.GetString("CONFLICT_STRATEGY"),
		PreferLocalOnTie: viper.GetBool("PREFER_LOCAL_ON_TIE"),
		TombstoneTTL:     viper.GetInt("TOMBSTONE_TTL_HOURS"),
		EnableTLS:        viper.GetBool("ENABLE_TLS"),
	}

	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}

	return config
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address не может быть пустым")
	}
	if c.Collection == "" {
		return fmt.Errorf("collection не может быть пустой")
	}
	switch c.ConflictStrategy {
	case "lww", "server", "client", "field-merge", "manual":
	default:
		return fmt.Errorf("неизвестная стратегия конфликтов: %s", c.ConflictStrategy)
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
