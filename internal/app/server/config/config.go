package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress = "localhost:8080"
	defaultMigrations = "migrations"
	defaultEnv        = EnvLocal
)

type Config struct {
	Env    string
	DB     db
	Server server
}

type db struct {
	DatabaseURI string
	Migrations  string
}

type server struct {
	RunAddress string
}

// MustLoad загружает конфигурацию сервера из окружения и .env
func MustLoad() *Config {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("RUN_ADDRESS", defaultRunAddress)
	viper.SetDefault("MIGRATIONS_PATH", defaultMigrations)

	return &Config{
		Env: viper.GetString("APP_ENV"),
		DB: db{
			DatabaseURI: viper.GetString("DATABASE_URI"),
			Migrations:  viper.GetString("MIGRATIONS_PATH"),
		},
		Server: server{
			RunAddress: viper.GetString("RUN_ADDRESS"),
		},
	}
}
