package config

import (
	"os"
	"strings"

	pkgconfig "github.com/Skotchmaster/platform/pkg/config"
)

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Addr        string
	LogLevel    string
	DatabaseURL string
	Migrate     bool

	RefreshStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	KafkaTopic   string

	Auth pkgconfig.AuthConfig
}

func Load() *Config {
	pkgconfig.LoadDotEnv()

	cfg := &Config{
		Addr:        pkgconfig.EnvDefault("AUTH_ADDR", ":8081"),
		LogLevel:    pkgconfig.EnvDefault("LOG_LEVEL", "info"),
		DatabaseURL: pkgconfig.MustNonEmpty(os.Getenv("DATABASE_URL"), "DATABASE_URL"),
		Migrate:     pkgconfig.EnvBoolDefault("DB_MIGRATE", true),

		RefreshStore:  strings.ToLower(pkgconfig.EnvDefault("REFRESH_STORE", StorePostgres)),
		RedisAddr:     pkgconfig.EnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       pkgconfig.EnvIntDefault("REDIS_DB", 0),

		KafkaBrokers: pkgconfig.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   pkgconfig.EnvDefault("KAFKA_AUTH_TOPIC", "auth_events"),

		Auth: pkgconfig.MustValid(pkgconfig.LoadAuth()),
	}
	return cfg
}
