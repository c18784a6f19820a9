package config

import (
	"os"

	pkgconfig "github.com/Skotchmaster/platform/pkg/config"
)

type Config struct {
	ListenAddr string
	LogLevel   string

	AuthURL      string
	PostsURL     string
	ProfilesURL  string
	PaymentsURL  string
	GalleriesURL string

	Auth pkgconfig.AuthConfig
}

// Load reads the gateway environment. Downstream URLs other than AUTH_URL are
// optional; a route group is mounted only when its URL is set.
func Load() *Config {
	pkgconfig.LoadDotEnv()

	return &Config{
		ListenAddr: pkgconfig.EnvDefault("GATEWAY_ADDR", ":8080"),
		LogLevel:   pkgconfig.EnvDefault("LOG_LEVEL", "info"),

		AuthURL:      pkgconfig.MustNonEmpty(os.Getenv("AUTH_URL"), "AUTH_URL"),
		PostsURL:     os.Getenv("POSTS_URL"),
		ProfilesURL:  os.Getenv("PROFILES_URL"),
		PaymentsURL:  os.Getenv("PAYMENTS_URL"),
		GalleriesURL: os.Getenv("GALLERIES_URL"),

		Auth: pkgconfig.MustValid(pkgconfig.LoadAuth()),
	}
}
