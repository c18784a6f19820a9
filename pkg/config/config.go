package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/platform/pkg/tokens"
)

// AuthConfig is the token surface every service reads. SigningKey must be
// identical on every instance that verifies tokens.
type AuthConfig struct {
	SigningKey []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ClockSkew  time.Duration

	FallbackEnabled        bool
	FallbackOnInvalidToken bool

	RotateRefresh  bool
	ReaperInterval time.Duration
}

const DefaultRefreshTTL = 7 * 24 * time.Hour

// LoadDotEnv preloads variables from a .env file when one exists. Variables
// already present in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not loaded: %v. Using system environment variables", err)
	}
}

func LoadAuth() AuthConfig {
	return AuthConfig{
		SigningKey: []byte(os.Getenv("JWT_SECRET")),

		AccessTTL:  EnvDurationDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL: EnvDurationDefault("REFRESH_TOKEN_TTL", DefaultRefreshTTL),
		ClockSkew:  EnvDurationDefault("AUTH_CLOCK_SKEW", 0),

		FallbackEnabled:        EnvBoolDefault("AUTH_FALLBACK_ENABLED", false),
		FallbackOnInvalidToken: EnvBoolDefault("AUTH_FALLBACK_ON_INVALID_TOKEN", true),

		RotateRefresh:  EnvBoolDefault("REFRESH_ROTATE", true),
		ReaperInterval: EnvDurationDefault("REAPER_INTERVAL", time.Hour),
	}
}

// Validate reports problems that must stop the process from starting. The
// returned error wraps tokens.ErrConfiguration.
func (c AuthConfig) Validate() error {
	var problems []string
	if len(c.SigningKey) == 0 {
		problems = append(problems, "JWT_SECRET is empty")
	}
	if c.AccessTTL < time.Second || c.AccessTTL%time.Second != 0 {
		problems = append(problems, "ACCESS_TOKEN_TTL must be a whole number of seconds, at least 1s")
	}
	if c.RefreshTTL <= 0 {
		problems = append(problems, "REFRESH_TOKEN_TTL must be positive")
	}
	if c.ClockSkew < 0 {
		problems = append(problems, "AUTH_CLOCK_SKEW must not be negative")
	}
	if c.ReaperInterval <= 0 {
		problems = append(problems, "REAPER_INTERVAL must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", tokens.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDurationDefault accepts Go durations ("15m") or plain seconds ("900").
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}
