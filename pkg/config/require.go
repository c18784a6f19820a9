package config

import "log"

func MustNonEmpty(value, envName string) string {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
	return value
}

// MustValid stops the process on a configuration error.
func MustValid(c AuthConfig) AuthConfig {
	if err := c.Validate(); err != nil {
		log.Fatalf("invalid auth configuration: %v", err)
	}
	return c
}
