package config

import (
	"os"
	"time"
)

// Environment variable names. The two signing secrets are env-only:
// rotating either one invalidates all outstanding tokens of that kind,
// which is accepted operational behavior.
const (
	EnvAddress            = "ADDRESS"
	EnvDatabaseDSN        = "DATABASE_DSN"
	EnvAccessTokenSecret  = "ACCESS_TOKEN_SECRET"
	EnvRefreshTokenSecret = "REFRESH_TOKEN_SECRET"
	EnvAccessTokenTTL     = "ACCESS_TOKEN_TTL"
	EnvRefreshTokenTTL    = "REFRESH_TOKEN_TTL"
)

// parseEnv overlays environment variables onto the Config. Environment
// values win over defaults, the JSON file, and flags.
func parseEnv(config *Config) {
	if v := os.Getenv(EnvAddress); v != "" {
		config.EndpointAddr = v
	}
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv(EnvAccessTokenSecret); v != "" {
		config.AccessTokenSecret = v
	}
	if v := os.Getenv(EnvRefreshTokenSecret); v != "" {
		config.RefreshTokenSecret = v
	}
	if v := os.Getenv(EnvAccessTokenTTL); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidityDuration = d
		}
	}
	if v := os.Getenv(EnvRefreshTokenTTL); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.RefreshTokenValidityDuration = d
		}
	}
}
