package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dcastellanos/contenthub/internal/flagx"
	"github.com/dcastellanos/contenthub/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. It uses timex.Duration for lifetime fields, which
// parses both string values such as "15m" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
//
// Secrets are intentionally absent: a config file on disk is the wrong
// place for signing keys.
type JsonConfig struct {
	EndpointAddr                 string         `json:"endpoint_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
}

// parseJson loads configuration values from a JSON file into the
// provided Config instance. The file path comes from the -c or -config
// command-line flags; if neither is set, no JSON file is loaded. An
// unreadable or invalid file panics, matching the flag loader.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{
		EndpointAddr:                 config.EndpointAddr,
		DatabaseDSN:                  config.DatabaseDSN,
		AccessTokenValidityDuration:  timex.Duration{Duration: config.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: config.RefreshTokenValidityDuration},
		BcryptCost:                   config.BcryptCost,
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.BcryptCost = c.BcryptCost
}
