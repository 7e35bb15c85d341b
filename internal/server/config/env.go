package config

import "github.com/caarlos0/env/v10"

// parseEnv overlays GOPHAUTH_* environment variables onto config.
// Unset variables leave the current value untouched. Malformed values panic,
// matching the JSON and flag layers.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
