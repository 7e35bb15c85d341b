package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP                  string         `json:"endpoint_addr_http"`
	DatabaseDSN                       string         `json:"database_dsn"`
	SecretKey                         string         `json:"secret_key"`
	AccessTokenValidityDuration       timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      timex.Duration `json:"refresh_token_validity_duration"`
	EmailVerificationValidityDuration timex.Duration `json:"email_verification_validity_duration"`
	PasswordResetValidityDuration     timex.Duration `json:"password_reset_validity_duration"`
	FrontendURL                       string         `json:"frontend_url"`
	RedisAddr                         string         `json:"redis_addr"`
	KafkaBrokers                      []string       `json:"kafka_brokers"`
	NotificationTopic                 string         `json:"notification_topic"`
	BcryptCost                        int            `json:"bcrypt_cost"`
	RequireEmailVerification          bool           `json:"require_email_verification"`
	PurgeInterval                     timex.Duration `json:"purge_interval"`
	LogLevel                          string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by -c/-config
// (or $GOPHAUTH_CONFIG) into config. Keys absent from the file keep their
// current values. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	path := flagx.JSONConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	config.EmailVerificationValidityDuration = c.EmailVerificationValidityDuration.Duration
	config.PasswordResetValidityDuration = c.PasswordResetValidityDuration.Duration
	config.FrontendURL = c.FrontendURL
	config.RedisAddr = c.RedisAddr
	config.KafkaBrokers = c.KafkaBrokers
	config.NotificationTopic = c.NotificationTopic
	config.BcryptCost = c.BcryptCost
	config.RequireEmailVerification = c.RequireEmailVerification
	config.PurgeInterval = c.PurgeInterval.Duration
	config.LogLevel = c.LogLevel
}

func toJson(config *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:                  config.EndpointAddrHTTP,
		DatabaseDSN:                       config.DatabaseDSN,
		SecretKey:                         config.SecretKey,
		AccessTokenValidityDuration:       timex.Duration{Duration: config.AccessTokenValidityDuration},
		RefreshTokenValidityDuration:      timex.Duration{Duration: config.RefreshTokenValidityDuration},
		EmailVerificationValidityDuration: timex.Duration{Duration: config.EmailVerificationValidityDuration},
		PasswordResetValidityDuration:     timex.Duration{Duration: config.PasswordResetValidityDuration},
		FrontendURL:                       config.FrontendURL,
		RedisAddr:                         config.RedisAddr,
		KafkaBrokers:                      config.KafkaBrokers,
		NotificationTopic:                 config.NotificationTopic,
		BcryptCost:                        config.BcryptCost,
		RequireEmailVerification:          config.RequireEmailVerification,
		PurgeInterval:                     timex.Duration{Duration: config.PurgeInterval},
		LogLevel:                          config.LogLevel,
	}
}
