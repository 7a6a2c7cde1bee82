package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the flag defaults, read from AUTHSESSION_* variables.
type Config struct {
	Domain      string `env:"AUTHSESSION_DOMAIN"       envDefault:"http://localhost:8080"`
	ClientID    string `env:"AUTHSESSION_CLIENT_ID"    envDefault:"authsession-cli"`
	RedirectURI string `env:"AUTHSESSION_REDIRECT_URI" envDefault:"http://127.0.0.1:8085/callback"`
	ReturnTo    string `env:"AUTHSESSION_RETURN_TO"    envDefault:"http://127.0.0.1:8085/"`
	Audience    string `env:"AUTHSESSION_AUDIENCE"`
	Scope       string `env:"AUTHSESSION_SCOPE"        envDefault:"openid profile email"`

	// SkipVerify disables ID token verification, for providers whose keys
	// are not Ed25519.
	SkipVerify bool `env:"AUTHSESSION_SKIP_VERIFY"`

	LogLevel  string `env:"AUTHSESSION_LOG_LEVEL"  envDefault:"warn"`
	LogFormat string `env:"AUTHSESSION_LOG_FORMAT" envDefault:"text"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
