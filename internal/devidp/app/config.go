package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

type Config struct {
	Issuer string `env:"DEVIDP_ISSUER" envDefault:"http://localhost:8080"`
	Port   int    `env:"DEVIDP_PORT"   envDefault:"8080"`

	ShutdownGracePeriod  time.Duration `env:"DEVIDP_SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"DEVIDP_HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	SessionTTL           time.Duration `env:"DEVIDP_SESSION_TTL"           envDefault:"12h"`
	AccessTokenTTL       time.Duration `env:"DEVIDP_ACCESS_TOKEN_TTL"      envDefault:"1h"`
	IDTokenTTL           time.Duration `env:"DEVIDP_ID_TOKEN_TTL"          envDefault:"10m"`

	// Empty paths keep the pepper and signing key in memory only.
	PepperFile     string `env:"DEVIDP_PEPPER_FILE"`
	SigningKeyFile string `env:"DEVIDP_SIGNING_KEY_FILE"`
	SigningKeyID   string `env:"DEVIDP_SIGNING_KEY_ID" envDefault:"devidp-1"`

	// JSON arrays of SeedClient and SeedUser.
	ClientsJSON string `env:"DEVIDP_CLIENTS"`
	UsersJSON   string `env:"DEVIDP_USERS"`

	Log        slogx.Config          `envPrefix:"DEVIDP_LOG_"`
	LoginLimit httpx.RateLimitConfig `envPrefix:"DEVIDP_LOGIN_RATE_"`

	Clients []SeedClient `env:"-"`
	Users   []SeedUser   `env:"-"`
}

// SeedClient registers an application at startup.
type SeedClient struct {
	ID           string   `json:"client_id"`
	Name         string   `json:"client_name,omitempty"`
	RedirectURIs []string `json:"redirect_uris"`
	Audiences    []string `json:"audiences,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// SeedUser creates a password user at startup.
type SeedUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// LoadConfig reads the DEVIDP_* environment. Without seeded clients or users
// the defaults from DefaultClients and DefaultUsers are used.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.decodeSeeds(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) decodeSeeds() error {
	if c.ClientsJSON != "" {
		if err := json.Unmarshal([]byte(c.ClientsJSON), &c.Clients); err != nil {
			return fmt.Errorf("decode DEVIDP_CLIENTS: %w", err)
		}
	}
	if c.UsersJSON != "" {
		if err := json.Unmarshal([]byte(c.UsersJSON), &c.Users); err != nil {
			return fmt.Errorf("decode DEVIDP_USERS: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Issuer = strings.TrimSuffix(c.Issuer, "/")
	c.Log.Service = "devidp"
	c.Log.Version = BuildVersion
	if !c.LoginLimit.Enabled() {
		c.LoginLimit = httpx.StrictLimit
	}
	if len(c.Clients) == 0 {
		c.Clients = DefaultClients()
	}
	if len(c.Users) == 0 {
		c.Users = DefaultUsers()
	}
}

// Validate reports configuration that cannot produce a working provider.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.Issuer, "http://") && !strings.HasPrefix(c.Issuer, "https://") {
		return fmt.Errorf("DEVIDP_ISSUER must be an http(s) URL, got %q", c.Issuer)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("DEVIDP_PORT out of range: %d", c.Port)
	}
	for _, cl := range c.Clients {
		if cl.ID == "" || len(cl.RedirectURIs) == 0 {
			return fmt.Errorf("client %q needs client_id and redirect_uris", cl.ID)
		}
	}
	for _, u := range c.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("user %q needs username and password", u.Username)
		}
	}
	return nil
}
