// Package config holds the desktop client settings.
package config

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	BaseURL             string        `env:"REPRINT_API_URL,               default=http://localhost:8080"`
	Timeout             time.Duration `env:"REPRINT_API_TIMEOUT,           default=10s"`
	DataDir             string        `env:"REPRINT_DATA_DIR"`
	KeyFile             string        `env:"REPRINT_KEY_FILE"`
	RefreshInterval     time.Duration `env:"REPRINT_REFRESH_INTERVAL,      default=30m"`
	ExpiryCheckInterval time.Duration `env:"REPRINT_EXPIRY_CHECK_INTERVAL, default=1m"`

	// SessionLifetime is the local cap on a login, replaced by the server
	// setting after each login when available.
	SessionLifetime time.Duration `env:"REPRINT_SESSION_LIFETIME, default=720h"`
	LogLevel        string        `env:"REPRINT_LOG_LEVEL,        default=warn"`
}

// Load reads the environment through lookuper and applies defaults.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("client config: %w", err)
	}
	return &cfg, nil
}

// BindFlags registers command line overrides for cfg on fs.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.BaseURL, "server", c.BaseURL, "API base URL")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "request timeout")
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory for the local session store")
	fs.StringVar(&c.KeyFile, "key-file", c.KeyFile, "token encryption key file")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
}

// Finalize validates cfg once flags are parsed. It strips trailing slashes
// from the base URL, upgrades plain HTTP to HTTPS for any host other than
// localhost and fills in the data paths. The returned flag reports whether
// the scheme was upgraded.
func (c *Config) Finalize() (upgraded bool, err error) {
	base, upgraded, err := NormalizeBaseURL(c.BaseURL)
	if err != nil {
		return false, err
	}
	c.BaseURL = base

	if c.Timeout <= 0 {
		return false, errors.New("client config: timeout must be positive")
	}
	if c.RefreshInterval <= 0 || c.ExpiryCheckInterval <= 0 || c.SessionLifetime <= 0 {
		return false, errors.New("client config: intervals and lifetime must be positive")
	}

	if c.DataDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return false, fmt.Errorf("client config: resolve data dir: %w", err)
		}
		c.DataDir = filepath.Join(dir, "reprint")
	}
	if c.KeyFile == "" {
		c.KeyFile = filepath.Join(c.DataDir, "token.key")
	}
	return upgraded, nil
}

// DatabasePath is the SQLite file holding the local session.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// NormalizeBaseURL trims raw and forces HTTPS for non-loopback hosts.
func NormalizeBaseURL(raw string) (string, bool, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", false, errors.New("client config: API base URL is required")
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("client config: invalid API base URL %q", raw)
	}

	switch u.Scheme {
	case "https":
		return raw, false, nil
	case "http":
		if isLoopback(u.Hostname()) {
			return raw, false, nil
		}
		u.Scheme = "https"
		return u.String(), true, nil
	default:
		return "", false, fmt.Errorf("client config: unsupported scheme %q", u.Scheme)
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
