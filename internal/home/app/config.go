// Package app wires configuration, storage, the signing identity and the
// HTTP server into a runnable process.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config is the environment-driven process configuration.
type Config struct {
	Env        string `env:"HEARTH_ENV,default=dev"`
	ListenAddr string `env:"HEARTH_LISTEN_ADDR,default=:8448"`

	// ServerURL is this server's canonical URL: the iss/aud of every token
	// it mints and the base of its well-known endpoints. Peers must reach
	// it at exactly this URL.
	ServerURL string `env:"HEARTH_SERVER_URL,required"`

	DatabasePath string `env:"HEARTH_DB_PATH,default=hearth.db"`
	KeyDir       string `env:"HEARTH_KEY_DIR,default=keys"`

	LogLevel  string `env:"HEARTH_LOG_LEVEL,default=info"`
	LogFormat string `env:"HEARTH_LOG_FORMAT,default=json"`

	// Bootstrap host admin, created on first boot when both are set.
	AdminUsername string `env:"HEARTH_ADMIN_USERNAME,default="`
	AdminPassword string `env:"HEARTH_ADMIN_PASSWORD,default="`

	HousekeepInterval time.Duration `env:"HEARTH_HOUSEKEEP_INTERVAL,default=1h"`

	ShutdownTimeout time.Duration `env:"HEARTH_SHUTDOWN_TIMEOUT,default=10s"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("app: decode config: %w", err)
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.AdminUsername != "" && cfg.AdminPassword == "" {
		return Config{}, fmt.Errorf("app: HEARTH_ADMIN_PASSWORD required when HEARTH_ADMIN_USERNAME is set")
	}
	return cfg, nil
}
