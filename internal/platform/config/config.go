// Package config loads server settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 5000
	DefaultDebug           = true
	DefaultDiagnostics     = false
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the runtime settings of the server process. Debug only lowers
// the log level; Diagnostics mounts the OpenAPI document, docs UI, schemas,
// health and profiler routes.
type Config struct {
	Host            string
	Port            int
	Debug           bool
	Diagnostics     bool
	ShutdownTimeout time.Duration
}

// Addr returns the listen address in host:port form.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load reads the optional env files (".env" when none are given) and then
// resolves Config from the process environment. Variables already set in the
// environment take precedence over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv resolves Config using lookup, applying defaults for unset or empty variables.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		Debug:           DefaultDebug,
		Diagnostics:     DefaultDiagnostics,
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	if v, ok := lookup("HOST"); ok && v != "" {
		cfg.Host = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q: must be an integer between 1 and 65535", v)
		}
		cfg.Port = port
	}
	if v, ok := lookup("DEBUG"); ok && v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEBUG %q: %w", v, err)
		}
		cfg.Debug = debug
	}
	if v, ok := lookup("DIAGNOSTICS"); ok && v != "" {
		diag, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DIAGNOSTICS %q: %w", v, err)
		}
		cfg.Diagnostics = diag
	}
	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", v, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: must be positive", v)
		}
		cfg.ShutdownTimeout = d
	}
	return cfg, nil
}
