// Package config reads process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/talgya/aoi-shift/internal/optics"
)

// Config holds everything the commands read from the environment.
type Config struct {
	Port        int
	DBPath      string
	Strictness  optics.Strictness
	PublicURL   string // AOI_PUBLIC_URL; empty means derive from the FQDN
	AdminKey    string // bearer token for POST endpoints; empty disables them
	CORSOrigins []string
	TrustProxy  bool // AOI_TRUST_PROXY; honour X-Forwarded-For when behind a proxy
	LogLevel    string
	LogFormat   string // "text", "json" or "" for auto
	FrameEvery  time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:       8080,
		DBPath:     "data/aoishift.db",
		Strictness: optics.Strict,
		LogLevel:   "info",
		FrameEvery: 16 * time.Millisecond,
	}
}

// Load reads .env files (missing ones are fine) and then the environment.
func Load(envFiles ...string) (Config, error) {
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load(envFiles...)
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv("AOI_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, fmt.Errorf("AOI_PORT %q: not a valid port", v)
		}
		cfg.Port = port
	}
	if v := getenv("AOI_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("AOI_STRICT"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("AOI_STRICT %q: %w", v, err)
		}
		if !strict {
			cfg.Strictness = optics.Lenient
		}
	}
	if v := getenv("AOI_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("AOI_TRUST_PROXY %q: %w", v, err)
		}
		cfg.TrustProxy = trust
	}
	if v := getenv("AOI_FRAME_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return cfg, fmt.Errorf("AOI_FRAME_MS %q: must be a positive integer", v)
		}
		cfg.FrameEvery = time.Duration(ms) * time.Millisecond
	}

	cfg.PublicURL = strings.TrimSpace(getenv("AOI_PUBLIC_URL"))
	cfg.AdminKey = getenv("AOI_ADMIN_KEY")
	cfg.CORSOrigins = splitList(getenv("CORS_ORIGINS"))
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT")))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
