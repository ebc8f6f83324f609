package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, read from the environment.
// cmd/server loads a .env file first, so values can come from either.
type Config struct {
	Addr         string        // listen address, host:port
	Env          string        // "production" or "development"
	RoomTTL      time.Duration // idle time before an empty room is reaped
	ReapInterval time.Duration // how often the reaper runs
}

const (
	defaultAddr         = ":8080"
	defaultEnv          = "production"
	defaultRoomTTL      = 2 * time.Hour
	defaultReapInterval = 5 * time.Minute
)

// Load reads configuration from the environment, applying defaults for
// anything unset.
func Load() (Config, error) {
	cfg := Config{
		Addr:         defaultAddr,
		Env:          defaultEnv,
		RoomTTL:      defaultRoomTTL,
		ReapInterval: defaultReapInterval,
	}

	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return Config{}, fmt.Errorf("invalid PORT %q", port)
		}
		cfg.Addr = ":" + port
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Env = env
	}

	var err error
	if cfg.RoomTTL, err = duration("ROOM_TTL", cfg.RoomTTL); err != nil {
		return Config{}, err
	}
	if cfg.ReapInterval, err = duration("REAP_INTERVAL", cfg.ReapInterval); err != nil {
		return Config{}, err
	}
	if cfg.RoomTTL <= 0 || cfg.ReapInterval <= 0 {
		return Config{}, fmt.Errorf("ROOM_TTL and REAP_INTERVAL must be positive")
	}

	return cfg, nil
}

func (c Config) Development() bool {
	return c.Env == "development"
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
