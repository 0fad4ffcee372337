package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		ID   string `yaml:"id"`
		Path string `yaml:"path"`
		TTL  string `yaml:"ttl"`
	} `yaml:"catalog"`
	Game struct {
		Reward         int    `yaml:"reward"`
		Penalty        int    `yaml:"penalty"`
		TickInterval   string `yaml:"tickInterval"`
		AdvanceDelay   string `yaml:"advanceDelay"`
		NoticeDuration string `yaml:"noticeDuration"`
	} `yaml:"game"`
	Hint struct {
		Enabled     bool    `yaml:"enabled"`
		APIKey      string  `yaml:"apiKey"`
		Model       string  `yaml:"model"`
		Temperature float32 `yaml:"temperature"`
		Timeout     string  `yaml:"timeout"`
		CacheTTL    string  `yaml:"cacheTTL"`
		Persona     string  `yaml:"persona"`
		Fallback    string  `yaml:"fallback"`
	} `yaml:"hint"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Redis.TTL = "10m"
	cfg.Catalog.ID = "roma"
	cfg.Catalog.TTL = "10m"
	cfg.Game.Reward = 250
	cfg.Game.Penalty = 50
	cfg.Game.TickInterval = "1s"
	cfg.Game.AdvanceDelay = "1500ms"
	cfg.Game.NoticeDuration = "3s"
	cfg.Hint.Enabled = true
	cfg.Hint.Temperature = 0.8
	cfg.Hint.Timeout = "10s"
	cfg.Hint.CacheTTL = "1h"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads YAML config from path on top of the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		applyEnv(&cfg)
		return cfg, nil
	}
	return cfg, err
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Hint.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("HINTS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Hint.Enabled = enabled
		}
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
