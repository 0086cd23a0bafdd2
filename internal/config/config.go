package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig carries all server settings. Values come from an optional YAML
// file (ARENA_CONFIG) with environment variables taking precedence.
type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	StockfishPath  string `yaml:"stockfish_path"`
	BotThinkMillis int    `yaml:"bot_think_millis"`
	BotName        string `yaml:"bot_name"`

	DefaultRating     float64 `yaml:"default_rating"`
	DefaultDeviation  float64 `yaml:"default_deviation"`
	DefaultVolatility float64 `yaml:"default_volatility"`

	SnapshotTTLHours int `yaml:"snapshot_ttl_hours"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":8080",
		BotThinkMillis:    150,
		BotName:           "Stockfish",
		DefaultRating:     1500,
		DefaultDeviation:  350,
		DefaultVolatility: 0.06,
		SnapshotTTLHours:  24,
	}

	if path := strings.TrimSpace(os.Getenv("ARENA_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("ARENA_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		cfg.StockfishPath = v
	}
	if v := strings.TrimSpace(os.Getenv("BOT_THINK_MILLIS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BotThinkMillis = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOT_NAME")); v != "" {
		cfg.BotName = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL_HOURS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SnapshotTTLHours = n
		}
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, errors.New("listen address is required")
	}
	return cfg, nil
}
