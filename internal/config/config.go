package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// API holds configuration for the server binaries.
type API struct {
	Port            string        `env:"PORT"`
	Addr            string        `env:"BUDGARDEN_API_ADDR" envDefault:":8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SupabaseURL     string        `env:"SUPABASE_URL"`
	SupabaseAnonKey string        `env:"SUPABASE_ANON_KEY"`
	MigrateOnStart  bool          `env:"BUDGARDEN_MIGRATE_ON_START" envDefault:"true"`
	SeedCatalog     bool          `env:"BUDGARDEN_SEED_CATALOG" envDefault:"true"`
	IdempotencyTTL  time.Duration `env:"BUDGARDEN_IDEMPOTENCY_TTL" envDefault:"168h"`
	PruneEvery      time.Duration `env:"BUDGARDEN_PRUNE_EVERY" envDefault:"1h"`
	WorkerRunOnce   bool          `env:"BUDGARDEN_WORKER_RUN_ONCE" envDefault:"false"`
}

// CLI holds configuration for the bud client.
type CLI struct {
	APIBaseURL string        `env:"BUD_API_BASE_URL" envDefault:"http://localhost:8080"`
	PollEvery  time.Duration `env:"BUD_POLL_EVERY" envDefault:"2s"`
}

func LoadAPIFromEnv() (API, error) {
	var cfg API
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Port != "" {
		cfg.Addr = cfg.Port
		if !strings.HasPrefix(cfg.Addr, ":") {
			cfg.Addr = ":" + cfg.Addr
		}
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	cfg.SupabaseAnonKey = strings.TrimSpace(cfg.SupabaseAnonKey)
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() (CLI, error) {
	var cfg CLI
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.PollEvery < 500*time.Millisecond {
		cfg.PollEvery = 500 * time.Millisecond
	}
	return cfg, nil
}
