package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr            string
	DatabaseURL     string
	SupabaseURL     string
	SupabaseAnonKey string
	TuningPath      string
	Migrate         bool
	DBMaxConns      int32
}

type WorkerConfig struct {
	DatabaseURL string
	TuningPath  string
	DBMaxConns  int32
	Every       time.Duration
	RunOnce     bool
}

type CLIConfig struct {
	APIBaseURL    string
	DataDir       string
	Store         string
	Seed          int64
	RemoteTimeout time.Duration
	SyncDebounce  time.Duration
	LogLevel      string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("EMPIRE_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:            addr,
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SupabaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey: strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		TuningPath:      strings.TrimSpace(os.Getenv("EMPIRE_TUNING_PATH")),
		Migrate:         envBoolDefault("EMPIRE_MIGRATE", true),
		DBMaxConns:      int32(envInt64Default("EMPIRE_DB_MAX_CONNS", 20)),
	}
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

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		TuningPath:  strings.TrimSpace(os.Getenv("EMPIRE_TUNING_PATH")),
		DBMaxConns:  int32(envInt64Default("EMPIRE_DB_MAX_CONNS", 4)),
		Every:       envDurationDefault("EMPIRE_WORKER_EVERY", time.Hour),
		RunOnce:     envBoolDefault("EMPIRE_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Every <= 0 {
		return cfg, fmt.Errorf("EMPIRE_WORKER_EVERY must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	cfg := CLIConfig{
		APIBaseURL:    strings.TrimRight(envDefault("EMPIRE_API_BASE_URL", "http://localhost:8080"), "/"),
		DataDir:       envDefault("EMPIRE_DATA_DIR", defaultDataDir()),
		Store:         strings.ToLower(envDefault("EMPIRE_STORE", "file")),
		Seed:          envInt64Default("EMPIRE_SEED", 0),
		RemoteTimeout: envDurationDefault("EMPIRE_REMOTE_TIMEOUT", 5*time.Second),
		SyncDebounce:  envDurationDefault("EMPIRE_SYNC_DEBOUNCE", 2*time.Second),
		LogLevel:      strings.ToLower(envDefault("EMPIRE_LOG_LEVEL", "warn")),
	}
	if cfg.Store != "file" && cfg.Store != "sqlite" {
		cfg.Store = "file"
	}
	return cfg
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".empire"
	}
	return filepath.Join(home, ".empire")
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
