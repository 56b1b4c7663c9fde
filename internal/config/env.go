package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv reads a .env file and returns its key-value pairs without touching
// the process environment.
func LoadEnv(path string) (map[string]string, error) {
	return godotenv.Read(path)
}

// LoadDotEnv loads a .env file into the process environment. Variables that
// are already set keep their values. A missing file is not an error.
func LoadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("Failed to load env file", "path", path, "error", err)
	}
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ApplyEnvOverrides updates the configuration based on environment variables.
func ApplyEnvOverrides(cfg *Config, env map[string]string) {
	// Server
	if val, ok := env["ARENA_PORT"]; ok {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Server.Port = port
		}
	}

	// Storage
	if val, ok := env["ARENA_DB_PATH"]; ok && val != "" {
		cfg.Storage.DBPath = val
	}

	// LLM
	if val, ok := env["ARENA_LLM_PROVIDER"]; ok && val != "" {
		cfg.LLM.Provider = val
	}
	if val, ok := env["ARENA_LLM_MODEL"]; ok {
		cfg.LLM.Model = val
	}
	// LLM_API_KEY wins over the Gemini-specific key.
	for _, key := range []string{"GEMINI_API_KEY", "LLM_API_KEY"} {
		if val, ok := env[key]; ok && val != "" {
			cfg.LLM.APIKey = val
		}
	}
	if val, ok := env["LLM_BASE_URL"]; ok && val != "" {
		cfg.LLM.BaseURL = val
	}
	if val, ok := env["ARENA_LLM_TIMEOUT"]; ok {
		if d, ok := parseDuration(val); ok {
			cfg.LLM.Timeout = d
		}
	}

	// Engine
	if val, ok := env["ARENA_PREFETCH_ENABLED"]; ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.PrefetchEnabled = b
		}
	}
	if val, ok := env["ARENA_PREFETCH_TTL"]; ok {
		if d, ok := parseDuration(val); ok {
			cfg.Engine.PrefetchTTL = d
		}
	}
	if val, ok := env["ARENA_PREFETCH_MAX_ENTRIES"]; ok {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Engine.PrefetchMaxEntries = n
		}
	}
	if val, ok := env["ARENA_CLOSING_CLASSIFIER"]; ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.ClosingClassifier = b
		}
	}
}

// parseDuration accepts either whole seconds or a Go duration string.
func parseDuration(val string) (time.Duration, bool) {
	if seconds, err := strconv.Atoi(val); err == nil {
		return time.Duration(seconds) * time.Second, true
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d, true
	}
	return 0, false
}
