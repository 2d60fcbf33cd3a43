package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultSystemPrompt = "You are a helpful AI assistant with memory capabilities. " +
	"You provide clear, concise, and accurate responses to user questions. " +
	"You maintain a friendly and professional tone while being informative and helpful. " +
	"You can remember important details about users and their preferences."

// Config contains all runtime settings for the chat relay service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	SystemPrompt string

	// History and context assembly.
	HistoryMaxTurns    int
	ContextRecentTurns int
	RecallLimit        int
	ContextCharBudget  int

	// Provider call bounds.
	TurnTimeout   time.Duration
	RecallTimeout time.Duration

	ProviderMode        string
	ProviderHTTPURL     string
	ProviderFallbackURL string

	DatabaseURL        string
	MemoryProviderMode string

	// Trigger phrases for the long-term memory write-back heuristic.
	RememberTriggers []string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "aria"),
		AllowAnyOrigin:      false,
		SystemPrompt:        envOrDefault("SYSTEM_PROMPT", defaultSystemPrompt),
		HistoryMaxTurns:     20,
		ContextRecentTurns:  5,
		RecallLimit:         3,
		ContextCharBudget:   6000,
		TurnTimeout:         60 * time.Second,
		RecallTimeout:       2 * time.Second,
		ProviderMode:        envOrDefault("PROVIDER_MODE", "auto"),
		ProviderHTTPURL:     trimmedEnv("PROVIDER_HTTP_URL"),
		ProviderFallbackURL: trimmedEnv("PROVIDER_FALLBACK_URL"),
		DatabaseURL:         trimmedEnv("DATABASE_URL"),
		MemoryProviderMode:  envOrDefault("MEMORY_PROVIDER", "auto"),
		ShutdownTimeout:     15 * time.Second,
		RememberTriggers: []string{
			"remember that",
			"remember this",
			"don't forget",
			"my name is",
			"my favorite",
		},
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnTimeout, err = durationFromEnv("TURN_TIMEOUT", cfg.TurnTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RecallTimeout, err = durationFromEnv("RECALL_TIMEOUT", cfg.RecallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryMaxTurns, err = intFromEnv("HISTORY_MAX_TURNS", cfg.HistoryMaxTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextRecentTurns, err = intFromEnv("CONTEXT_RECENT_TURNS", cfg.ContextRecentTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.RecallLimit, err = intFromEnv("RECALL_LIMIT", cfg.RecallLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextCharBudget, err = intFromEnv("CONTEXT_CHAR_BUDGET", cfg.ContextCharBudget)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	if raw := trimmedEnv("REMEMBER_TRIGGERS"); raw != "" {
		cfg.RememberTriggers = splitTriggers(raw)
	}

	if cfg.HistoryMaxTurns <= 0 {
		return Config{}, fmt.Errorf("HISTORY_MAX_TURNS must be positive")
	}
	if cfg.ContextRecentTurns <= 0 {
		return Config{}, fmt.Errorf("CONTEXT_RECENT_TURNS must be positive")
	}
	if cfg.RecallLimit < 0 {
		return Config{}, fmt.Errorf("RECALL_LIMIT must be >= 0")
	}
	if cfg.ContextCharBudget <= 0 {
		return Config{}, fmt.Errorf("CONTEXT_CHAR_BUDGET must be positive")
	}
	if cfg.TurnTimeout < time.Second {
		return Config{}, fmt.Errorf("TURN_TIMEOUT must be at least 1s")
	}
	if cfg.RecallTimeout <= 0 || cfg.RecallTimeout >= cfg.TurnTimeout {
		return Config{}, fmt.Errorf("RECALL_TIMEOUT must be positive and shorter than TURN_TIMEOUT")
	}

	return cfg, nil
}

func splitTriggers(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
