package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.HistoryMaxTurns != 20 {
		t.Fatalf("HistoryMaxTurns = %d, want 20", cfg.HistoryMaxTurns)
	}
	if cfg.ContextRecentTurns != 5 {
		t.Fatalf("ContextRecentTurns = %d, want 5", cfg.ContextRecentTurns)
	}
	if cfg.RecallLimit != 3 {
		t.Fatalf("RecallLimit = %d, want 3", cfg.RecallLimit)
	}
	if cfg.ProviderMode != "auto" {
		t.Fatalf("ProviderMode = %q, want %q", cfg.ProviderMode, "auto")
	}
	if cfg.ProviderHTTPURL != "" {
		t.Fatalf("ProviderHTTPURL = %q, want empty default", cfg.ProviderHTTPURL)
	}
	if cfg.RecallTimeout != 2*time.Second {
		t.Fatalf("RecallTimeout = %v, want 2s", cfg.RecallTimeout)
	}
	if len(cfg.RememberTriggers) == 0 {
		t.Fatalf("RememberTriggers should have defaults")
	}
}

func TestLoadCustomTriggers(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("REMEMBER_TRIGGERS", "Keep In Mind, note that ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"keep in mind", "note that"}
	if len(cfg.RememberTriggers) != len(want) {
		t.Fatalf("RememberTriggers = %v, want %v", cfg.RememberTriggers, want)
	}
	for i, trigger := range want {
		if cfg.RememberTriggers[i] != trigger {
			t.Fatalf("RememberTriggers[%d] = %q, want %q", i, cfg.RememberTriggers[i], trigger)
		}
	}
}

func TestLoadRejectsRecallTimeoutLongerThanTurnTimeout(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("TURN_TIMEOUT", "5s")
	t.Setenv("RECALL_TIMEOUT", "10s")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject RECALL_TIMEOUT >= TURN_TIMEOUT")
	}
}

func TestLoadRejectsNonPositiveHistoryCap(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("HISTORY_MAX_TURNS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject HISTORY_MAX_TURNS=0")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"SYSTEM_PROMPT",
		"HISTORY_MAX_TURNS",
		"CONTEXT_RECENT_TURNS",
		"RECALL_LIMIT",
		"CONTEXT_CHAR_BUDGET",
		"TURN_TIMEOUT",
		"RECALL_TIMEOUT",
		"PROVIDER_MODE",
		"PROVIDER_HTTP_URL",
		"DATABASE_URL",
		"MEMORY_PROVIDER",
		"REMEMBER_TRIGGERS",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
