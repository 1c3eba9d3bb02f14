package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected default address: %q", cfg.Server.Address)
	}
	if cfg.LLM.Provider != "local" {
		t.Fatalf("unexpected default provider: %q", cfg.LLM.Provider)
	}
	if cfg.Vector.Dimensions != 64 {
		t.Fatalf("unexpected default dimensions: %d", cfg.Vector.Dimensions)
	}
	if cfg.Scheduler.Cron != "@daily" {
		t.Fatalf("unexpected default cron: %q", cfg.Scheduler.Cron)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("server:\n  address: \":9999\"\nsearch:\n  web_results: 5\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Fatalf("file override ignored: %q", cfg.Server.Address)
	}
	if cfg.Search.WebResults != 5 {
		t.Fatalf("file override ignored: %d", cfg.Search.WebResults)
	}
	// Defaults still apply for unset keys.
	if cfg.LLM.Provider != "local" {
		t.Fatalf("default lost: %q", cfg.LLM.Provider)
	}
}

func TestLLMConfigValidate(t *testing.T) {
	if err := (LLMConfig{Provider: "local"}).Validate(); err != nil {
		t.Fatalf("local provider should validate: %v", err)
	}
	if err := (LLMConfig{Provider: "openai"}).Validate(); err == nil {
		t.Fatalf("openai without api key should fail")
	}
	if err := (LLMConfig{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test"}}).Validate(); err != nil {
		t.Fatalf("openai with api key should validate: %v", err)
	}
	if err := (LLMConfig{Provider: "llama"}).Validate(); err == nil {
		t.Fatalf("unknown provider should fail")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "studypilot"}
	want := "postgres://u:p@db:5432/studypilot?sslmode=disable"
	if got := p.DSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
	p = PostgresConfig{URL: "postgres://explicit"}
	if got := p.DSN(); got != "postgres://explicit" {
		t.Fatalf("DSN should prefer url, got %q", got)
	}
}
