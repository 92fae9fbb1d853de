package config

import (
	"os"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	_ = os.Unsetenv("TASKIVO_DB_DRIVER")
	_ = os.Unsetenv("TASKIVO_POSTGRES_DSN")
	_ = os.Unsetenv("TASKIVO_CHAT_MODEL")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected auto driver to resolve to sqlite, got %s", cfg.DBDriver)
	}
	if cfg.ChatModel != "gpt-4o-mini" || cfg.DefaultLanguage != "he" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	_ = os.Setenv("TASKIVO_CHAT_MODEL", "test-model")
	defer func() { _ = os.Unsetenv("TASKIVO_CHAT_MODEL") }()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.ChatModel != "test-model" {
		t.Fatalf("chat model env override failed, got %s", cfg.ChatModel)
	}
}

func TestResolveDefaults_AutoPicksPostgresWithDSN(t *testing.T) {
	cfg := &Config{DBDriver: "auto", PostgresDSN: "postgres://localhost/taskivo", SweepInterval: 60e9}
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("expected postgres, got %s", cfg.DBDriver)
	}
}

func TestResolveDefaults_RejectsUnknownDriver(t *testing.T) {
	cfg := &Config{DBDriver: "oracle", SweepInterval: 60e9}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestResolveDefaults_PostgresNeedsDSN(t *testing.T) {
	cfg := &Config{DBDriver: "postgres", SweepInterval: 60e9}
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error when postgres driver has no DSN")
	}
}
