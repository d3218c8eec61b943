package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"REELNOTES_CACHE_ARTICLE_TTL": "cache.article_ttl",
		"REELNOTES_LOG_LEVEL":         "log.level",
		"PORT":                        "server.port",
		"DATABASE_URL":                "database.dsn",
		"REELNOTES_":                  "",
		"HOME":                        "",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "comments:\n  max_depth: 7\nserver:\n  port: \"7000\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(PathEnvVar, path)
	t.Setenv("PORT", "9090")
	t.Setenv("REELNOTES_CACHE_ARTICLE_TTL", "45m")
	t.Setenv("ADMIN_IDS", "alice, bob")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Comments.MaxDepth != 7 {
		t.Errorf("Expected max_depth from file, got %d", cfg.Comments.MaxDepth)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Env must override file, got port %s", cfg.Server.Port)
	}
	if cfg.Cache.ArticleTTL != 45*time.Minute {
		t.Errorf("Expected 45m article ttl, got %s", cfg.Cache.ArticleTTL)
	}
	if len(cfg.Server.AdminIDs) != 2 || cfg.Server.AdminIDs[1] != "bob" {
		t.Errorf("Unexpected admin ids: %v", cfg.Server.AdminIDs)
	}
	if cfg.Cache.CollectionTTL != 300*time.Second {
		t.Errorf("Expected default collection ttl, got %s", cfg.Cache.CollectionTTL)
	}
}

func TestValidateRejects(t *testing.T) {
	cfg := Default()
	cfg.Comments.MaxPageSize = 1
	if err := cfg.Validate(); err == nil {
		t.Error("Expected invalid paging to be rejected")
	}
}
