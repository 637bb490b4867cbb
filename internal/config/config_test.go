package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("TOKEN_TTL", "")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" || cfg.TokenTTL != 8*time.Hour {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("IMPORT_DEFAULT_ANSWER", "")
	t.Setenv("ENABLE_EVENT_FEED", "no")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("addr = %q", cfg.HTTPAddr)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors = %v", cfg.CORSOrigins)
	}
	if cfg.TokenTTL != 30*time.Minute || cfg.MaxUploadBytes != 1024 {
		t.Errorf("ttl=%v max=%d", cfg.TokenTTL, cfg.MaxUploadBytes)
	}
	if cfg.ImportDefaultAnswer != "" {
		t.Errorf("default answer = %q, want disabled", cfg.ImportDefaultAnswer)
	}
	if cfg.EnableEventFeed {
		t.Error("event feed should be off")
	}
}

func TestFromEnvConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.yaml")
	body := "http_addr: \":7000\"\ndb_driver: postgres\ntoken_ttl: 2h\nimport_mode: replace\ncors_origins: [\"https://x.example\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("DB_DRIVER", "sqlite") // env wins over the file
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("IMPORT_MODE", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != ":7000" || cfg.TokenTTL != 2*time.Hour || cfg.ImportMode != "replace" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("env override lost: %q", cfg.DBDriver)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://x.example" {
		t.Fatalf("cors = %v", cfg.CORSOrigins)
	}
}

func TestFromEnvBadValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TOKEN_TTL", "soon")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected TOKEN_TTL error")
	}
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected MAX_UPLOAD_BYTES error")
	}
	for _, v := range []string{"0", "-5"} {
		t.Setenv("MAX_UPLOAD_BYTES", v)
		if _, err := FromEnv(); err == nil {
			t.Fatalf("MAX_UPLOAD_BYTES=%s accepted", v)
		}
	}
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected missing file error")
	}
}
