package config

import (
	"strings"
	"testing"
)

type envTestConfig struct {
	Port     int  `env:"ZYRR_GALLERY_TEST_PORT" envDefault:"123"`
	JSONOnly bool `env:"ZYRR_GALLERY_TEST_JSON_ONLY"`
}

type prefixedTestConfig struct {
	DBPath string `env:"DB_PATH" envDefault:"data/gallery.db"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.JSONOnly {
		t.Fatal("expected json-only to default to false")
	}
}

func TestParseEnvReadsBool(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("ZYRR_GALLERY_TEST_JSON_ONLY", "true")

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if !cfg.JSONOnly {
		t.Fatal("expected json-only to be true")
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("ZYRR_GALLERY_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvWithPrefix(t *testing.T) {
	t.Setenv("ZYRR_TEST_DB_PATH", "/tmp/posters.db")

	tests := []struct {
		name   string
		prefix string
	}{
		{name: "with underscore", prefix: "ZYRR_TEST_"},
		{name: "without underscore", prefix: "ZYRR_TEST"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg prefixedTestConfig
			if err := ParseEnvWithPrefix(&cfg, tc.prefix); err != nil {
				t.Fatalf("parse env: %v", err)
			}
			if cfg.DBPath != "/tmp/posters.db" {
				t.Fatalf("db path = %q, want %q", cfg.DBPath, "/tmp/posters.db")
			}
		})
	}
}

func TestParseEnvWithPrefixDefaults(t *testing.T) {
	var cfg prefixedTestConfig
	if err := ParseEnvWithPrefix(&cfg, "ZYRR_UNSET"); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "data/gallery.db" {
		t.Fatalf("db path = %q, want default", cfg.DBPath)
	}
}
