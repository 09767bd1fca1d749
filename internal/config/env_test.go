package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	t.Run("overrides config from variables", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		env := map[string]string{
			EnvBaseURL:     "https://www.immobiliare.it/vendita-case/roma/",
			EnvMinPrice:    "75000",
			EnvWorkers:     "4",
			EnvTimeout:     "3s",
			EnvMaxPages:    "12",
			EnvRate:        "2.5",
			EnvProxy:       "127.0.0.1:1080",
			EnvPostgresDSN: "postgres://u:p@localhost/immo",
		}
		if err := ApplyEnv(cfg, MapLookup(env)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.BaseURL != env[EnvBaseURL] {
			t.Errorf("unexpected BaseURL %q", cfg.BaseURL)
		}
		if cfg.MinPrice != 75000 {
			t.Errorf("expected MinPrice 75000, got %d", cfg.MinPrice)
		}
		if cfg.Workers != 4 {
			t.Errorf("expected Workers 4, got %d", cfg.Workers)
		}
		if cfg.Timeout != 3*time.Second {
			t.Errorf("expected Timeout 3s, got %v", cfg.Timeout)
		}
		if cfg.MaxPages != 12 {
			t.Errorf("expected MaxPages 12, got %d", cfg.MaxPages)
		}
		if cfg.RequestsPerSecond != 2.5 {
			t.Errorf("expected RequestsPerSecond 2.5, got %v", cfg.RequestsPerSecond)
		}
		if cfg.ProxyAddress != "127.0.0.1:1080" {
			t.Errorf("unexpected proxy %q", cfg.ProxyAddress)
		}
		if cfg.PostgresDSN == "" {
			t.Error("expected PostgresDSN to be set")
		}
	})

	t.Run("empty values are ignored", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := ApplyEnv(cfg, MapLookup(map[string]string{EnvWorkers: ""})); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Workers != DefaultWorkers {
			t.Errorf("expected default workers, got %d", cfg.Workers)
		}
	})

	t.Run("malformed numbers are reported", func(t *testing.T) {
		t.Parallel()

		for _, key := range []string{EnvMinPrice, EnvWorkers, EnvTimeout, EnvMaxPages, EnvRate} {
			cfg := NewConfig()
			if err := ApplyEnv(cfg, MapLookup(map[string]string{key: "abc"})); err == nil {
				t.Errorf("expected error for %s=abc", key)
			}
		}
	})
}

func TestDotEnv(t *testing.T) {
	t.Parallel()

	t.Run("ReadDotEnv parses a file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".env")
		content := "IMMOSCAN_MIN_PRICE=120000\nIMMOSCAN_BASE_URL=https://example.com/search?x=1\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}

		env, err := ReadDotEnv(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		if err := ApplyEnv(cfg, MapLookup(env)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MinPrice != 120000 {
			t.Errorf("expected MinPrice 120000, got %d", cfg.MinPrice)
		}
		if cfg.BaseURL != "https://example.com/search?x=1" {
			t.Errorf("unexpected BaseURL %q", cfg.BaseURL)
		}
	})

	t.Run("DotEnvLookup ignores a missing file", func(t *testing.T) {
		t.Parallel()

		base := MapLookup(map[string]string{EnvWorkers: "3"})
		lookup, err := DotEnvLookup(filepath.Join(t.TempDir(), "missing.env"), base)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if v, ok := lookup(EnvWorkers); !ok || v != "3" {
			t.Errorf("expected base value, got %q", v)
		}
	})

	t.Run("DotEnvLookup prefers the base lookup", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".env")
		content := "IMMOSCAN_WORKERS=8\nIMMOSCAN_MAX_PAGES=4\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}

		lookup, err := DotEnvLookup(path, MapLookup(map[string]string{EnvWorkers: "2"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		if err := ApplyEnv(cfg, lookup); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Workers != 2 {
			t.Errorf("expected Workers 2 from the base lookup, got %d", cfg.Workers)
		}
		if cfg.MaxPages != 4 {
			t.Errorf("expected MaxPages 4 from the file, got %d", cfg.MaxPages)
		}
	})

	t.Run("DotEnvLookup without base reads the file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("IMMOSCAN_MIN_PRICE=1\n"), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		lookup, err := DotEnvLookup(path, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v, _ := lookup(EnvMinPrice); v != "1" {
			t.Errorf("expected 1, got %q", v)
		}
	})
}
