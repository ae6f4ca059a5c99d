package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Simplici0/printdesk/internal/store"
)

func writeEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	t.Setenv("A", "")
	t.Setenv("B", "")
	t.Setenv("C", "")

	path := writeEnv(t, `
# comment

A=one
export B=two
C="three"
`)
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	for key, want := range map[string]string{"A": "one", "B": "two", "C": "three"} {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s=%q, want %q", key, got, want)
		}
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("KEEP", "already")

	if err := loadDotEnv(writeEnv(t, "KEEP=fromfile\n")); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("KEEP"); got != "already" {
		t.Fatalf("KEEP=%q, want %q", got, "already")
	}
}

func TestLoadDotEnv_MissingFileIsIgnored(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "DB_PATH", "STATE_KEY", "ADMIN_NAME", "DEFAULT_LOCALE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != defaultPort || cfg.DBPath != defaultDBPath || cfg.AppEnv != defaultAppEnv {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.StateKey != store.StateKey || cfg.IsProduction() {
		t.Fatalf("unexpected state key or env: %+v", cfg)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_LOCALE", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load(writeEnv(t, "PORT=9090\nDEFAULT_LOCALE=en-US\nAPP_ENV=production\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.DefaultLocale != "en-US" || !cfg.IsProduction() {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
