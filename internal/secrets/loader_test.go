package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("TEST_SECRET_ENV", "from-env")

	got, err := Load(Source{Name: "api key", File: path, Value: "inline", Env: "TEST_SECRET_ENV"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	_, err := Load(Source{Name: "api key", File: path, Value: "inline"})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("TEST_SECRET_ENV", " env-secret ")

	got, err := Load(Source{Name: "api key", Env: "TEST_SECRET_ENV"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "env-secret" {
		t.Fatalf("expected env secret, got %q", got)
	}
}

func TestLoadNotConfigured(t *testing.T) {
	t.Setenv("TEST_SECRET_ENV", "")

	_, err := Load(Source{Name: "gemini api key", Env: "TEST_SECRET_ENV"})
	if err == nil || !strings.Contains(err.Error(), "gemini api key is not configured") {
		t.Fatalf("unexpected error: %v", err)
	}
}
