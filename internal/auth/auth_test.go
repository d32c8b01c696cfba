package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fpang/panelforge/internal/generate"
)

func TestGetAPIKeyFromEnv(t *testing.T) {
	const testKey = "test-api-key-12345"
	t.Setenv("GEMINI_API_KEY", testKey)

	key, err := GetAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != testKey {
		t.Errorf("expected key %q, got %q", testKey, key)
	}
}

func TestGetAPIKeyNoSource(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("GEMINI_API_KEY")
	t.Setenv("HOME", t.TempDir())

	if _, err := GetAPIKey(); err == nil {
		t.Error("expected error when no API key source available")
	}
}

func TestGetCredentialPath(t *testing.T) {
	path, err := getCredentialPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".panelforge", "credentials.gpg")
	if path != expected {
		t.Errorf("expected path %q, got %q", expected, path)
	}
}

func TestGetFromGPGFileNotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := getFromGPG(); err == nil {
		t.Error("expected error when credentials file does not exist")
	}
}

func TestClassifyValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want generate.Class
	}{
		{"quota message", errors.New("quota exceeded for project"), generate.ClassQuota},
		{"transient message", errors.New("service unavailable"), generate.ClassTransient},
		{"opaque failure", errors.New("something odd"), generate.ClassFatal},
		{"pre-classified quota", generate.NewError(generate.ClassQuota, errors.New("throttled")), generate.ClassQuota},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyValidation(tt.err)
			if got.Class != tt.want {
				t.Errorf("classifyValidation(%v).Class = %s, want %s", tt.err, got.Class, tt.want)
			}
			if got.Message == "" {
				t.Error("validation error missing message")
			}
		})
	}
}
