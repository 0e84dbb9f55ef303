package internal

import (
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/plainnote/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestNotesConfig_ExtensionNormalised(t *testing.T) {
	cfg := NotesConfig{Extension: "txt"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Extension != ".txt" {
		t.Errorf("extension = %q, want .txt", cfg.Extension)
	}
	if err := (&NotesConfig{}).Validate(); err == nil {
		t.Error("empty extension should fail")
	}
}

func TestWatcherConfig_Bounds(t *testing.T) {
	cases := []struct {
		name string
		cfg  WatcherConfig
		ok   bool
	}{
		{"defaults", WatcherConfig{SuppressWindow: 100 * time.Millisecond, Throttle: 2 * time.Second}, true},
		{"zero window", WatcherConfig{Throttle: time.Second}, false},
		{"huge window", WatcherConfig{SuppressWindow: time.Minute, Throttle: time.Second}, false},
		{"tiny throttle", WatcherConfig{SuppressWindow: 100 * time.Millisecond, Throttle: time.Millisecond}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err == nil) != tc.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestLoadExampleConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	t.Setenv("PLAINNOTE_TOKEN", "s3cret")
	if err := pkgconfig.Load("../config/config.yaml", cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Watcher.SuppressWindow != 100*time.Millisecond {
		t.Errorf("suppress_window = %v", cfg.Watcher.SuppressWindow)
	}
	if cfg.Notes.Extension != ".md" {
		t.Errorf("extension = %q", cfg.Notes.Extension)
	}
}
