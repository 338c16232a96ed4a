package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Save original env vars
	origBaseURL := os.Getenv("CONSOLE_CONSOLE__BASE_URL")
	defer func() {
		if origBaseURL != "" {
			os.Setenv("CONSOLE_CONSOLE__BASE_URL", origBaseURL)
		} else {
			os.Unsetenv("CONSOLE_CONSOLE__BASE_URL")
		}
	}()

	t.Run("defaults", func(t *testing.T) {
		os.Unsetenv("CONSOLE_CONSOLE__BASE_URL")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Console.BaseURL != "http://localhost:8640" {
			t.Errorf("Load() base_url = %v, want http://localhost:8640", cfg.Console.BaseURL)
		}
		if cfg.Console.PageLimit != 40 {
			t.Errorf("Load() page_limit = %v, want 40", cfg.Console.PageLimit)
		}
		if cfg.Console.TimelineDays != 30 {
			t.Errorf("Load() timeline_days = %v, want 30", cfg.Console.TimelineDays)
		}
		if cfg.Dev.Addr != ":8640" {
			t.Errorf("Load() dev addr = %v, want :8640", cfg.Dev.Addr)
		}
		if cfg.Dev.Storage.Type != "memory" {
			t.Errorf("Load() storage type = %v, want memory", cfg.Dev.Storage.Type)
		}
	})

	t.Run("env var override", func(t *testing.T) {
		os.Setenv("CONSOLE_CONSOLE__BASE_URL", "https://console.internal:9443")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Console.BaseURL != "https://console.internal:9443" {
			t.Errorf("Load() base_url = %v, want override", cfg.Console.BaseURL)
		}
	})
}

func TestLoadAPIKeySubstitution(t *testing.T) {
	os.Setenv("CONSOLE_SECRET", "sk-from-env")
	os.Setenv("CONSOLE_CONSOLE__API_KEY", "${CONSOLE_SECRET}")
	defer func() {
		os.Unsetenv("CONSOLE_SECRET")
		os.Unsetenv("CONSOLE_CONSOLE__API_KEY")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Console.APIKey != "sk-from-env" {
		t.Errorf("Load() api_key = %q, want sk-from-env", cfg.Console.APIKey)
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	// Set test env var
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple substitution",
			input: "${TEST_VAR}",
			want:  "test-value",
		},
		{
			name:  "substitution in string",
			input: "prefix-${TEST_VAR}-suffix",
			want:  "prefix-test-value-suffix",
		},
		{
			name:  "no substitution",
			input: "plain-string",
			want:  "plain-string",
		},
		{
			name:  "undefined var",
			input: "${UNDEFINED_VAR}",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := substituteEnvVars(tt.input)
			if got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
