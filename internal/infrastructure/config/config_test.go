package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig writes a config file into a temp dir and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

const validConfig = `
server:
  host: 127.0.0.1
  port: 9090
database:
  path: /tmp/test-auth.db
security:
  jwt:
    secret: this-is-a-test-secret-of-32-chars!!
    token_ttl_minutes: 15
`

func TestLoad_Valid(t *testing.T) {
	path := writeTestConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Security.JWT.TokenTTLMinutes != 15 {
		t.Errorf("TokenTTLMinutes = %d, want 15", cfg.Security.JWT.TokenTTLMinutes)
	}
	// Defaults fill unspecified sections
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
	if cfg.Security.Password.MinLength != 8 {
		t.Errorf("Password.MinLength = %d, want default 8", cfg.Security.Password.MinLength)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("Load() should fail for missing file")
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	path := writeTestConfig(t, `
database:
  path: /tmp/test-auth.db
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail without a JWT secret")
	}
	if !strings.Contains(err.Error(), "security.jwt.secret is required") {
		t.Errorf("error should mention missing secret, got: %v", err)
	}
}

func TestLoad_ShortSecret(t *testing.T) {
	path := writeTestConfig(t, `
database:
  path: /tmp/test-auth.db
security:
  jwt:
    secret: too-short
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail with a short JWT secret")
	}
	if !strings.Contains(err.Error(), "at least 32 characters") {
		t.Errorf("error should mention secret length, got: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeTestConfig(t, validConfig)

	t.Setenv("SAMSAUTH_JWT_SECRET", "environment-supplied-secret-32-chars!")
	t.Setenv("SAMSAUTH_SERVER_PORT", "7777")
	t.Setenv("SAMSAUTH_DATABASE_PATH", "/tmp/env-override.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Security.JWT.Secret != "environment-supplied-secret-32-chars!" {
		t.Error("SAMSAUTH_JWT_SECRET should override the file value")
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 from environment", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/env-override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
}

func TestValidate_BadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero ttl", func(c *Config) { c.Security.JWT.TokenTTLMinutes = 0 }, "token_ttl_minutes"},
		{"weak password policy", func(c *Config) { c.Security.Password.MinLength = 4 }, "min_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWT.Secret = "this-is-a-test-secret-of-32-chars!!"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, should mention %q", err, tt.want)
			}
		})
	}
}
