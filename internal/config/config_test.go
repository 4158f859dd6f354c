package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loopwork-ai/norris/joke"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, expected 3000", cfg.Port)
	}
	if cfg.JokesAPIURL != joke.DefaultBaseURL {
		t.Errorf("JokesAPIURL = %q, expected %q", cfg.JokesAPIURL, joke.DefaultBaseURL)
	}
	if cfg.RedisURL != "" {
		t.Error("RedisURL should be empty by default")
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, expected 1h", cfg.SessionTTL)
	}
	if cfg.KeepAlive != 30*time.Second {
		t.Errorf("KeepAlive = %v, expected 30s", cfg.KeepAlive)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlConfig := `
port: 8080
redisURL: redis://localhost:6379/0
jokesApiURL: http://localhost:9000/jokes
sessionPrefix: jokes
sessionTTL: 10m
keepAlive: 5s
timeout: 3s
userAgent: norris-test
instructions: |
  Use search-jokes to find jokes by text.
`

	cfg, err := Load(bytes.NewBufferString(yamlConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, expected 8080", cfg.Port)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.JokesAPIURL != "http://localhost:9000/jokes" {
		t.Errorf("JokesAPIURL = %q", cfg.JokesAPIURL)
	}
	if cfg.SessionPrefix != "jokes" {
		t.Errorf("SessionPrefix = %q", cfg.SessionPrefix)
	}
	if cfg.SessionTTL != 10*time.Minute {
		t.Errorf("SessionTTL = %v, expected 10m", cfg.SessionTTL)
	}
	if cfg.KeepAlive != 5*time.Second {
		t.Errorf("KeepAlive = %v, expected 5s", cfg.KeepAlive)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, expected 3s", cfg.Timeout)
	}
	if cfg.UserAgent != "norris-test" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Instructions != "Use search-jokes to find jokes by text.\n" {
		t.Errorf("Instructions = %q", cfg.Instructions)
	}
}

func TestLoadPartial(t *testing.T) {
	cfg, err := Load(strings.NewReader("port: 4000\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Port != 4000 {
		t.Errorf("Port = %d, expected 4000", cfg.Port)
	}
	// Unset fields keep their defaults
	if cfg.JokesAPIURL != joke.DefaultBaseURL {
		t.Errorf("JokesAPIURL = %q, expected default", cfg.JokesAPIURL)
	}
	if cfg.SessionPrefix != "norris" {
		t.Errorf("SessionPrefix = %q, expected default", cfg.SessionPrefix)
	}
}

func TestLoadEmpty(t *testing.T) {
	cfg, err := Load(strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, expected default", cfg.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load(strings.NewReader("port: [1, 2")); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should yield defaults: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, expected default", cfg.Port)
	}

	path := filepath.Join(t.TempDir(), "norris.yaml")
	if err := os.WriteFile(path, []byte("port: 5000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadFile(path)
	if err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, expected 5000", cfg.Port)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPort:     "4242",
		EnvRedisURL: "redis://cache:6379",
		EnvJokesURL: "http://jokes.internal/jokes",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Port != 4242 {
		t.Errorf("Port = %d, expected 4242", cfg.Port)
	}
	if cfg.RedisURL != "redis://cache:6379" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.JokesAPIURL != "http://jokes.internal/jokes" {
		t.Errorf("JokesAPIURL = %q", cfg.JokesAPIURL)
	}
	if cfg.Addr() != ":4242" {
		t.Errorf("Addr() = %q, expected :4242", cfg.Addr())
	}
}

func TestApplyEnvIgnoresEmpty(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(func(string) (string, bool) { return "", true })
	if err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, expected default", cfg.Port)
	}
}

func TestApplyEnvInvalidPort(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(func(key string) (string, bool) {
		if key == EnvPort {
			return "http", true
		}
		return "", false
	})
	if err == nil {
		t.Fatal("expected an error for a non-numeric PORT")
	}
	if !strings.Contains(err.Error(), "PORT") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port too low", func(c *Config) { c.Port = 0 }, "Port"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "Port"},
		{"missing jokes URL", func(c *Config) { c.JokesAPIURL = "" }, "JokesAPIURL"},
		{"malformed jokes URL", func(c *Config) { c.JokesAPIURL = "not a url" }, "JokesAPIURL"},
		{"missing session prefix", func(c *Config) { c.SessionPrefix = "" }, "SessionPrefix"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "Timeout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, expected nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, expected an error mentioning %s", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() = %v, expected it to mention %s", err, tc.wantErr)
			}
		})
	}
}
