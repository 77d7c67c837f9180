package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.WhatsApp.AccessToken = "token"
	cfg.WhatsApp.VerifyToken = "verify"
	cfg.WhatsApp.PhoneNumberID = "123456"
	cfg.Provider.APIKey = "key"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.General.Port = 70000 }, "general.port"},
		{"zero timeout", func(c *Config) { c.General.RequestTimeoutSeconds = 0 }, "requestTimeoutSeconds"},
		{"bad log level", func(c *Config) { c.General.LogLevel = "verbose" }, "logLevel"},
		{"missing api version", func(c *Config) { c.WhatsApp.APIVersion = "" }, "apiVersion"},
		{"missing verify token", func(c *Config) { c.WhatsApp.VerifyToken = "" }, "verifyToken"},
		{"missing model", func(c *Config) { c.Provider.Model = "" }, "provider.model"},
		{"knowledge overlap too big", func(c *Config) {
			c.Knowledge.Enabled = true
			c.Knowledge.ChunkSize = 10
			c.Knowledge.ChunkOverlap = 10
		}, "chunkOverlap"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("WARELAY_TEST_VAR", "expanded")
	t.Setenv("WARELAY_EMPTY_VAR", "")

	cases := []struct {
		in   string
		want string
	}{
		{"${WARELAY_TEST_VAR}", "expanded"},
		{"prefix-${WARELAY_TEST_VAR}-suffix", "prefix-expanded-suffix"},
		{"${WARELAY_TEST_VAR:-fallback}", "expanded"},
		{"${WARELAY_UNSET_VAR:-fallback}", "fallback"},
		{"${WARELAY_EMPTY_VAR:-fallback}", "fallback"},
		{"${WARELAY_UNSET_VAR}", "${WARELAY_UNSET_VAR}"}, // kept verbatim
		{"no placeholders", "no placeholders"},
	}
	for _, tc := range cases {
		if got := ExpandEnvVars(tc.in); got != tc.want {
			t.Errorf("ExpandEnvVars(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadAndSave(t *testing.T) {
	t.Setenv("WARELAY_TEST_TOKEN", "from-env")

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"general": {"port": 9001},
		"whatsapp": {
			"accessToken": "${WARELAY_TEST_TOKEN}",
			"verifyToken": "vt",
			"phoneNumberId": "42"
		},
		"provider": {"apiKey": "k"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.General.Port)
	}
	if cfg.WhatsApp.AccessToken != "from-env" {
		t.Errorf("accessToken = %q, env substitution failed", cfg.WhatsApp.AccessToken)
	}
	// Unset fields fall back to defaults.
	if cfg.Provider.Model != "llama3-8b-8192" {
		t.Errorf("model default not applied: %q", cfg.Provider.Model)
	}
	if cfg.General.Host != "0.0.0.0" {
		t.Errorf("host default not applied: %q", cfg.General.Host)
	}

	out := filepath.Join(t.TempDir(), "saved", "config.json")
	if err := Save(out, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := Load(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.General.Port != 9001 {
		t.Errorf("reloaded port = %d", reloaded.General.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{broken"), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestGetByPath(t *testing.T) {
	cfg := validConfig()

	v, err := GetByPath(cfg, "provider.model")
	if err != nil {
		t.Fatalf("GetByPath: %v", err)
	}
	if v != "llama3-8b-8192" {
		t.Errorf("provider.model = %v", v)
	}

	if _, err := GetByPath(cfg, "provider.missing"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetByPath(t *testing.T) {
	cfg := validConfig()

	if err := SetByPath(cfg, "general.port", "9999"); err != nil {
		t.Fatalf("SetByPath: %v", err)
	}
	if cfg.General.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.General.Port)
	}

	if err := SetByPath(cfg, "knowledge.enabled", "true"); err != nil {
		t.Fatalf("SetByPath bool: %v", err)
	}
	if !cfg.Knowledge.Enabled {
		t.Error("knowledge.enabled not set")
	}

	if err := SetByPath(cfg, "provider.model", "mixtral-8x7b"); err != nil {
		t.Fatalf("SetByPath string: %v", err)
	}
	if cfg.Provider.Model != "mixtral-8x7b" {
		t.Errorf("model = %q", cfg.Provider.Model)
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	cfg.Provider.APIKey = "gsk_1234567890abcdef"
	cfg.WhatsApp.AccessToken = "EAALongAccessTokenValue"

	out := Sanitize(cfg)

	if out.Provider.APIKey == cfg.Provider.APIKey {
		t.Error("api key not masked")
	}
	if !strings.HasPrefix(out.Provider.APIKey, "gsk_") {
		t.Errorf("mask should keep a recognizable prefix: %q", out.Provider.APIKey)
	}
	if out.WhatsApp.VerifyToken != "***" {
		t.Errorf("verify token = %q, want ***", out.WhatsApp.VerifyToken)
	}
	// Original untouched.
	if cfg.Provider.APIKey != "gsk_1234567890abcdef" {
		t.Error("Sanitize mutated the original config")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x/y.db"); got != filepath.Join(home, "x/y.db") {
		t.Errorf("ExpandPath = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path changed: %q", got)
	}
}
