package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for warelay.
type Config struct {
	General   GeneralConfig   `json:"general"`
	WhatsApp  WhatsAppConfig  `json:"whatsapp"`
	Provider  ProviderConfig  `json:"provider"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Metrics   MetricsConfig   `json:"metrics"`
}

type GeneralConfig struct {
	Host                  string `json:"host"`
	Port                  int    `json:"port"`
	LogLevel              string `json:"logLevel"` // debug | info | warn | error
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds"`
}

// WhatsAppConfig holds the Cloud API credentials and addressing.
type WhatsAppConfig struct {
	AccessToken   string `json:"accessToken"`
	VerifyToken   string `json:"verifyToken"`
	PhoneNumberID string `json:"phoneNumberId"`
	APIVersion    string `json:"apiVersion"`
	GraphBaseURL  string `json:"graphBaseUrl,omitempty"` // override for tests
}

// ProviderConfig configures the completion provider (Groq or any
// OpenAI-compatible chat completions API).
type ProviderConfig struct {
	APIKey      string  `json:"apiKey"`
	APIBase     string  `json:"apiBase,omitempty"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// KnowledgeConfig configures the retrieval capability. When disabled the
// no-op variant is wired and prompts carry no context block.
type KnowledgeConfig struct {
	Enabled      bool   `json:"enabled"`
	DBPath       string `json:"dbPath"`
	SearchTopK   int    `json:"searchTopK"`
	ChunkSize    int    `json:"chunkSize"`    // words per chunk
	ChunkOverlap int    `json:"chunkOverlap"` // overlapping words
	SeedPath     string `json:"seedPath,omitempty"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.warelay).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".warelay"
	}
	return filepath.Join(home, ".warelay")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Knowledge.DBPath = ExpandPath(cfg.Knowledge.DBPath)
	cfg.Knowledge.SeedPath = ExpandPath(cfg.Knowledge.SeedPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.Port < 0 || cfg.General.Port > 65535 {
		errs = append(errs, "general.port must be between 0 and 65535")
	}
	if cfg.General.RequestTimeoutSeconds < 1 {
		errs = append(errs, "general.requestTimeoutSeconds must be >= 1")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.WhatsApp.APIVersion == "" {
		errs = append(errs, "whatsapp.apiVersion is required")
	}
	if cfg.WhatsApp.VerifyToken == "" {
		errs = append(errs, "whatsapp.verifyToken is required")
	}

	if cfg.Provider.Model == "" {
		errs = append(errs, "provider.model is required")
	}

	if cfg.Knowledge.Enabled {
		if cfg.Knowledge.DBPath == "" {
			errs = append(errs, "knowledge.dbPath is required when knowledge is enabled")
		}
		if cfg.Knowledge.SearchTopK < 1 {
			errs = append(errs, "knowledge.searchTopK must be >= 1")
		}
		if cfg.Knowledge.ChunkSize < 1 {
			errs = append(errs, "knowledge.chunkSize must be >= 1")
		}
		if cfg.Knowledge.ChunkOverlap < 0 || cfg.Knowledge.ChunkOverlap >= cfg.Knowledge.ChunkSize {
			errs = append(errs, "knowledge.chunkOverlap must be >= 0 and smaller than chunkSize")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
