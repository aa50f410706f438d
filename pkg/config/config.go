package config

import (
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides: TASKPILOT_LLM_MODEL -> llm.model.
const EnvPrefix = "TASKPILOT_"

type Config struct {
	App       AppConfig                 `koanf:"app"`
	Log       LogConfig                 `koanf:"log"`
	Gateways  map[string]GatewayConfig  `koanf:"gateways"`
	Providers map[string]ProviderConfig `koanf:"providers"`
	Memory    MemoryConfig              `koanf:"memory"`
	Policy    PolicyConfig              `koanf:"policy"`
}

type AppConfig struct {
	Name      string `koanf:"name"`
	Workspace string `koanf:"workspace"`
	Prompts   string `koanf:"prompts"`
	MaxSteps  int    `koanf:"max_steps"`
}

type LogConfig struct {
	Level   string `koanf:"level"` // debug, info
	LLMFile string `koanf:"llm_file"`
}

type GatewayConfig struct {
	Token   string `koanf:"token"`
	Enabled bool   `koanf:"enabled"`
}

type ProviderConfig struct {
	APIKey   string `koanf:"api_key"`
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"`
	Enabled  bool   `koanf:"enabled"`
	JSONMode bool   `koanf:"json_mode"`
}

type MemoryConfig struct {
	Type string `koanf:"type"`
	Path string `koanf:"path"`
}

type PolicyConfig struct {
	DeniedActions  []string            `koanf:"denied_actions"`
	// DeniedPatterns maps an action name to argument patterns it refuses.
	// The key "*" applies to every action.
	DeniedPatterns map[string][]string `koanf:"denied_patterns"`
}

// Keys whose names contain an underscore; the env mapping would otherwise
// split them.
var compoundKeys = []string{"api_key", "base_url", "json_mode", "max_steps", "llm_file", "denied_actions", "denied_patterns"}

// Load reads defaults, then the YAML file at path (if any), then TASKPILOT_*
// environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("app.name", "TaskPilot")
	k.Set("app.workspace", "workspace")
	k.Set("app.prompts", "prompts")
	k.Set("app.max_steps", 15)
	k.Set("log.level", "info")
	k.Set("log.llm_file", "logs/llm.jsonl")
	k.Set("memory.type", "sqlite")
	k.Set("memory.path", "taskpilot.db")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	for _, c := range compoundKeys {
		key = strings.ReplaceAll(key, strings.ReplaceAll(c, "_", "."), c)
	}
	return key
}

// Debug reports whether debug logging is configured.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Log.Level, "debug")
}

// GetDefaultProvider returns the first enabled provider by name.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGatewayConfig returns the gateway config if enabled.
func (c *Config) GetGatewayConfig(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled {
		return g, true
	}
	return GatewayConfig{}, false
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	return c.GetGatewayConfig("telegram")
}

// GetDiscordConfig returns discord config if enabled
func (c *Config) GetDiscordConfig() (GatewayConfig, bool) {
	return c.GetGatewayConfig("discord")
}
