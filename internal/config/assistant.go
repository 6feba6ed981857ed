package config

import (
	"fmt"
	"os"
	"time"
)

// AssistantConfig configures the chat assistant backend.
// Provider "rules" answers locally; "openai-compatible" calls a chat completions API.
type AssistantConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	APIKey     string        `mapstructure:"api_key"`
	APIKeyEnv  string        `mapstructure:"api_key_env"` // name of an env var holding the key
	BaseURL    string        `mapstructure:"base_url"`
	BaseURLEnv string        `mapstructure:"base_url_env"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ResolveEnvVars fills APIKey and BaseURL from the named environment
// variables. Values set directly take precedence.
func (c *AssistantConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
	if c.BaseURLEnv != "" && c.BaseURL == "" {
		c.BaseURL = os.Getenv(c.BaseURLEnv)
	}
}

// Validate checks the provider and the fields it needs.
func (c *AssistantConfig) Validate() error {
	switch c.Provider {
	case "rules":
		return nil
	case "openai-compatible":
		if c.Model == "" {
			return fmt.Errorf("assistant %q: model is required", c.Provider)
		}
		if c.BaseURL == "" {
			return fmt.Errorf("assistant %q: base_url is required", c.Provider)
		}
		return nil
	default:
		return fmt.Errorf("assistant: unknown provider %q", c.Provider)
	}
}

// UsesLLM reports whether replies come from a remote model. An
// openai-compatible provider without a key falls back to rules.
func (c *AssistantConfig) UsesLLM() bool {
	return c.Provider == "openai-compatible" && c.APIKey != ""
}
