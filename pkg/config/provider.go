package config

import (
	"time"

	"github.com/spf13/viper"
)

// Completion provider names accepted by LLM_PROVIDER
const (
	ProviderSimulated = "simulated"
	ProviderOpenAI    = "openai"
)

// ProviderConfig represents configuration of the completion provider
type ProviderConfig struct {
	Provider           string        `yaml:"provider"           json:"provider"`
	APIKey             string        `yaml:"apiKey"             json:"-"`
	BaseURL            string        `yaml:"baseUrl"            json:"baseUrl"`
	DefaultModel       string        `yaml:"defaultModel"       json:"defaultModel"`
	DefaultTemperature float64       `yaml:"defaultTemperature" json:"defaultTemperature"`
	DefaultMaxTokens   int           `yaml:"defaultMaxTokens"   json:"defaultMaxTokens"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"     json:"requestTimeout"`
}

func setupProviderEnv() {
	bindEnvVariable("LLM_PROVIDER", "")
	bindEnvVariable("OPENAI_API_KEY", "")
	bindEnvVariable("OPENAI_BASE_URL", "https://api.openai.com/v1")
	bindEnvVariable("OPENAI_DEFAULT_MODEL", "gpt-3.5-turbo")
	bindEnvVariable("OPENAI_REQUEST_TIMEOUT", "120s")
	bindEnvVariable("DEFAULT_TEMPERATURE", 0.7)
	bindEnvVariable("DEFAULT_MAX_TOKENS", 1000)
}

// GetProviderConfig returns the completion provider configuration from viper.
// An API key without an explicit provider selects OpenAI.
func GetProviderConfig() ProviderConfig {
	cfg := ProviderConfig{
		Provider:           viper.GetString("LLM_PROVIDER"),
		APIKey:             viper.GetString("OPENAI_API_KEY"),
		BaseURL:            viper.GetString("OPENAI_BASE_URL"),
		DefaultModel:       viper.GetString("OPENAI_DEFAULT_MODEL"),
		DefaultTemperature: viper.GetFloat64("DEFAULT_TEMPERATURE"),
		DefaultMaxTokens:   viper.GetInt("DEFAULT_MAX_TOKENS"),
		RequestTimeout:     viper.GetDuration("OPENAI_REQUEST_TIMEOUT"),
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderSimulated
		if cfg.APIKey != "" {
			cfg.Provider = ProviderOpenAI
		}
	}
	return cfg
}
