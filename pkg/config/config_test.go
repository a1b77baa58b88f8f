package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

func TestSetupLogger(t *testing.T) {
	SetupEnv()
	viper.Set("HUMAN_READABLE_LOGS", true)
	defer viper.Set("HUMAN_READABLE_LOGS", HumanReadableLogs)

	SetupLogger()

	cfg := logging.LoggerConfig()
	assert.Equal(t, Name, cfg.SvcName)
	assert.Equal(t, Version, cfg.SvcVersion)
	assert.True(t, cfg.HumanReadable)
}

func TestGetProviderConfig(t *testing.T) {
	SetupEnv()
	defer viper.Set("OPENAI_API_KEY", "")

	viper.Set("OPENAI_API_KEY", "")
	assert.Equal(t, ProviderSimulated, GetProviderConfig().Provider)

	viper.Set("OPENAI_API_KEY", "sk-test")
	assert.Equal(t, ProviderOpenAI, GetProviderConfig().Provider)
}

func TestCostTablesPriced(t *testing.T) {
	costs := DefaultCostTables()
	assert.True(t, costs.Priced("gpt-4o"))
	assert.False(t, costs.Priced("gpt-5-preview"))
	assert.Equal(t, costs.PerMessageFallback, costs.MessageRate("gpt-5-preview"))
}
