package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort        int    `mapstructure:"APP_PORT"`
	OpenAIAPIKey   string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `mapstructure:"OPENAI_BASE_URL"`
	AssistantModel string `mapstructure:"ASSISTANT_MODEL"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	TitleMaxRunes  int    `mapstructure:"TITLE_MAX_RUNES"`
}

func Load() (*Config, error) {
	viper.SetDefault("APP_PORT", 8000)
	viper.SetDefault("OPENAI_API_KEY", "")
	viper.SetDefault("OPENAI_BASE_URL", "")
	viper.SetDefault("ASSISTANT_MODEL", "gpt-4o-mini")
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("TITLE_MAX_RUNES", 40)

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
